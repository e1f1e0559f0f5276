package command

import (
	"testing"

	"github.com/wgnet/clacks/errors"
)

func echoCallable(ctx *Context, args []any, kwargs map[string]any) (any, error) {
	return args[0], nil
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("echo", echoCallable); err != nil {
		t.Fatalf("register: %v", err)
	}
	cmd, usedFormer, ok := r.Resolve("echo")
	if !ok || usedFormer {
		t.Fatalf("expected resolve echo, got ok=%v usedFormer=%v", ok, usedFormer)
	}
	if cmd.Key != "echo" {
		t.Fatalf("unexpected key %q", cmd.Key)
	}
}

func TestRegisterIllegalKey(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("Echo!", echoCallable); err == nil {
		t.Fatal("expected error for illegal key")
	}
	if _, err := r.Register("", echoCallable); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestFormerAliasDeprecation(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("current", echoCallable, FormerAlias("old")); err != nil {
		t.Fatalf("register: %v", err)
	}
	cmd, usedFormer, ok := r.Resolve("old")
	if !ok || !usedFormer {
		t.Fatalf("expected resolve old as former alias, got ok=%v usedFormer=%v", ok, usedFormer)
	}
	if cmd.Key != "current" {
		t.Fatalf("expected resolution to current, got %q", cmd.Key)
	}
	_, usedFormer, ok = r.Resolve("current")
	if !ok || usedFormer {
		t.Fatalf("expected resolve current as current alias")
	}
}

func TestFormerAliasCollisionRejectedAtRegistration(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("one", echoCallable, FormerAlias("legacy")); err != nil {
		t.Fatalf("register one: %v", err)
	}
	_, err := r.Register("two", echoCallable, FormerAlias("legacy"))
	if err == nil {
		t.Fatal("expected collision error registering second former alias 'legacy'")
	}
	fe, ok := err.(*errors.Error)
	if !ok || fe.Kind != errors.KindAliasCollision {
		t.Fatalf("expected KindAliasCollision, got %v", err)
	}
}

func TestPrivateCommand(t *testing.T) {
	r := NewRegistry()
	cmd, err := r.Register("secret", echoCallable, Private())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !cmd.Private {
		t.Fatal("expected Private true")
	}
	names := r.Names()
	for _, n := range names {
		if n == "secret" {
			t.Fatal("private command should not appear in Names()")
		}
	}
}

func TestInvokeAppliesProcessorsInOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	p1 := func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		order = append(order, "p1")
		return args, kwargs, nil
	}
	p2 := func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		order = append(order, "p2")
		return args, kwargs, nil
	}
	cmd, err := r.Register("seq", echoCallable, WithArgProcessors(p1, p2))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := cmd.Invoke(&Context{}, []any{"x"}, map[string]any{}); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(order) != 2 || order[0] != "p1" || order[1] != "p2" {
		t.Fatalf("unexpected processor order: %v", order)
	}
}

func TestArgProcessorNilKwargsIsBadOutput(t *testing.T) {
	r := NewRegistry()
	bad := func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		return args, nil, nil
	}
	cmd, err := r.Register("bad", echoCallable, WithArgProcessors(bad))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = cmd.Invoke(&Context{}, []any{"x"}, map[string]any{})
	if err == nil {
		t.Fatal("expected bad-processor-output error")
	}
	fe, ok := err.(*errors.Error)
	if !ok || fe.Kind != errors.KindBadArgProcessorOutput {
		t.Fatalf("expected KindBadArgProcessorOutput, got %v", err)
	}
}

func TestRegisterFuncBindsPositionalArgs(t *testing.T) {
	r := NewRegistry()
	add := func(a, b int) int { return a + b }
	cmd, err := r.RegisterFunc("add", add)
	if err != nil {
		t.Fatalf("registerfunc: %v", err)
	}
	out, err := cmd.Invoke(&Context{}, []any{int(2), int(3)}, map[string]any{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.(int) != 5 {
		t.Fatalf("expected 5, got %v", out)
	}
}
