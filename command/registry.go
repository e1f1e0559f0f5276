package command

import (
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/wgnet/clacks/errors"
)

// Registry holds every command registered on a server, keyed by every
// alias that resolves to it. Per the specification, the registry is
// built at bring-up and immutable thereafter; Register is safe to call
// concurrently only relative to itself — concurrent Register and
// Resolve calls are safe, but registration is expected to complete
// before the server starts accepting connections.
type Registry struct {
	mu            sync.RWMutex
	byAlias       map[string]*Command
	byFormerAlias map[string]*Command
	ordered       []*Command
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		byAlias:       make(map[string]*Command),
		byFormerAlias: make(map[string]*Command),
	}
}

// legalKey reports whether s is non-empty and consists only of
// lowercase ASCII letters and underscores.
func legalKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}

// Register adds a new command under key, plus any additional aliases
// or former aliases supplied via Option. Registration fails if key (or
// any alias) is not a legal key, or if any alias collides with an
// already-registered alias or former alias anywhere in the registry.
func (r *Registry) Register(key string, fn Callable, opts ...Option) (*Command, error) {
	cmd := &Command{Key: key, Callable: fn, Aliases: []string{key}}
	for _, opt := range opts {
		opt(cmd)
	}

	if err := r.validate(cmd); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alias := range dedupe(cmd.Aliases) {
		r.byAlias[alias] = cmd
	}
	for _, alias := range dedupe(cmd.FormerAliases) {
		r.byFormerAlias[alias] = cmd
	}
	r.ordered = append(r.ordered, cmd)
	return cmd, nil
}

// RegisterFunc wraps an arbitrary Go function as a Callable via
// reflection, inferring a Signature from its parameter and return
// types, then registers it exactly as Register would. fn must have the
// shape func(args...) R or func(args...) (R, error); positional
// arguments are bound from Question.Args in order.
func (r *Registry) RegisterFunc(key string, fn any, opts ...Option) (*Command, error) {
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, errors.New(errors.KindBadCommandArgs, "command %q: RegisterFunc requires a function, got %s", key, rt.Kind())
	}

	sig := Signature{}
	for i := 0; i < rt.NumIn(); i++ {
		sig.Params = append(sig.Params, Param{Name: paramName(i), Type: rt.In(i)})
	}
	switch rt.NumOut() {
	case 1:
		sig.Returns = rt.Out(0)
	case 2:
		sig.Returns = rt.Out(0)
		if !rt.Out(1).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
			return nil, errors.New(errors.KindBadCommandArgs, "command %q: second return value must be error", key)
		}
	}

	callable := func(ctx *Context, args []any, kwargs map[string]any) (any, error) {
		if len(args) != rt.NumIn() {
			return nil, errors.New(errors.KindBadCommandArgs,
				"command %q: expected %d positional arguments, got %d", key, rt.NumIn(), len(args))
		}
		in := make([]reflect.Value, rt.NumIn())
		for i, a := range args {
			want := rt.In(i)
			av := reflect.ValueOf(a)
			if !av.IsValid() {
				in[i] = reflect.Zero(want)
				continue
			}
			if !av.Type().AssignableTo(want) {
				if av.Type().ConvertibleTo(want) {
					av = av.Convert(want)
				} else {
					return nil, errors.New(errors.KindBadCommandArgs,
						"command %q: argument %d: cannot use %s as %s", key, i, av.Type(), want)
				}
			}
			in[i] = av
		}
		out := rv.Call(in)
		switch len(out) {
		case 1:
			return out[0].Interface(), nil
		case 2:
			var err error
			if !out[1].IsNil() {
				err = out[1].Interface().(error)
			}
			return out[0].Interface(), err
		default:
			return nil, nil
		}
	}

	opts = append([]Option{WithSignature(sig)}, opts...)
	return r.Register(key, callable, opts...)
}

func paramName(i int) string { return "arg" + strconv.Itoa(i) }

func (r *Registry) validate(cmd *Command) error {
	if !legalKey(cmd.Key) {
		return errors.New(errors.KindAliasCollision, "command key %q is not a legal key (lowercase ascii/underscore only)", cmd.Key)
	}
	for _, a := range cmd.Aliases {
		if !legalKey(a) {
			return errors.New(errors.KindAliasCollision, "alias %q is not a legal key", a)
		}
	}
	for _, a := range cmd.FormerAliases {
		if !legalKey(a) {
			return errors.New(errors.KindAliasCollision, "former alias %q is not a legal key", a)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range cmd.Aliases {
		if _, ok := r.byAlias[a]; ok {
			return errors.New(errors.KindAliasCollision, "alias %q is already registered", a)
		}
		if _, ok := r.byFormerAlias[a]; ok {
			return errors.New(errors.KindAliasCollision, "alias %q collides with an existing former alias", a)
		}
	}
	for _, a := range cmd.FormerAliases {
		if _, ok := r.byFormerAlias[a]; ok {
			return errors.New(errors.KindAliasCollision, "former alias %q collides with another command's former alias", a)
		}
		if _, ok := r.byAlias[a]; ok {
			return errors.New(errors.KindAliasCollision, "former alias %q collides with an existing current alias", a)
		}
	}
	return nil
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Resolve looks up name, checking current aliases first, then former
// aliases. usedFormerAlias is true iff name only matched a former alias.
func (r *Registry) Resolve(name string) (cmd *Command, usedFormerAlias bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok = r.byAlias[name]; ok {
		return cmd, false, true
	}
	if cmd, ok = r.byFormerAlias[name]; ok {
		return cmd, true, true
	}
	return nil, false, false
}

// List returns every registered command in registration order.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Names returns the primary key of every non-private command, sorted;
// additional aliases and former aliases are not included. This is the
// shape the list_commands built-in command returns.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, cmd := range r.ordered {
		if cmd.Private {
			continue
		}
		names = append(names, cmd.Key)
	}
	sort.Strings(names)
	return names
}
