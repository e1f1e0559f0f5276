// Package command implements the named-callable registry: commands are
// registered at server bring-up with metadata (aliases, visibility,
// argument/result processors) and resolved by alias at dispatch time.
//
// This replaces the source's dynamic-attribute dispatch with an
// explicit registry (spec Design Notes section 9): Register is the
// single entry point, and resolution is a map lookup, never reflection
// over a live object graph.
package command

import (
	"context"
	"reflect"

	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/message"
)

// Context is handed to every Callable. It replaces the source's
// "**kwargs injection" of cross-cutting request metadata with a typed
// value: a command that wants the incoming header reads ctx.Header
// directly instead of rummaging through kwargs.
type Context struct {
	context.Context
	TxID   message.TxID
	Header message.Header
	// Logger is the transaction's log-capture scope, if one is open.
	// A command that wants its own warnings/errors to ride along on its
	// Response calls ctx.Logger.CaptureWarn/CaptureError with ctx.TxID.
	// May be nil when no logger was wired in; callers must nil-check.
	Logger Logger
}

// Logger is the subset of *internal/logging.Logger a command needs to
// attribute a warning or error to its own transaction. Declared here,
// rather than importing internal/logging, so package command has no
// dependency on the logging implementation.
type Logger interface {
	CaptureWarn(txid message.TxID, format string, args ...any)
	CaptureError(txid message.TxID, format string, args ...any)
}

// StatusResult is the required return shape for a command registered
// with ReturnsStatusCode: Value becomes Response.Response, Code becomes
// Response.Code.
type StatusResult struct {
	Value any
	Code  int
}

// Callable is the explicit registry entry point a command implements.
// args and kwargs have already passed through the command's
// ArgProcessors by the time Callable is invoked.
type Callable func(ctx *Context, args []any, kwargs map[string]any) (any, error)

// Param describes one declared parameter of a command, for
// introspection (command_info/command_help) and for the stock
// type-checking/auto-conversion arg processors.
type Param struct {
	Name     string
	Type     reflect.Type
	HasDefault bool
	Default  any
}

// Signature is optional declared metadata about a command's parameters
// and return type.
type Signature struct {
	Params  []Param
	Returns reflect.Type // nil if undeclared
}

// ArgProcessor transforms incoming arguments before Callable sees them.
// Processors are applied in declaration order, chained: each receives
// the previous processor's output.
type ArgProcessor func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error)

// ResultProcessor transforms a Callable's return value before it is
// wrapped in a Response.
type ResultProcessor func(cmd *Command, value any) (any, error)

// Command is a registry entry: a named callable plus the metadata that
// governs how it is resolved, who may call it, and how its arguments
// and results are shaped.
type Command struct {
	// Key is this command's primary alias.
	Key string
	// Aliases includes Key and every other name that currently resolves
	// to this command.
	Aliases []string
	// FormerAliases resolve to this command but attach a deprecation
	// warning and promote a 200 response to 201.
	FormerAliases []string

	Callable Callable
	Doc      string
	Signature Signature

	// Private commands are invocable only from in-process callers;
	// a remote invocation fails with AccessDenied (405).
	Private bool
	// ReturnsStatusCode marks a command whose Callable returns a
	// StatusResult rather than a plain value.
	ReturnsStatusCode bool
	// TakesHeaderData marks a command that wants the incoming header
	// injected into kwargs under "_header_data" (see the Header-as-kwarg
	// stock adapter in package adapter).
	TakesHeaderData bool

	ArgProcessors    []ArgProcessor
	ResultProcessors []ResultProcessor
}

// Option configures a Command at registration time. Named after the
// source's command decorators (core/command/decorators.py,
// decorators/server_hints.py).
type Option func(*Command)

// Aliases adds additional current aliases beyond the registration key.
func Aliases(aliases ...string) Option {
	return func(c *Command) { c.Aliases = append(c.Aliases, aliases...) }
}

// FormerAlias marks aliases as deprecated: they still resolve, but
// trigger the deprecation-warning stock adapter.
func FormerAlias(aliases ...string) Option {
	return func(c *Command) { c.FormerAliases = append(c.FormerAliases, aliases...) }
}

// Private marks a command as invocable only from in-process callers.
func Private() Option {
	return func(c *Command) { c.Private = true }
}

// ReturnsStatusCode marks a command whose Callable returns a StatusResult.
func ReturnsStatusCode() Option {
	return func(c *Command) { c.ReturnsStatusCode = true }
}

// TakesHeaderData marks a command that wants the incoming header as a kwarg.
func TakesHeaderData() Option {
	return func(c *Command) { c.TakesHeaderData = true }
}

// WithArgProcessors appends argument processors, applied in order.
func WithArgProcessors(procs ...ArgProcessor) Option {
	return func(c *Command) { c.ArgProcessors = append(c.ArgProcessors, procs...) }
}

// WithResultProcessors appends result processors, applied in order.
func WithResultProcessors(procs ...ResultProcessor) Option {
	return func(c *Command) { c.ResultProcessors = append(c.ResultProcessors, procs...) }
}

// WithDoc attaches a human-readable description, surfaced by command_help.
func WithDoc(doc string) Option {
	return func(c *Command) { c.Doc = doc }
}

// WithSignature attaches declared parameter/return metadata, consumed
// by the stock type-checking and auto-conversion arg/result processors.
func WithSignature(sig Signature) Option {
	return func(c *Command) { c.Signature = sig }
}

// Invoke runs the command's full pipeline: arg processors, Callable,
// result processors. It does not apply the ReturnsStatusCode split or
// the TakesHeaderData injection — those are cross-cutting concerns
// applied by the stock adapters at server_pre_digest/server_post_digest
// so that custom adapters can observe and override them.
func (c *Command) Invoke(ctx *Context, args []any, kwargs map[string]any) (any, error) {
	var err error
	for _, proc := range c.ArgProcessors {
		args, kwargs, err = applyArgProcessor(c, proc, args, kwargs)
		if err != nil {
			return nil, err
		}
	}

	value, err := c.Callable(ctx, args, kwargs)
	if err != nil {
		return nil, err
	}

	for _, proc := range c.ResultProcessors {
		value, err = proc(c, value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func applyArgProcessor(cmd *Command, proc ArgProcessor, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
	newArgs, newKwargs, err := proc(cmd, args, kwargs)
	if err != nil {
		return nil, nil, err
	}
	if newKwargs == nil {
		return nil, nil, errors.New(errors.KindBadArgProcessorOutput,
			"command %q: arg processor returned a nil kwargs map", cmd.Key)
	}
	return newArgs, newKwargs, nil
}
