package server

import (
	"context"

	"github.com/wgnet/clacks/adapter"
	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// parseQuestion builds a message.Question from a decoded wire payload,
// promoting an embedded "header_data" kwarg into the real header and
// an embedded "command" kwarg into the command name, per the dispatch
// protocol's parsing step. This lets a client that only has access to
// a flat kwargs map (e.g. a thin scripting binding) still carry framing
// metadata and a command name through one positional channel.
func parseQuestion(payload marshaller.Payload, header message.Header) (*message.Question, error) {
	kwargs, _ := payload["kwargs"].(map[string]any)
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	q := &message.Question{Header: header.Clone(), Kwargs: kwargs}

	if cmd, ok := payload["command"].(string); ok {
		q.Command = cmd
	} else if cmd, ok := kwargs["command"].(string); ok {
		q.Command = cmd
		delete(kwargs, "command")
	}

	if args, ok := payload["args"].([]any); ok {
		q.Args = args
	}

	if hd, ok := kwargs["header_data"].(map[string]any); ok {
		for k, v := range hd {
			q.Header[k] = v
		}
		delete(kwargs, "header_data")
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// responseToPayload renders a Response to its wire Payload shape.
func responseToPayload(r *message.Response) marshaller.Payload {
	p := marshaller.Payload{
		"response": r.Response,
		"code":     int(r.Code),
	}
	if r.Traceback != "" {
		p["tb"] = r.Traceback
	}
	if r.TracebackType != "" {
		p["tb_type"] = r.TracebackType
	}
	if len(r.Warnings) > 0 {
		p["warnings"] = r.Warnings
	}
	if len(r.Errors) > 0 {
		p["errors"] = r.Errors
	}
	if len(r.Info) > 0 {
		p["info"] = r.Info
	}
	return p
}

// digestLogger is the subset of *internal/logging.Logger the
// dispatcher needs for its per-transaction capture scope, plus the
// command.Logger methods so the same value can be handed to a running
// command or adapter as its capture target. Declared locally so this
// package does not import internal/logging directly, keeping the
// dependency one-way (internal/logging has no reason to know about
// server).
type digestLogger interface {
	BeginCapture(txid message.TxID)
	EndCapture(txid message.TxID) (warnings, errs []string)
	command.Logger
}

// digest runs the full dispatch protocol for one dequeued packet:
// parse, resolve, invoke, and build a Response — catching any error at
// each stage into a mapped-status-code Response rather than letting it
// escape, per the specification's failure-isolation rule.
func digest(ctx context.Context, registry *command.Registry, pipeline *adapter.Pipeline, logger digestLogger, txid message.TxID, header message.Header, payload marshaller.Payload) (response *message.Response) {
	if logger != nil {
		logger.BeginCapture(txid)
		defer func() {
			warnings, errs := logger.EndCapture(txid)
			response.Warnings = append(response.Warnings, warnings...)
			response.Errors = append(response.Errors, errs...)
		}()
	}

	return runDigest(ctx, registry, pipeline, logger, txid, header, payload)
}

// runDigest builds the Response before any captured log records are
// merged in; split out so digest's deferred EndCapture always runs,
// even on the early-return parse/resolve/visibility failures below.
// logger is threaded into the command's Context and the adapter
// pipeline's DigestContext so a running command or adapter can attach
// its own warnings/errors to this transaction's capture scope. A nil
// logger converts cleanly to a nil command.Logger; callers on both
// sides nil-check before use.
func runDigest(ctx context.Context, registry *command.Registry, pipeline *adapter.Pipeline, logger digestLogger, txid message.TxID, header message.Header, payload marshaller.Payload) *message.Response {
	question, err := parseQuestion(payload, header)
	if err != nil {
		return message.NewErrorResponse(errors.Wrap(errors.KindBadQuestion, err, "parse question"))
	}

	cmd, usedFormerAlias, found := registry.Resolve(question.Command)
	if !found {
		return message.NewErrorResponse(errors.New(errors.KindCommandNotFound, "no such command: %s", question.Command))
	}
	if cmd.Private {
		return message.NewErrorResponse(errors.New(errors.KindCommandIsPrivate, "command %q is private", question.Command))
	}

	dctx := &adapter.DigestContext{
		TxID:            txid,
		Question:        question,
		Command:         cmd,
		UsedFormerAlias: usedFormerAlias,
		Logger:          logger,
	}
	pipeline.FireServerPreDigest(ctx, dctx)

	cmdCtx := &command.Context{Context: ctx, TxID: txid, Header: question.Header, Logger: logger}
	value, invokeErr := cmd.Invoke(cmdCtx, question.Args, question.Kwargs)

	if invokeErr != nil {
		dctx.Response = message.NewErrorResponse(invokeErr)
	} else {
		dctx.Response = message.NewResponse(value)
	}

	pipeline.FireServerPostDigest(ctx, dctx)
	return dctx.Response
}
