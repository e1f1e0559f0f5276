// Package adapter implements the cross-cutting interceptor pipeline:
// fourteen named hook points fired around every stage of a transaction
// (receive, decode, digest, encode, send).
//
// An Adapter is any value implementing a subset of the hook interfaces
// declared below. This mirrors the standard library's optional-interface
// idiom (http.Flusher, io.ReaderFrom, ...) rather than the source's
// single base class with overridable no-op methods: a Pipeline
// discovers which hooks an Adapter supports with a type assertion and
// skips the rest, so an adapter that only cares about one hook need not
// declare the other thirteen.
package adapter

import (
	"context"

	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// Adapter is the type a Pipeline holds; its only required method is
// AdapterName. Concrete adapters implement any subset of the hook
// interfaces below.
type Adapter interface {
	// AdapterName identifies this adapter in logs when a hook panics.
	AdapterName() string
}

// DigestContext is the full context available to the server_pre_digest
// and server_post_digest hooks: the in-flight question, the resolved
// command (nil if resolution failed), and — at post_digest — the
// response that is about to be sent. Adapters mutate Question.Kwargs,
// Question.Header, or Response in place; all three are reference types,
// so mutations are visible to the dispatcher after the hook returns.
type DigestContext struct {
	TxID            message.TxID
	Question        *message.Question
	Command         *command.Command // nil if resolution failed
	UsedFormerAlias bool
	Response        *message.Response // nil until post-digest
	// Logger is the transaction's log-capture scope, if one is open; an
	// adapter that wants its own findings attached to the Response calls
	// Logger.CaptureWarn/CaptureError with TxID. May be nil.
	Logger command.Logger
}

// The fourteen hook interfaces, one per row of the specification's
// adapter table. Names match the table's hook names exactly.

type HandlerPreReceiveHeader interface {
	Adapter
	HandlerPreReceiveHeader(ctx context.Context, txid message.TxID)
}

type HandlerPostReceiveHeader interface {
	Adapter
	HandlerPostReceiveHeader(ctx context.Context, txid message.TxID, header message.Header)
}

type HandlerPreReceiveContent interface {
	Adapter
	HandlerPreReceiveContent(ctx context.Context, txid message.TxID, header message.Header)
}

type HandlerPostReceiveContent interface {
	Adapter
	HandlerPostReceiveContent(ctx context.Context, txid message.TxID, header message.Header, body []byte)
}

type HandlerPreCompileBuffer interface {
	Adapter
	HandlerPreCompileBuffer(ctx context.Context, txid message.TxID, payload marshaller.Payload)
}

type HandlerPostCompileBuffer interface {
	Adapter
	HandlerPostCompileBuffer(ctx context.Context, txid message.TxID, payload marshaller.Payload)
}

type HandlerPreRespond interface {
	Adapter
	HandlerPreRespond(ctx context.Context, txid message.TxID, header message.Header, payload marshaller.Payload)
}

type HandlerPostRespond interface {
	Adapter
	HandlerPostRespond(ctx context.Context, txid message.TxID, header message.Header)
}

type MarshallerPreEncodePackage interface {
	Adapter
	MarshallerPreEncodePackage(ctx context.Context, txid message.TxID, payload marshaller.Payload)
}

type MarshallerPostEncodePackage interface {
	Adapter
	MarshallerPostEncodePackage(ctx context.Context, txid message.TxID, payload marshaller.Payload, encoded []byte)
}

type MarshallerPreDecodePackage interface {
	Adapter
	MarshallerPreDecodePackage(ctx context.Context, txid message.TxID, header message.Header)
}

type MarshallerPostDecodePackage interface {
	Adapter
	MarshallerPostDecodePackage(ctx context.Context, txid message.TxID, header message.Header, payload marshaller.Payload)
}

type ServerPreAddToQueue interface {
	Adapter
	ServerPreAddToQueue(ctx context.Context, txid message.TxID, header message.Header)
}

type ServerPostRemoveFromQueue interface {
	Adapter
	ServerPostRemoveFromQueue(ctx context.Context, txid message.TxID, header message.Header)
}

type ServerPreDigest interface {
	Adapter
	ServerPreDigest(ctx context.Context, dctx *DigestContext)
}

type ServerPostDigest interface {
	Adapter
	ServerPostDigest(ctx context.Context, dctx *DigestContext)
}

// Named is a convenience embeddable type giving a stock adapter its
// AdapterName() from a fixed string, so most adapters need not write
// the method by hand.
type Named string

func (n Named) AdapterName() string { return string(n) }
