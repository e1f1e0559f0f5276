package adapter

import (
	"context"

	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// Logger is the minimal logging surface the pipeline needs to report a
// swallowed adapter failure. *internal/logging.Logger satisfies this
// implicitly; tests can pass a stub.
type Logger interface {
	Errorf(format string, args ...any)
}

// nopLogger discards everything; used when Pipeline is built without a
// logger so the zero value is still usable.
type nopLogger struct{}

func (nopLogger) Errorf(string, ...any) {}

// Pipeline fires each of the fourteen hooks, in registration order,
// across every adapter that implements it. No hook may abort a
// transaction: a panicking or erroring adapter is logged and skipped,
// per the specification's failure-isolation rule.
type Pipeline struct {
	adapters []Adapter
	logger   Logger
}

// NewPipeline builds a Pipeline over adapters, fired in the given order
// at every hook they implement.
func NewPipeline(logger Logger, adapters ...Adapter) *Pipeline {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Pipeline{adapters: adapters, logger: logger}
}

// Adapters returns the pipeline's adapters in registration order.
func (p *Pipeline) Adapters() []Adapter {
	out := make([]Adapter, len(p.adapters))
	copy(out, p.adapters)
	return out
}

func (p *Pipeline) safe(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("adapter %s: hook panicked: %v", name, r)
		}
	}()
	fn()
}

func (p *Pipeline) FireHandlerPreReceiveHeader(ctx context.Context, txid message.TxID) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPreReceiveHeader); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPreReceiveHeader(ctx, txid) })
		}
	}
}

func (p *Pipeline) FireHandlerPostReceiveHeader(ctx context.Context, txid message.TxID, header message.Header) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPostReceiveHeader); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPostReceiveHeader(ctx, txid, header) })
		}
	}
}

func (p *Pipeline) FireHandlerPreReceiveContent(ctx context.Context, txid message.TxID, header message.Header) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPreReceiveContent); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPreReceiveContent(ctx, txid, header) })
		}
	}
}

func (p *Pipeline) FireHandlerPostReceiveContent(ctx context.Context, txid message.TxID, header message.Header, body []byte) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPostReceiveContent); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPostReceiveContent(ctx, txid, header, body) })
		}
	}
}

func (p *Pipeline) FireHandlerPreCompileBuffer(ctx context.Context, txid message.TxID, payload marshaller.Payload) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPreCompileBuffer); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPreCompileBuffer(ctx, txid, payload) })
		}
	}
}

func (p *Pipeline) FireHandlerPostCompileBuffer(ctx context.Context, txid message.TxID, payload marshaller.Payload) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPostCompileBuffer); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPostCompileBuffer(ctx, txid, payload) })
		}
	}
}

func (p *Pipeline) FireHandlerPreRespond(ctx context.Context, txid message.TxID, header message.Header, payload marshaller.Payload) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPreRespond); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPreRespond(ctx, txid, header, payload) })
		}
	}
}

func (p *Pipeline) FireHandlerPostRespond(ctx context.Context, txid message.TxID, header message.Header) {
	for _, a := range p.adapters {
		if h, ok := a.(HandlerPostRespond); ok {
			p.safe(a.AdapterName(), func() { h.HandlerPostRespond(ctx, txid, header) })
		}
	}
}

func (p *Pipeline) FireMarshallerPreEncodePackage(ctx context.Context, txid message.TxID, payload marshaller.Payload) {
	for _, a := range p.adapters {
		if h, ok := a.(MarshallerPreEncodePackage); ok {
			p.safe(a.AdapterName(), func() { h.MarshallerPreEncodePackage(ctx, txid, payload) })
		}
	}
}

func (p *Pipeline) FireMarshallerPostEncodePackage(ctx context.Context, txid message.TxID, payload marshaller.Payload, encoded []byte) {
	for _, a := range p.adapters {
		if h, ok := a.(MarshallerPostEncodePackage); ok {
			p.safe(a.AdapterName(), func() { h.MarshallerPostEncodePackage(ctx, txid, payload, encoded) })
		}
	}
}

func (p *Pipeline) FireMarshallerPreDecodePackage(ctx context.Context, txid message.TxID, header message.Header) {
	for _, a := range p.adapters {
		if h, ok := a.(MarshallerPreDecodePackage); ok {
			p.safe(a.AdapterName(), func() { h.MarshallerPreDecodePackage(ctx, txid, header) })
		}
	}
}

func (p *Pipeline) FireMarshallerPostDecodePackage(ctx context.Context, txid message.TxID, header message.Header, payload marshaller.Payload) {
	for _, a := range p.adapters {
		if h, ok := a.(MarshallerPostDecodePackage); ok {
			p.safe(a.AdapterName(), func() { h.MarshallerPostDecodePackage(ctx, txid, header, payload) })
		}
	}
}

func (p *Pipeline) FireServerPreAddToQueue(ctx context.Context, txid message.TxID, header message.Header) {
	for _, a := range p.adapters {
		if h, ok := a.(ServerPreAddToQueue); ok {
			p.safe(a.AdapterName(), func() { h.ServerPreAddToQueue(ctx, txid, header) })
		}
	}
}

func (p *Pipeline) FireServerPostRemoveFromQueue(ctx context.Context, txid message.TxID, header message.Header) {
	for _, a := range p.adapters {
		if h, ok := a.(ServerPostRemoveFromQueue); ok {
			p.safe(a.AdapterName(), func() { h.ServerPostRemoveFromQueue(ctx, txid, header) })
		}
	}
}

func (p *Pipeline) FireServerPreDigest(ctx context.Context, dctx *DigestContext) {
	for _, a := range p.adapters {
		if h, ok := a.(ServerPreDigest); ok {
			p.safe(a.AdapterName(), func() { h.ServerPreDigest(ctx, dctx) })
		}
	}
}

func (p *Pipeline) FireServerPostDigest(ctx context.Context, dctx *DigestContext) {
	for _, a := range p.adapters {
		if h, ok := a.(ServerPostDigest); ok {
			p.safe(a.AdapterName(), func() { h.ServerPostDigest(ctx, dctx) })
		}
	}
}
