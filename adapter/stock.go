package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// DeprecationWarnings appends a warning and promotes a 200 response to
// 201 (Deprecated) whenever the resolved command was reached through a
// former alias.
type DeprecationWarnings struct{ Named }

// NewDeprecationWarnings returns the deprecation-warning stock adapter.
func NewDeprecationWarnings() *DeprecationWarnings {
	return &DeprecationWarnings{Named: "deprecation_warnings"}
}

func (*DeprecationWarnings) ServerPostDigest(ctx context.Context, dctx *DigestContext) {
	if !dctx.UsedFormerAlias || dctx.Command == nil || dctx.Response == nil {
		return
	}
	dctx.Response.AddWarning(fmt.Sprintf(
		"command %q is deprecated; use %q instead", dctx.Question.Command, dctx.Command.Key))
	if dctx.Response.Code == 200 {
		dctx.Response.Code = 201
	}
}

// GNUTerryPratchett injects the X-Clacks-Overhead header into every
// outgoing packet. A tribute, not a protocol requirement.
type GNUTerryPratchett struct{ Named }

// NewGNUTerryPratchett returns the GNU Terry Pratchett stock adapter.
func NewGNUTerryPratchett() *GNUTerryPratchett {
	return &GNUTerryPratchett{Named: "gnu_terry_pratchett"}
}

func (*GNUTerryPratchett) HandlerPreRespond(ctx context.Context, txid message.TxID, header message.Header, payload marshaller.Payload) {
	header["X-Clacks-Overhead"] = "GNU Terry Pratchett"
}

// HeaderAsKwarg injects the incoming header map into the question's
// kwargs under "_header_data" for any command registered with
// command.TakesHeaderData().
type HeaderAsKwarg struct{ Named }

// NewHeaderAsKwarg returns the header-as-kwarg stock adapter.
func NewHeaderAsKwarg() *HeaderAsKwarg {
	return &HeaderAsKwarg{Named: "header_data_as_kwarg"}
}

func (*HeaderAsKwarg) ServerPreDigest(ctx context.Context, dctx *DigestContext) {
	if dctx.Command == nil || !dctx.Command.TakesHeaderData || dctx.Question == nil {
		return
	}
	if dctx.Question.Kwargs == nil {
		dctx.Question.Kwargs = make(map[string]any)
	}
	dctx.Question.Kwargs["_header_data"] = dctx.Question.Header
}

// StatusCode splits a command.StatusResult return value into
// Response.Response and Response.Code for any command registered with
// command.ReturnsStatusCode().
type StatusCode struct{ Named }

// NewStatusCode returns the status-code stock adapter.
func NewStatusCode() *StatusCode {
	return &StatusCode{Named: "status_code"}
}

func (*StatusCode) ServerPostDigest(ctx context.Context, dctx *DigestContext) {
	if dctx.Command == nil || !dctx.Command.ReturnsStatusCode || dctx.Response == nil {
		return
	}
	if dctx.Response.HasError() {
		return // the command already failed; nothing to split
	}
	sr, ok := dctx.Response.Response.(command.StatusResult)
	if !ok {
		badErr := errors.New(errors.KindBadResponse,
			"command %q: returns_status_code set but result is %T, not command.StatusResult",
			dctx.Question.Command, dctx.Response.Response)
		*dctx.Response = *message.NewErrorResponse(badErr)
		return
	}
	dctx.Response.Response = sr.Value
	dctx.Response.Code = errors.Code(sr.Code)
}

// Profiling times each command invocation (server_pre_digest through
// server_post_digest) and attaches a summary to the outgoing payload at
// handler_pre_respond, keyed by txid and cleared at handler_post_respond
// so no per-transaction scratch state outlives the connection.
type Profiling struct {
	Named
	started sync.Map // message.TxID -> time.Time
	summary sync.Map // message.TxID -> map[string]any
}

// NewProfiling returns the profiling stock adapter.
func NewProfiling() *Profiling {
	return &Profiling{Named: "profiling"}
}

func (p *Profiling) ServerPreDigest(ctx context.Context, dctx *DigestContext) {
	p.started.Store(dctx.TxID, time.Now())
}

func (p *Profiling) ServerPostDigest(ctx context.Context, dctx *DigestContext) {
	v, ok := p.started.LoadAndDelete(dctx.TxID)
	if !ok {
		return
	}
	elapsed := time.Since(v.(time.Time))
	p.summary.Store(dctx.TxID, map[string]any{
		"command":    dctx.Question.Command,
		"elapsed_ms": float64(elapsed.Microseconds()) / 1000.0,
	})
}

func (p *Profiling) HandlerPreRespond(ctx context.Context, txid message.TxID, header message.Header, payload marshaller.Payload) {
	if v, ok := p.summary.Load(txid); ok {
		payload["profiling"] = v
	}
}

func (p *Profiling) HandlerPostRespond(ctx context.Context, txid message.TxID, header message.Header) {
	p.summary.Delete(txid)
}

// Summary returns the profiling summary recorded for txid, if any.
// While txid's command is still running (between server_pre_digest and
// server_post_digest) it returns the elapsed time so far. Exposed for
// the command_profile_summary command so an in-flight transaction can
// inspect its own timing before handler_pre_respond attaches it to the
// outgoing payload.
func (p *Profiling) Summary(txid message.TxID) (map[string]any, bool) {
	if v, ok := p.summary.Load(txid); ok {
		return v.(map[string]any), true
	}
	if v, ok := p.started.Load(txid); ok {
		elapsed := time.Since(v.(time.Time))
		return map[string]any{"elapsed_ms": float64(elapsed.Microseconds()) / 1000.0}, true
	}
	return nil, false
}
