package adapter

import (
	"context"
	"testing"

	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

type recordingLogger struct{ msgs []string }

func (l *recordingLogger) Errorf(format string, args ...any) {
	l.msgs = append(l.msgs, format)
}

type panicky struct{ Named }

func (panicky) HandlerPreReceiveHeader(ctx context.Context, txid message.TxID) {
	panic("boom")
}

func TestPipelineSwallowsPanicsAndLogs(t *testing.T) {
	logger := &recordingLogger{}
	p := NewPipeline(logger, panicky{Named: "panicky"})
	p.FireHandlerPreReceiveHeader(context.Background(), message.NewTxID())
	if len(logger.msgs) != 1 {
		t.Fatalf("expected one logged failure, got %v", logger.msgs)
	}
}

func TestPipelineFiresInRegistrationOrder(t *testing.T) {
	var order []string
	first := &orderAdapter{Named: "first", order: &order, label: "first"}
	second := &orderAdapter{Named: "second", order: &order, label: "second"}
	p := NewPipeline(nil, first, second)
	p.FireHandlerPreReceiveHeader(context.Background(), message.NewTxID())
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order: %v", order)
	}
}

type orderAdapter struct {
	Named
	order *[]string
	label string
}

func (a *orderAdapter) HandlerPreReceiveHeader(ctx context.Context, txid message.TxID) {
	*a.order = append(*a.order, a.label)
}

func TestGNUTerryPratchett(t *testing.T) {
	a := NewGNUTerryPratchett()
	h := message.Header{}
	a.HandlerPreRespond(context.Background(), message.NewTxID(), h, marshaller.Payload{})
	if h["X-Clacks-Overhead"] != "GNU Terry Pratchett" {
		t.Fatalf("expected header injected, got %v", h)
	}
}

func TestHeaderAsKwarg(t *testing.T) {
	a := NewHeaderAsKwarg()
	cmd := &command.Command{Key: "needs_header", TakesHeaderData: true}
	q := &message.Question{Command: "needs_header", Header: message.Header{"X": "y"}}
	dctx := &DigestContext{Question: q, Command: cmd}
	a.ServerPreDigest(context.Background(), dctx)
	hd, ok := q.Kwargs["_header_data"].(message.Header)
	if !ok {
		t.Fatalf("expected _header_data kwarg, got %v", q.Kwargs)
	}
	if hd["X"] != "y" {
		t.Fatalf("unexpected header contents %v", hd)
	}
}

func TestDeprecationWarnings(t *testing.T) {
	a := NewDeprecationWarnings()
	cmd := &command.Command{Key: "current"}
	q := &message.Question{Command: "old"}
	resp := message.NewResponse("value")
	dctx := &DigestContext{Question: q, Command: cmd, UsedFormerAlias: true, Response: resp}
	a.ServerPostDigest(context.Background(), dctx)
	if resp.Code != 201 {
		t.Fatalf("expected code 201, got %d", resp.Code)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", resp.Warnings)
	}
}

func TestStatusCodeSplitsResult(t *testing.T) {
	a := NewStatusCode()
	cmd := &command.Command{Key: "op", ReturnsStatusCode: true}
	q := &message.Question{Command: "op"}
	resp := message.NewResponse(command.StatusResult{Value: "done", Code: 418})
	dctx := &DigestContext{Question: q, Command: cmd, Response: resp}
	a.ServerPostDigest(context.Background(), dctx)
	if resp.Response != "done" || resp.Code != 418 {
		t.Fatalf("unexpected split result: %+v", resp)
	}
}

func TestStatusCodeBadShapeIsBadResponse(t *testing.T) {
	a := NewStatusCode()
	cmd := &command.Command{Key: "op", ReturnsStatusCode: true}
	q := &message.Question{Command: "op"}
	resp := message.NewResponse("not-a-status-result")
	dctx := &DigestContext{Question: q, Command: cmd, Response: resp}
	a.ServerPostDigest(context.Background(), dctx)
	if !resp.HasError() {
		t.Fatalf("expected bad-response error, got %+v", resp)
	}
	if resp.Code != 505 {
		t.Fatalf("expected code 505, got %d", resp.Code)
	}
}

func TestProfilingAttachesSummaryAndCleansUp(t *testing.T) {
	a := NewProfiling()
	txid := message.NewTxID()
	q := &message.Question{Command: "op"}
	dctx := &DigestContext{TxID: txid, Question: q}
	a.ServerPreDigest(context.Background(), dctx)
	a.ServerPostDigest(context.Background(), dctx)

	payload := marshaller.Payload{}
	a.HandlerPreRespond(context.Background(), txid, message.Header{}, payload)
	if _, ok := payload["profiling"]; !ok {
		t.Fatal("expected profiling key in payload")
	}
	a.HandlerPostRespond(context.Background(), txid, message.Header{})
	if _, ok := a.summary.Load(txid); ok {
		t.Fatal("expected summary cleared after respond")
	}
}
