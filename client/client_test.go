package client

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/wgnet/clacks/adapter"
	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/handler"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

func emptyPipeline() *adapter.Pipeline { return adapter.NewPipeline(nil) }

// serveOneEcho accepts a single connection on ln and answers every
// question it receives with a canned "pong" response, until the
// connection closes.
func serveOneEcho(t *testing.T, ln net.Listener, h *handler.Handler) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	ctx := context.Background()
	for {
		pkt, err := h.ReceiveOne(ctx, conn, r, time.Second, emptyPipeline())
		if err != nil {
			return
		}
		resp := marshaller.Payload{"response": "pong", "code": 200}
		keepAlive := pkt.Header.KeepAlive()
		if err := h.SendOne(ctx, conn, pkt.TxID, nil, resp, keepAlive, emptyPipeline()); err != nil {
			return
		}
		if !keepAlive {
			return
		}
	}
}

// serveOneFailure accepts a single connection and answers its first
// question with a Response carrying a traceback, as a command that
// errored out would.
func serveOneFailure(t *testing.T, ln net.Listener, h *handler.Handler) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	ctx := context.Background()
	pkt, err := h.ReceiveOne(ctx, conn, r, time.Second, emptyPipeline())
	if err != nil {
		return
	}
	resp := marshaller.Payload{
		"response": nil,
		"code":     int(errors.CodeFor(errors.KindCommandNotFound)),
		"tb":       message.EncodeTraceback("no such command: ping"),
		"tb_type":  string(errors.KindCommandNotFound),
	}
	h.SendOne(ctx, conn, pkt.TxID, nil, resp, false, emptyPipeline())
}

func testHandler() *handler.Handler {
	return handler.New("json", handler.NewJSONHeaderCodec(), marshaller.NewJSON(), handler.DefaultConfig())
}

func TestProxyConnectAndQuestion(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h := testHandler()
	go serveOneEcho(t, ln, h)

	p := New(ln.Addr().String(), h, nil)
	ctx := context.Background()
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Disconnect()

	resp, err := p.Question(ctx, "ping", nil, nil)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if resp.Response != "pong" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestQuestionRaisesErrorForTraceback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h := testHandler()
	go serveOneFailure(t, ln, h)

	p := New(ln.Addr().String(), h, nil)
	ctx := context.Background()
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Disconnect()

	_, err = p.Question(ctx, "ping", nil, nil)
	if err == nil {
		t.Fatal("expected an error for a traceback-carrying response")
	}
	fe, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if fe.Kind != errors.KindCommandNotFound {
		t.Fatalf("expected kind %q, got %q", errors.KindCommandNotFound, fe.Kind)
	}
}

func TestProxyConnectFailsAfterRetries(t *testing.T) {
	h := testHandler()
	// Nothing listens on this port.
	p := New("127.0.0.1:1", h, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.Connect(ctx); err == nil {
		t.Fatal("expected connect to fail")
	}
}

func TestTimedQuestionDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h := testHandler()
	// Accept the connection but never answer, forcing the deadline to fire.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(500 * time.Millisecond)
	}()

	p := New(ln.Addr().String(), h, nil)
	ctx := context.Background()
	if err := p.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Disconnect()

	_, err = p.TimedQuestion(ctx, 50*time.Millisecond, "ping", nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
