package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/wgnet/clacks/adapter"
	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/handler"
	"github.com/wgnet/clacks/internal/config"
	"github.com/wgnet/clacks/internal/logging"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

func testConfig(addr string) *config.Config {
	cfg := config.Default(addr)
	cfg.Admin.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, addr string) *Server {
	t.Helper()
	cfg := testConfig(addr)
	logger := logging.New(io.Discard, logging.LevelError)
	s, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.registry.Register("echo", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
		if len(args) > 0 {
			return args[0], nil
		}
		return nil, nil
	}); err != nil {
		t.Fatalf("register echo: %v", err)
	}
	return s
}

func runTestServer(t *testing.T, s *Server) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil {
			t.Errorf("server run: %v", err)
		}
	}()
	// Give the accept loop a moment to bind its listener.
	time.Sleep(50 * time.Millisecond)
	return func() {
		cancel()
		<-done
	}
}

func dialAndAsk(t *testing.T, addr string, h *handler.Handler, txid message.TxID, command string, keepAlive bool) *message.Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	header := message.Header{}
	if keepAlive {
		header["Connection"] = "keep-alive"
	}
	payload := marshaller.Payload{"command": command, "args": []any{"hello"}}
	pipeline := adapter.NewPipeline(nil)
	if err := h.SendOne(context.Background(), conn, txid, header, payload, keepAlive, pipeline); err != nil {
		t.Fatalf("send: %v", err)
	}
	r := bufio.NewReader(conn)
	pkt, err := h.ReceiveOne(context.Background(), conn, r, 2*time.Second, pipeline)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return &message.Response{
		Response: pkt.Payload["response"],
	}
}

func TestServerDispatchesQuestion(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := newTestServer(t, addr)
	stop := runTestServer(t, s)
	defer stop()

	h := handler.New("simple", handler.NewSimpleHeaderCodec(), marshaller.NewSimple(), handler.DefaultConfig())
	resp := dialAndAsk(t, addr, h, message.NewTxID(), "echo", false)
	if resp.Response != "hello" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestServerNonKeepAliveClosesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := newTestServer(t, addr)
	stop := runTestServer(t, s)
	defer stop()

	h := handler.New("simple", handler.NewSimpleHeaderCodec(), marshaller.NewSimple(), handler.DefaultConfig())
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pipeline := adapter.NewPipeline(nil)
	payload := marshaller.Payload{"command": "echo", "args": []any{"bye"}}
	if err := h.SendOne(context.Background(), conn, message.NewTxID(), message.Header{}, payload, false, pipeline); err != nil {
		t.Fatalf("send: %v", err)
	}
	r := bufio.NewReader(conn)
	if _, err := h.ReceiveOne(context.Background(), conn, r, 2*time.Second, pipeline); err != nil {
		t.Fatalf("receive: %v", err)
	}

	// The server should have closed its side after the non-keep-alive
	// response; a further read should observe EOF rather than hang.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != io.EOF {
		t.Fatalf("expected EOF after non-keep-alive response, got %v", err)
	}
}

func TestServerDisconnectClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := newTestServer(t, addr)
	stop := runTestServer(t, s)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	local := conn.LocalAddr().String()

	// Let the accept loop register the session before disconnecting it.
	time.Sleep(50 * time.Millisecond)
	if !s.DisconnectClient(local) {
		t.Fatalf("expected DisconnectClient to find session %s", local)
	}
	if s.DisconnectClient(local) {
		t.Fatalf("expected second DisconnectClient to report no session")
	}
}

func TestServerInterfaceNames(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := newTestServer(t, addr)
	names := s.InterfaceNames()
	found := false
	for _, n := range names {
		if n == "standard" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected standard interface in %v", names)
	}
}
