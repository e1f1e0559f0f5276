// Package client implements Proxy, the counterpart to package server:
// a persistent connection to one clacks server that sends Questions and
// waits for their Responses.
//
// Connection setup is grounded on the teacher's internal/client/broker.go
// (github.com/tenzoki/agen/cellorg) Connect/Disconnect pair — net.Dial
// plus an explicit mutex-guarded connection field — generalized with a
// bounded retry loop for the initial dial, since a clacks client is
// expected to tolerate a server that has not finished starting yet.
package client

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/wgnet/clacks/adapter"
	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/handler"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// connectRetries is the number of dial attempts Connect makes before
// giving up, per the specification's client proxy section.
const connectRetries = 5

// responseIdleTimeout bounds how long Question waits for the first
// byte of a response before giving up; a real deadline set by the
// caller's context (TimedQuestion, or a caller-cancelled ctx) always
// takes priority since ReceiveOne's read deadlines are refreshed per
// byte, not derived from ctx.
const responseIdleTimeout = 30 * time.Second

// Proxy is one client's connection to a clacks server. A Proxy is not
// safe for concurrent Question calls on the same connection — the
// handler framing protocol has no request ID that would let two
// in-flight questions share a socket without their responses getting
// swapped — so Proxy serializes them with an internal mutex instead of
// documenting the restriction away.
type Proxy struct {
	addr     string
	handler  *handler.Handler
	pipeline *adapter.Pipeline

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// New builds a Proxy that will dial addr and speak h's wire dialect.
// pipeline may be nil, in which case an empty one is used.
func New(addr string, h *handler.Handler, pipeline *adapter.Pipeline) *Proxy {
	if pipeline == nil {
		pipeline = adapter.NewPipeline(nil)
	}
	return &Proxy{addr: addr, handler: h, pipeline: pipeline}
}

// Connect dials the server, retrying with linear backoff up to
// connectRetries times. It is idempotent: calling Connect while already
// connected closes the old connection first.
func (p *Proxy) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}

	var lastErr error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", p.addr)
		if err == nil {
			p.conn = conn
			p.r = bufio.NewReader(conn)
			return nil
		}
		lastErr = err
		if attempt == connectRetries {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Wrap(errors.KindClientConnectionFailed, lastErr, "connect to %s after %d attempts", p.addr, connectRetries)
}

// Disconnect closes the underlying connection, if any.
func (p *Proxy) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	p.r = nil
	return err
}

// Question sends command with args/kwargs and blocks for its Response.
// The question is sent with Connection: keep-alive and the connection
// is kept open afterward; Question never closes it. A Response
// carrying a non-empty traceback is both returned and re-raised as an
// error whose Kind is looked up from the response's TracebackType, so a
// caller that only checks the error still sees the failure.
func (p *Proxy) Question(ctx context.Context, command string, args []any, kwargs map[string]any) (*message.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil, errors.New(errors.KindClientConnectionFailed, "not connected")
	}

	txid := message.NewTxID()
	payload := marshaller.Payload{"command": command}
	if args != nil {
		payload["args"] = args
	}
	if kwargs != nil {
		payload["kwargs"] = kwargs
	}

	header := message.Header{"Connection": "keep-alive"}
	if err := p.handler.SendOne(ctx, p.conn, txid, header, payload, true, p.pipeline); err != nil {
		return nil, err
	}

	idleTimeout := responseIdleTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < idleTimeout {
			idleTimeout = remaining
		}
	}
	pkt, err := p.handler.ReceiveOne(ctx, p.conn, p.r, idleTimeout, p.pipeline)
	if err != nil {
		return nil, err
	}
	resp := payloadToResponse(pkt.Payload)
	if resp.Traceback != "" {
		kind := errors.KindFromKey(resp.TracebackType)
		return resp, errors.New(kind, "%s", message.DecodeTraceback(resp.Traceback))
	}
	return resp, nil
}

// TimedQuestion is Question bounded by timeout, via a derived context
// deadline rather than a sleep-poll loop.
func (p *Proxy) TimedQuestion(ctx context.Context, timeout time.Duration, command string, args []any, kwargs map[string]any) (*message.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := p.Question(ctx, command, args, kwargs)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return nil, errors.Wrap(errors.KindTimeout, err, "question %q timed out after %s", command, timeout)
	}
	return resp, err
}

func payloadToResponse(p marshaller.Payload) *message.Response {
	r := &message.Response{Response: p["response"]}
	if code, ok := p["code"].(float64); ok {
		r.Code = errors.Code(int(code))
	} else if code, ok := p["code"].(int); ok {
		r.Code = errors.Code(code)
	}
	if tb, ok := p["tb"].(string); ok {
		r.Traceback = tb
	}
	if tt, ok := p["tb_type"].(string); ok {
		r.TracebackType = tt
	}
	r.Warnings = toStringSlice(p["warnings"])
	r.Errors = toStringSlice(p["errors"])
	if info, ok := p["info"].(map[string]any); ok {
		r.Info = info
	}
	return r
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
