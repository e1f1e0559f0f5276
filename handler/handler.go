// Package handler drives the framing protocol shared by every wire
// dialect: separating header bytes from body bytes on the socket, and
// running one connection's receive/respond loop. A Handler is
// configured with a HeaderCodec (Simple, JSON, or XML) and a
// marshaller.Marshaller for the body; the server binds one Handler per
// listening port.
//
// Grounded on the teacher's internal/broker connection-handling loop
// (github.com/tenzoki/agen/cellorg), generalized from its
// newline-delimited JSON-RPC framing to this framework's
// header/delimiter/body wire format.
package handler

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"time"

	"github.com/wgnet/clacks/adapter"
	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// Delimiter separates header bytes from body bytes on the wire.
var Delimiter = []byte{0x0D, 0x0A, 0x0D, 0x0A}

// Config tunes the framing protocol's timeouts and limits. The zero
// value is not usable; build one with DefaultConfig.
type Config struct {
	// ReadTimeout bounds each individual socket read.
	ReadTimeout time.Duration
	// IdleTimeout is the idle lifetime of a connection between packets.
	// ReceiveOne takes its idle bound as an argument and does not read
	// this field.
	IdleTimeout time.Duration
	// ChunkSize bounds how many body bytes are requested from the
	// kernel per read(2) call.
	ChunkSize int
	// MaxHeaderBytes bounds how many bytes the header scan will
	// consume before giving up and closing the connection; guards
	// against a peer that never sends the delimiter.
	MaxHeaderBytes int
}

// DefaultConfig returns the specification's reference tuning.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    2 * time.Second,
		IdleTimeout:    30 * time.Second,
		ChunkSize:      16384,
		MaxHeaderBytes: 1 << 20,
	}
}

// Handler frames packets for one wire dialect, pairing a HeaderCodec
// with a body marshaller.Marshaller.
type Handler struct {
	name       string
	headers    HeaderCodec
	marshaller marshaller.Marshaller
	cfg        Config
}

// New builds a Handler. name identifies the dialect (e.g. "simple",
// "json", "xml") for logging and registry lookup; it need not match
// either the header codec's or the marshaller's own Name().
func New(name string, headers HeaderCodec, m marshaller.Marshaller, cfg Config) *Handler {
	return &Handler{name: name, headers: headers, marshaller: m, cfg: cfg}
}

// Name identifies this handler's dialect.
func (h *Handler) Name() string { return h.name }

// Marshaller returns the body marshaller this handler was built with.
func (h *Handler) Marshaller() marshaller.Marshaller { return h.marshaller }

// Packet is one fully-decoded wire packet: a header plus a decoded
// payload. ReceiveOne returns one; SendOne consumes one.
type Packet struct {
	TxID    message.TxID
	Header  message.Header
	Payload marshaller.Payload
}

// ReceiveOne reads one framed packet from r, firing the receive-side
// adapter hooks at each boundary. r must be a *bufio.Reader wrapping
// conn so that any bytes read past the header (while scanning for the
// delimiter) remain available to the body read.
//
// idleTimeout bounds only the wait for the very first header byte — a
// connection legitimately sits idle between packets. Once that first
// byte arrives the connection is mid-packet, and every subsequent read
// (the rest of the header, then the body) is bounded by the handler's
// shorter configured ReadTimeout instead.
func (h *Handler) ReceiveOne(ctx context.Context, conn net.Conn, r *bufio.Reader, idleTimeout time.Duration, pipeline *adapter.Pipeline) (*Packet, error) {
	txid := message.NewTxID()
	pipeline.FireHandlerPreReceiveHeader(ctx, txid)

	headerBytes, err := h.scanHeader(conn, r, idleTimeout)
	if err != nil {
		return nil, err
	}

	header, err := h.headers.DecodeHeader(headerBytes)
	if err != nil {
		return nil, errors.Wrap(errors.KindBadHeader, err, "decode header")
	}
	pipeline.FireHandlerPostReceiveHeader(ctx, txid, header)

	contentLength := header.Int("Content-Length")
	pipeline.FireHandlerPreReceiveContent(ctx, txid, header)

	var body []byte
	if contentLength > 0 {
		body, err = h.readBody(conn, r, contentLength)
		if err != nil {
			return nil, err
		}
	}

	pipeline.FireMarshallerPreDecodePackage(ctx, txid, header)
	payload, err := h.marshaller.Decode(txid, header, body)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnmarshalError, err, "decode body")
	}
	pipeline.FireMarshallerPostDecodePackage(ctx, txid, header, payload)

	pipeline.FireHandlerPostReceiveContent(ctx, txid, header, body)

	return &Packet{TxID: txid, Header: header, Payload: payload}, nil
}

// scanHeader reads one byte at a time until the trailing four bytes
// equal Delimiter, returning the header bytes with the delimiter
// stripped. Per the specification, the scan may buffer ahead so long
// as surplus bytes stay available to the body read; reading via r
// (the connection's one shared *bufio.Reader) satisfies that.
func (h *Handler) scanHeader(conn net.Conn, r *bufio.Reader, idleTimeout time.Duration) ([]byte, error) {
	var buf bytes.Buffer
	for {
		if h.cfg.MaxHeaderBytes > 0 && buf.Len() > h.cfg.MaxHeaderBytes {
			return nil, errors.New(errors.KindBadHeader, "header exceeds %d bytes without a delimiter", h.cfg.MaxHeaderBytes)
		}
		deadline := h.cfg.ReadTimeout
		if buf.Len() == 0 {
			deadline = idleTimeout
		}
		conn.SetReadDeadline(time.Now().Add(deadline))
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(b)
		if buf.Len() >= len(Delimiter) && bytes.Equal(buf.Bytes()[buf.Len()-len(Delimiter):], Delimiter) {
			return buf.Bytes()[:buf.Len()-len(Delimiter)], nil
		}
	}
}

// readBody reads exactly n bytes in chunks no larger than
// cfg.ChunkSize, refreshing the read deadline before each chunk so a
// slow-but-steady sender is not penalized for the whole body's
// transfer time.
func (h *Handler) readBody(conn net.Conn, r *bufio.Reader, n int) ([]byte, error) {
	body := make([]byte, n)
	read := 0
	for read < n {
		want := n - read
		if h.cfg.ChunkSize > 0 && want > h.cfg.ChunkSize {
			want = h.cfg.ChunkSize
		}
		conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		got, err := io.ReadFull(r, body[read:read+want])
		read += got
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// SendOne encodes payload and writes one framed packet to conn. header
// should be the response's own header_data (before framing fields are
// added); SendOne fills in Content-Length, Connection, and
// Accept-Encoding itself. keepAlive controls whether Connection:
// keep-alive is set on the outgoing header.
//
// handler_pre_respond is fired before the payload is encoded (not
// strictly "after transmission" as a literal reading of the wire
// protocol implies) so that stock adapters — GNUTerryPratchett
// injecting a header key, Profiling attaching its summary to the
// payload — can actually influence the bytes that go over the wire.
// See DESIGN.md for this resolution.
func (h *Handler) SendOne(ctx context.Context, conn net.Conn, txid message.TxID, header message.Header, payload marshaller.Payload, keepAlive bool, pipeline *adapter.Pipeline) error {
	out := header.Clone()
	if out == nil {
		out = message.Header{}
	}

	pipeline.FireHandlerPreCompileBuffer(ctx, txid, payload)
	pipeline.FireHandlerPreRespond(ctx, txid, out, payload)

	body, encodeErr := h.encodeWithFallback(txid, payload, pipeline)

	out["Content-Length"] = len(body)
	if keepAlive {
		out["Connection"] = "keep-alive"
	}
	if _, ok := out["Accept-Encoding"]; !ok {
		out["Accept-Encoding"] = h.marshaller.Name()
	}

	headerBytes, err := h.headers.EncodeHeader(out)
	if err != nil {
		return errors.Wrap(errors.KindBadHeader, err, "encode outgoing header")
	}

	conn.SetWriteDeadline(time.Now().Add(h.cfg.ReadTimeout))
	if _, err := conn.Write(append(append(headerBytes, Delimiter...), body...)); err != nil {
		return err
	}

	pipeline.FireHandlerPostCompileBuffer(ctx, txid, payload)
	pipeline.FireHandlerPostRespond(ctx, txid, out)

	if encodeErr != nil {
		return encodeErr
	}
	return nil
}

// encodeWithFallback encodes payload, substituting a synthetic 502
// diagnostic response if the marshaller itself fails. It returns the
// body bytes to send either way, plus the original error (if any) for
// the caller to log — the connection still gets a well-formed packet.
func (h *Handler) encodeWithFallback(txid message.TxID, payload marshaller.Payload, pipeline *adapter.Pipeline) ([]byte, error) {
	pipeline.FireMarshallerPreEncodePackage(context.Background(), txid, payload)
	body, err := h.marshaller.Encode(txid, payload)
	if err == nil {
		pipeline.FireMarshallerPostEncodePackage(context.Background(), txid, payload, body)
		return body, nil
	}

	marshalErr := errors.Wrap(errors.KindMarshalError, err, "encode response payload")
	fallback := marshaller.Payload{
		"response": marshalErr.Error(),
		"code":     int(errors.MarshalError),
	}
	fallbackBody, fallbackErr := h.marshaller.Encode(txid, fallback)
	if fallbackErr != nil {
		return nil, errors.Wrap(errors.KindMarshalError, fallbackErr, "encode fallback response after marshal failure")
	}
	return fallbackBody, marshalErr
}
