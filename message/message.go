// Package message defines the envelope types that travel over a clacks
// connection: the Question a client sends and the Response a server
// returns, plus the shared Header map and transaction identifier.
//
// Grounded on the teacher's internal/envelope package (github.com/
// tenzoki/agen/cellorg), which wraps every inter-agent message in a
// metadata envelope and mints its ID with github.com/google/uuid; the
// same choice is used here for transaction IDs.
package message

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/wgnet/clacks/errors"
)

// TxID is a transaction identifier: a 128-bit UUID rendered as text,
// assigned by the receiving side the moment a header begins to arrive.
type TxID string

// NewTxID mints a fresh, globally unique transaction ID.
func NewTxID() TxID {
	return TxID(uuid.NewString())
}

// Header carries framing metadata (Content-Length, Accept-Encoding,
// Connection) and adapter-injected keys (X-Clacks-Overhead, ...). Values
// are restricted on the wire to string, int, or bool; Header itself is
// permissive so application code can stash any primitive and let the
// marshaller normalize it on encode.
type Header map[string]any

// Clone returns a shallow copy of h, safe to hand to a different
// transaction without aliasing the original map.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// String returns the string value of key, or "" if absent or not a string.
func (h Header) String(key string) string {
	v, _ := h[key].(string)
	return v
}

// Int returns the int value of key, or 0 if absent or not an int.
func (h Header) Int(key string) int {
	switch v := h[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the bool value of key, or false if absent.
func (h Header) Bool(key string) bool {
	v, _ := h[key].(bool)
	return v
}

// KeepAlive reports whether this package requested a persistent
// connection via the Connection header.
func (h Header) KeepAlive() bool {
	return strings.EqualFold(h.String("Connection"), "keep-alive")
}

// AcceptEncoding returns the package's preferred response encoding,
// defaulting to JSON text per the specification.
func (h Header) AcceptEncoding() string {
	if v := h.String("Accept-Encoding"); v != "" {
		return v
	}
	return "text/json"
}

// Question is a client-to-server packet naming a command and its
// arguments.
type Question struct {
	Header  Header
	Command string
	Args    []any
	Kwargs  map[string]any
}

// Validate rejects an ill-formed Question: an empty command name is
// BadQuestion (wire code 504).
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Command) == "" {
		return errors.New(errors.KindBadQuestion, "question has an empty command")
	}
	return nil
}

// KeepAlive reports whether the sender requested a persistent connection.
func (q *Question) KeepAlive() bool {
	if q.Header == nil {
		return false
	}
	return q.Header.KeepAlive()
}

// Response is a server-to-client packet carrying a result or diagnostic.
type Response struct {
	Header        Header
	Response      any
	Code          errors.Code
	Traceback     string // hex-encoded textual rendering of the triggering error
	TracebackType string // registry key naming the error kind
	Warnings      []string
	Errors        []string
	Info          map[string]any
}

// NewResponse builds a successful (code 200) Response wrapping value.
func NewResponse(value any) *Response {
	return &Response{Response: value, Code: errors.OK}
}

// NewErrorResponse builds a Response describing err, mapping its Kind
// (if any) to a wire code and hex-encoding its textual rendering into
// Traceback, per the framework's traceback convention.
func NewErrorResponse(err error) *Response {
	kind := errors.KindUnhandled
	code := errors.CodeFor(kind)
	if fe, ok := err.(*errors.Error); ok {
		kind = fe.Kind
		code = fe.Code()
	}
	return &Response{
		Code:          code,
		Traceback:     EncodeTraceback(err.Error()),
		TracebackType: string(kind),
	}
}

// EncodeTraceback hex-encodes an error's textual rendering for wire
// transport. The framework never attempts to reconstruct a structured
// stack across the wire; this is an opaque diagnostic string.
func EncodeTraceback(text string) string {
	return hex.EncodeToString([]byte(text))
}

// DecodeTraceback reverses EncodeTraceback, returning "" on malformed input.
func DecodeTraceback(encoded string) string {
	b, err := hex.DecodeString(encoded)
	if err != nil {
		return ""
	}
	return string(b)
}

// HasError reports whether r carries a traceback. A response without
// one can still have a code other than 200 (e.g. 201 Deprecated).
func (r *Response) HasError() bool {
	return r.Traceback != ""
}

// AddWarning appends a warning string to the response.
func (r *Response) AddWarning(format string) {
	r.Warnings = append(r.Warnings, format)
}
