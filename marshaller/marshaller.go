// Package marshaller converts a package payload to and from bytes.
//
// The framework ships two reference encodings (Simple and JSON); a
// server's handler is configured with one. Grounded on the teacher's
// use of encoding/json throughout internal/broker and internal/client
// (github.com/tenzoki/agen/cellorg) for wire payloads.
package marshaller

import (
	"github.com/wgnet/clacks/message"
)

// Payload is the wire-level representation of a Question or Response:
// a flat map of field name to value, the shape both reference
// marshallers encode and decode. Handler and server code translate
// between Payload and the richer message.Question / message.Response
// types.
type Payload map[string]any

// Marshaller encodes and decodes a Payload. Implementations must be
// safe for concurrent use by multiple goroutines (handlers share one
// Marshaller across every connection they serve).
type Marshaller interface {
	// Name identifies this marshaller, e.g. for Accept-Encoding matching.
	Name() string
	// Encode renders payload as bytes for transmission.
	Encode(txid message.TxID, payload Payload) ([]byte, error)
	// Decode parses previously-encoded bytes back into a Payload.
	Decode(txid message.TxID, header message.Header, data []byte) (Payload, error)
}

// Registry is a constructor-time map from marshaller name to instance,
// per the framework's "global registries become explicit, wired-in-config
// dependencies" design rule: a server is handed a Registry rather than
// reaching into a package-level global.
type Registry map[string]Marshaller

// NewRegistry builds a Registry from the given marshallers, keyed by
// their own Name().
func NewRegistry(marshallers ...Marshaller) Registry {
	r := make(Registry, len(marshallers))
	for _, m := range marshallers {
		r[m.Name()] = m
	}
	return r
}

// Get looks up a marshaller by name.
func (r Registry) Get(name string) (Marshaller, bool) {
	m, ok := r[name]
	return m, ok
}
