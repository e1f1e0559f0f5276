package marshaller

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wgnet/clacks/message"
)

func TestSimpleRoundTrip(t *testing.T) {
	m := NewSimple()
	txid := message.NewTxID()
	payload := Payload{
		"command": "echo",
		"args":    []any{"hi", int64(1)},
		"kwargs":  map[string]any{"x": int64(2)},
		"flag":    true,
		"absent":  nil,
		"pi":      3.5,
	}
	encoded, err := m.Encode(txid, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := m.Decode(txid, nil, encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(payload, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSimpleRoundTripUnicodeAndSlashes(t *testing.T) {
	m := NewSimple()
	txid := message.NewTxID()
	tricky := "has/a/slash\nand a newline and é中文"
	payload := Payload{"s": tricky}
	encoded, err := m.Encode(txid, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := m.Decode(txid, nil, encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["s"] != tricky {
		t.Fatalf("round trip mismatch: got %q want %q", decoded["s"], tricky)
	}
}

func TestSimpleEmptyPayload(t *testing.T) {
	m := NewSimple()
	txid := message.NewTxID()
	encoded, err := m.Encode(txid, Payload{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != 0 {
		t.Fatalf("expected empty body, got %q", encoded)
	}
	decoded, err := m.Decode(txid, nil, encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty payload, got %v", decoded)
	}
}

func TestSimpleUnknownTypeFails(t *testing.T) {
	m := NewSimple()
	type weird struct{}
	_, err := m.Encode(message.NewTxID(), Payload{"x": weird{}})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := NewJSON()
	txid := message.NewTxID()
	payload := Payload{"command": "echo", "code": float64(200)}
	encoded, err := m.Encode(txid, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := m.Decode(txid, nil, encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(payload, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONSortedKeys(t *testing.T) {
	m := NewJSON()
	encoded, err := m.Encode(message.NewTxID(), Payload{"z": 1.0, "a": 2.0, "m": 3.0})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"a":2,"m":3,"z":1}`
	if string(encoded) != want {
		t.Fatalf("expected sorted keys %q, got %q", want, encoded)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewSimple(), NewJSON())
	if _, ok := r.Get("text/simple"); !ok {
		t.Fatal("expected text/simple registered")
	}
	if _, ok := r.Get("text/json"); !ok {
		t.Fatal("expected text/json registered")
	}
	if _, ok := r.Get("text/xml"); ok {
		t.Fatal("did not expect text/xml registered")
	}
}
