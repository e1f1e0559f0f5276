package handler

import (
	"testing"

	"github.com/wgnet/clacks/message"
)

func TestXMLHeaderCodecRoundTripsTypedLeaves(t *testing.T) {
	c := NewXMLHeaderCodec()
	in := message.Header{
		"count":        int64(42),
		"ratio":        3.25,
		"ok":           true,
		"nope":         false,
		"Content-Type": "text/xml",
	}

	encoded, err := c.EncodeHeader(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := c.DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.Int("count") != 42 {
		t.Fatalf("expected count 42, got %v (%T)", out["count"], out["count"])
	}
	if f, ok := out["ratio"].(float64); !ok || f != 3.25 {
		t.Fatalf("expected ratio 3.25 as float64, got %v (%T)", out["ratio"], out["ratio"])
	}
	if !out.Bool("ok") {
		t.Fatalf("expected ok=true, got %v", out["ok"])
	}
	if out.Bool("nope") {
		t.Fatalf("expected nope=false, got %v", out["nope"])
	}
	if out.String("Content-Type") != "text/xml" {
		t.Fatalf("expected Content-Type text/xml, got %v", out["Content-Type"])
	}
}

func TestXMLHeaderCodecDecodesEmptyHeader(t *testing.T) {
	c := NewXMLHeaderCodec()
	encoded, err := c.EncodeHeader(message.Header{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty header, got %v", out)
	}
}
