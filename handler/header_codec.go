package handler

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// HeaderCodec encodes and decodes the header half of a wire packet. The
// framework ships three reference dialects: Simple, JSON, and XML.
type HeaderCodec interface {
	Name() string
	EncodeHeader(h message.Header) ([]byte, error)
	DecodeHeader(b []byte) (message.Header, error)
}

// SimpleHeaderCodec reuses the line-oriented Simple marshaller's wire
// format for headers, since the specification defines them identically.
type SimpleHeaderCodec struct {
	codec marshaller.Simple
}

// NewSimpleHeaderCodec returns the Simple header dialect.
func NewSimpleHeaderCodec() SimpleHeaderCodec {
	return SimpleHeaderCodec{codec: marshaller.NewSimple()}
}

func (SimpleHeaderCodec) Name() string { return "simple" }

func (c SimpleHeaderCodec) EncodeHeader(h message.Header) ([]byte, error) {
	return c.codec.Encode("", marshaller.Payload(h))
}

func (c SimpleHeaderCodec) DecodeHeader(b []byte) (message.Header, error) {
	p, err := c.codec.Decode("", nil, b)
	if err != nil {
		return nil, err
	}
	return message.Header(p), nil
}

// JSONHeaderCodec renders the header as a JSON object.
type JSONHeaderCodec struct {
	codec marshaller.JSON
}

// NewJSONHeaderCodec returns the JSON header dialect.
func NewJSONHeaderCodec() JSONHeaderCodec {
	return JSONHeaderCodec{codec: marshaller.NewJSON()}
}

func (JSONHeaderCodec) Name() string { return "json" }

func (c JSONHeaderCodec) EncodeHeader(h message.Header) ([]byte, error) {
	return c.codec.Encode("", marshaller.Payload(h))
}

func (c JSONHeaderCodec) DecodeHeader(b []byte) (message.Header, error) {
	p, err := c.codec.Decode("", nil, b)
	if err != nil {
		return nil, err
	}
	return message.Header(p), nil
}

// XMLHeaderCodec renders the header as a flat <root><k>v</k>...</root>
// tree. XML has no native type tags for a flat key/value leaf, so on
// decode each leaf's text is speculatively parsed as int64, then bool,
// then float64, falling back to string; see DESIGN.md for why this
// ambiguity is resolved this way rather than guessed differently.
type XMLHeaderCodec struct{}

// NewXMLHeaderCodec returns the XML header dialect.
func NewXMLHeaderCodec() XMLHeaderCodec { return XMLHeaderCodec{} }

func (XMLHeaderCodec) Name() string { return "xml" }

func (XMLHeaderCodec) EncodeHeader(h message.Header) ([]byte, error) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("<root>")
	for _, k := range keys {
		if !xml.IsName([]byte(k)) {
			return nil, fmt.Errorf("xml header codec: %q is not a legal element name", k)
		}
		fmt.Fprintf(&buf, "<%s>", k)
		if err := xml.EscapeText(&buf, []byte(fmt.Sprint(h[k]))); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "</%s>", k)
	}
	buf.WriteString("</root>")
	return buf.Bytes(), nil
}

func (XMLHeaderCodec) DecodeHeader(b []byte) (message.Header, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	out := make(message.Header)

	var currentKey string
	var text bytes.Buffer
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				currentKey = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				out[currentKey] = parseXMLLeaf(text.String())
			}
			depth--
		}
	}
	return out, nil
}

func parseXMLLeaf(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
