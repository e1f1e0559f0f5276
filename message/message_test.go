package message

import (
	"strings"
	"testing"

	"github.com/wgnet/clacks/errors"
)

func TestNewTxIDUnique(t *testing.T) {
	seen := make(map[TxID]bool)
	for i := 0; i < 1000; i++ {
		id := NewTxID()
		if seen[id] {
			t.Fatalf("duplicate txid %s", id)
		}
		seen[id] = true
	}
}

func TestQuestionValidateEmptyCommand(t *testing.T) {
	q := &Question{Command: ""}
	err := q.Validate()
	if err == nil {
		t.Fatal("expected error for empty command")
	}
	fe, ok := err.(*errors.Error)
	if !ok || fe.Kind != errors.KindBadQuestion {
		t.Fatalf("expected KindBadQuestion, got %v", err)
	}
	if fe.Code() != errors.BadQuestion {
		t.Fatalf("expected code 504, got %d", fe.Code())
	}
}

func TestQuestionValidateOK(t *testing.T) {
	q := &Question{Command: "echo"}
	if err := q.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHeaderKeepAlive(t *testing.T) {
	h := Header{"Connection": "keep-alive"}
	if !h.KeepAlive() {
		t.Fatal("expected keep-alive true")
	}
	h2 := Header{}
	if h2.KeepAlive() {
		t.Fatal("expected keep-alive false for empty header")
	}
}

func TestHeaderAcceptEncodingDefault(t *testing.T) {
	h := Header{}
	if got := h.AcceptEncoding(); got != "text/json" {
		t.Fatalf("expected default text/json, got %q", got)
	}
	h2 := Header{"Accept-Encoding": "text/simple"}
	if got := h2.AcceptEncoding(); got != "text/simple" {
		t.Fatalf("expected text/simple, got %q", got)
	}
}

func TestNewErrorResponseMapsKindToCode(t *testing.T) {
	err := errors.New(errors.KindCommandNotFound, "no such command: %s", "bogus")
	resp := NewErrorResponse(err)
	if resp.Code != errors.NotFound {
		t.Fatalf("expected code 404, got %d", resp.Code)
	}
	if resp.TracebackType != string(errors.KindCommandNotFound) {
		t.Fatalf("unexpected traceback type %q", resp.TracebackType)
	}
	if !resp.HasError() {
		t.Fatal("expected HasError true")
	}
	decoded := DecodeTraceback(resp.Traceback)
	if !strings.Contains(decoded, "bogus") {
		t.Fatalf("decoded traceback missing detail: %q", decoded)
	}
}

func TestCodeOKIffNoTraceback(t *testing.T) {
	ok := NewResponse("hi")
	if ok.HasError() {
		t.Fatal("fresh response should have no traceback")
	}
	if ok.Code != errors.OK {
		t.Fatalf("expected 200, got %d", ok.Code)
	}
}
