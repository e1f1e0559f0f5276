package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wgnet/clacks/message"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Infof("should not appear")
	l.Warnf("should appear: %d", 1)
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "should appear: 1") {
		t.Fatalf("expected warn message, got %q", out)
	}
}

func TestSetLevelChangesFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	if l.GetLevel() != "warn" {
		t.Fatalf("expected warn, got %s", l.GetLevel())
	}
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("expected debug message after lowering level")
	}
}

func TestCaptureScope(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	txid := message.NewTxID()

	l.CaptureWarn(txid, "uncaptured before scope opens is fine too")
	l.BeginCapture(txid)
	l.CaptureWarn(txid, "warn 1")
	l.CaptureError(txid, "err 1")
	warnings, errs := l.EndCapture(txid)

	if len(warnings) != 1 || warnings[0] != "warn 1" {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(errs) != 1 || errs[0] != "err 1" {
		t.Fatalf("unexpected errors: %v", errs)
	}

	// A second EndCapture on the same txid finds nothing: the scope is gone.
	warnings2, errs2 := l.EndCapture(txid)
	if warnings2 != nil || errs2 != nil {
		t.Fatalf("expected closed scope to yield nothing, got %v %v", warnings2, errs2)
	}
}

func TestCaptureIsolatedPerTxID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	a, b := message.NewTxID(), message.NewTxID()
	l.BeginCapture(a)
	l.BeginCapture(b)
	l.CaptureWarn(a, "for a")
	l.CaptureWarn(b, "for b")

	warnA, _ := l.EndCapture(a)
	warnB, _ := l.EndCapture(b)
	if len(warnA) != 1 || warnA[0] != "for a" {
		t.Fatalf("txid a leaked or missed: %v", warnA)
	}
	if len(warnB) != 1 || warnB[0] != "for b" {
		t.Fatalf("txid b leaked or missed: %v", warnB)
	}
}
