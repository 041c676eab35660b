package recon

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogWriters(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops, diag, trace bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag, Trace: &trace})

	Opsf("invalid polygon at level %d", 3)
	Diagf("radius %.4f", 0.0135)
	Tracef("repair step %d", 1)

	if !strings.Contains(ops.String(), "invalid polygon at level 3") {
		t.Errorf("ops output = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "radius 0.0135") {
		t.Errorf("diag output = %q", diag.String())
	}
	if !strings.Contains(trace.String(), "repair step 1") {
		t.Errorf("trace output = %q", trace.String())
	}
	if !strings.Contains(ops.String(), "[recon] ") {
		t.Errorf("ops output missing prefix: %q", ops.String())
	}
}

func TestLogStreamsDisabled(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops})

	// Diag and trace are nil and must not panic.
	Diagf("should not appear")
	Tracef("should not appear")
	if ops.Len() != 0 {
		t.Errorf("ops stream received unrelated output: %q", ops.String())
	}

	SetLogWriters(LogWriters{})
	Opsf("dropped")
	if ops.Len() != 0 {
		t.Errorf("disabled ops stream wrote %q", ops.String())
	}
}
