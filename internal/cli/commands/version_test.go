package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute version: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "svindex v1.2.3") {
		t.Errorf("version output missing version string, got %q", out)
	}
}
