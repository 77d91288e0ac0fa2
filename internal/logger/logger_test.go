package logger

import (
	"bytes"
	"os"
	"testing"
)

// capture redirects output for one test and restores the defaults after.
func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Fatal("expected verbose to be false")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Fatal("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		log     func(string, ...any)
		verbose bool
		want    string
	}{
		{"debug verbose", Debug, true, "[DEBUG] batch 3 of 7\n"},
		{"debug quiet", Debug, false, ""},
		{"info verbose", Info, true, "[INFO] batch 3 of 7\n"},
		{"info quiet", Info, false, ""},
		{"warn verbose", Warn, true, "[WARN] batch 3 of 7\n"},
		{"warn quiet", Warn, false, ""},
		{"error verbose", Error, true, "[ERROR] batch 3 of 7\n"},
		{"error quiet", Error, false, "[ERROR] batch 3 of 7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose)
			tt.log("batch %d of %d", 3, 7)
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, true)
	Section("Extract")
	if got := buf.String(); got != "\n=== Extract ===\n" {
		t.Errorf("unexpected section output: %q", got)
	}
}

func TestSection_Quiet(t *testing.T) {
	buf := capture(t, false)
	Section("Extract")
	if buf.Len() > 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestLevel_String(t *testing.T) {
	if got := Level(9).String(); got != "LEVEL(9)" {
		t.Errorf("got %q", got)
	}
	if got := LevelWarn.String(); got != "WARN" {
		t.Errorf("got %q", got)
	}
}
