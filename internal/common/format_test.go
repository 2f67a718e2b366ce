package common

import (
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to open pipe: %v", err)
	}
	os.Stdout = w
	fn()
	os.Stdout = orig
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close pipe: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read pipe: %v", err)
	}
	return string(data)
}

func TestBoxPrefix(t *testing.T) {
	if got := BoxPrefix(false); got != "│  " {
		t.Errorf("Expected mid-row gutter, got %q", got)
	}
	if got := BoxPrefix(true); got != "└  " {
		t.Errorf("Expected last-row gutter, got %q", got)
	}
}

func TestPrintHeaderAndFooter(t *testing.T) {
	out := captureStdout(t, func() {
		PrintHeader("REPORT", 10)
		PrintBoxSeparator(10)
		PrintFooter("DONE", 10)
	})

	rule := strings.Repeat("=", 10)
	if strings.Count(out, rule) != 4 {
		t.Errorf("Expected 4 full-width rules, got %d in %q", strings.Count(out, rule), out)
	}
	if !strings.Contains(out, "REPORT") || !strings.Contains(out, "DONE") {
		t.Errorf("Missing title or summary in %q", out)
	}
	if !strings.Contains(out, "├"+strings.Repeat("─", 10)) {
		t.Errorf("Missing box separator in %q", out)
	}
}
