package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputManagerAppendsRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i, end := range []int64{1000, 2000} {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: end, Epoch: i}); err != nil {
			t.Fatal(err)
		}
		if err := om.WritePerf(PerfStats{}, end); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tests := []struct {
		file   string
		lines  int
		header string
	}{
		{"telemetry.csv", 3, "window_end"},
		{"perf.csv", 3, "p95_tick_us"},
		{"bookmarks.csv", 0, ""},
	}
	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tt.file))
		if err != nil {
			t.Fatalf("%s: %v", tt.file, err)
		}
		text := strings.TrimSpace(string(data))
		var lines []string
		if text != "" {
			lines = strings.Split(text, "\n")
		}
		if len(lines) != tt.lines {
			t.Errorf("%s has %d lines, want %d", tt.file, len(lines), tt.lines)
			continue
		}
		if tt.lines > 0 && !strings.Contains(lines[0], tt.header) {
			t.Errorf("%s header %q lacks %q", tt.file, lines[0], tt.header)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "census.parquet")); err != nil {
		t.Errorf("census file missing: %v", err)
	}
}

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteCensus(nil); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" || om.Close() != nil {
		t.Error("nil manager should be inert")
	}
}
