package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/scriptbots/config"
)

// csvLog is an append-only CSV file. The header goes out with the first row.
type csvLog struct {
	f      *os.File
	header bool
}

func openCSV(path string) (*csvLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &csvLog{f: f}, nil
}

func appendRow[T any](l *csvLog, row T) error {
	rows := []T{row}
	if l.header {
		return gocsv.MarshalWithoutHeaders(rows, l.f)
	}
	if err := gocsv.Marshal(rows, l.f); err != nil {
		return err
	}
	l.header = true
	return nil
}

// OutputManager writes one experiment's files into a directory:
// telemetry.csv, perf.csv, bookmarks.csv, census.parquet and config.yaml.
// A nil *OutputManager discards everything.
type OutputManager struct {
	dir       string
	telemetry *csvLog
	perf      *csvLog
	bookmarks *csvLog
	census    *CensusWriter
}

// NewOutputManager creates dir and opens the output files. An empty dir
// disables output and returns nil.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	logs := []struct {
		name string
		dst  **csvLog
	}{
		{"telemetry.csv", &om.telemetry},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
	}
	for _, l := range logs {
		c, err := openCSV(filepath.Join(dir, l.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", l.name, err)
		}
		*l.dst = c
	}

	cw, err := NewCensusWriter(filepath.Join(dir, "census.parquet"))
	if err != nil {
		om.Close()
		return nil, fmt.Errorf("creating census.parquet: %w", err)
	}
	om.census = cw
	return om, nil
}

// WriteConfig saves cfg as config.yaml next to the other outputs.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a stats window.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := appendRow(om.telemetry, stats); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf appends the perf summary of the window ending at windowEnd.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	if err := appendRow(om.perf, stats.ToCSV(windowEnd)); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark appends a bookmark.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := appendRow(om.bookmarks, b); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteCensus appends one row per living agent to census.parquet.
func (om *OutputManager) WriteCensus(rows []CensusRow) error {
	if om == nil {
		return nil
	}
	return om.census.Write(rows)
}

// Dir returns the output directory.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes the census and closes every file that was opened.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	if om.census != nil {
		errs = append(errs, om.census.Close())
	}
	for _, l := range []*csvLog{om.telemetry, om.perf, om.bookmarks} {
		if l != nil {
			errs = append(errs, l.f.Close())
		}
	}
	return errors.Join(errs...)
}
