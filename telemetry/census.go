package telemetry

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// CensusRow is one living agent observed at the end of a stats window.
type CensusRow struct {
	WindowEnd  int64   `parquet:"window_end"`
	Epoch      int32   `parquet:"epoch"`
	ID         uint32  `parquet:"id"`
	Lineage    string  `parquet:"lineage"`
	Generation int32   `parquet:"generation"`
	Age        int32   `parquet:"age"`
	Hybrid     bool    `parquet:"hybrid"`
	Herbivore  float32 `parquet:"herbivore"`
	Health     float32 `parquet:"health"`
	X          float32 `parquet:"x"`
	Y          float32 `parquet:"y"`
	Spike      float32 `parquet:"spike"`
	MutRate1   float32 `parquet:"mut_rate1"`
	MutRate2   float32 `parquet:"mut_rate2"`
	Hits       int32   `parquet:"hits"`
	Kills      int32   `parquet:"kills"`
	Children   int32   `parquet:"children"`
	Shared     float32 `parquet:"shared"`
	Grazed     float32 `parquet:"grazed"`
}

// CensusWriter appends census rows to a zstd-compressed parquet file.
type CensusWriter struct {
	path   string
	file   *os.File
	writer *parquet.GenericWriter[CensusRow]
	rows   int
}

// NewCensusWriter creates (truncating) the parquet file at path.
func NewCensusWriter(path string) (*CensusWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open census parquet: %w", err)
	}

	w := parquet.NewGenericWriter[CensusRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "agent_census_v1")

	return &CensusWriter{path: path, file: f, writer: w}, nil
}

// Write appends rows. Each call ends a row group so a crash loses at most
// the current window.
func (c *CensusWriter) Write(rows []CensusRow) error {
	if c.writer == nil {
		return fmt.Errorf("census writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := c.writer.Write(rows); err != nil {
		return fmt.Errorf("writing census: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("flushing census: %w", err)
	}
	c.rows += len(rows)
	return nil
}

// Rows returns the number of rows written so far.
func (c *CensusWriter) Rows() int { return c.rows }

// Path returns the output file path.
func (c *CensusWriter) Path() string { return c.path }

// Close finalizes the parquet footer and closes the file.
func (c *CensusWriter) Close() error {
	if c.writer == nil && c.file == nil {
		return nil
	}

	var closeErr error
	if c.writer != nil {
		closeErr = c.writer.Close()
		c.writer = nil
	}
	var fileErr error
	if c.file != nil {
		_ = c.file.Sync()
		fileErr = c.file.Close()
		c.file = nil
	}
	if closeErr != nil {
		return fmt.Errorf("close census writer: %w", closeErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close census file: %w", fileErr)
	}
	return nil
}
