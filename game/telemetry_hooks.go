package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/scriptbots/components"
	"github.com/pthm-cable/scriptbots/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (w *World) flushTelemetry() {
	if !w.collector.ShouldFlush(w.step) {
		return
	}

	sample := w.sampleWindow()

	// Flush the stats window
	stats := w.collector.Flush(w.step, sample)
	perfStats := w.perf.Stats()

	// Call stats callback if provided
	if w.statsCallback != nil {
		w.statsCallback(stats)
	}

	// Log stats if enabled
	if w.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV and parquet if output manager is enabled
	if w.output != nil {
		if err := w.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := w.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
		if err := w.output.WriteCensus(w.census()); err != nil {
			slog.Error("failed to write census", "error", err)
		}
	}

	// Check for bookmarks
	for _, bm := range w.bookmarks.Check(stats) {
		if w.logStats {
			bm.LogBookmark()
		}

		if w.output != nil {
			if err := w.output.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if w.store != nil {
			w.saveBookmark(bm)
		}
	}
}

// sampleWindow collects the population state reported at the end of a window.
func (w *World) sampleWindow() telemetry.Sample {
	s := telemetry.Sample{
		Epoch:        w.epoch,
		TotalFood:    w.TotalFood(),
		FoodCoverage: w.FoodCoverage(),
	}

	query := w.agentFilter.Query()
	for query.Next() {
		_, _, body, genome, org, _, _ := query.Get()
		if components.IsHerbivore(genome.Herbivore) {
			s.Herbivores++
		} else {
			s.Carnivores++
		}
		if org.Hybrid {
			s.Hybrids++
		}
		s.Herbivore = append(s.Herbivore, float64(genome.Herbivore))
		s.Health = append(s.Health, float64(body.Health))
		s.Generation = append(s.Generation, float64(org.Generation))
	}
	return s
}

// census builds one row per living agent.
func (w *World) census() []telemetry.CensusRow {
	rows := make([]telemetry.CensusRow, 0, w.NumAgents())
	query := w.agentFilter.Query()
	for query.Next() {
		pos, _, body, genome, org, _, _ := query.Get()
		row := telemetry.CensusRow{
			WindowEnd:  w.step,
			Epoch:      int32(w.epoch),
			ID:         org.ID,
			Lineage:    org.Lineage,
			Generation: org.Generation,
			Age:        body.Age,
			Hybrid:     org.Hybrid,
			Herbivore:  genome.Herbivore,
			Health:     body.Health,
			X:          pos.X,
			Y:          pos.Y,
			Spike:      body.Spike,
			MutRate1:   genome.MutRate1,
			MutRate2:   genome.MutRate2,
		}
		if ls := w.lifetime.Get(org.ID); ls != nil {
			row.Hits = int32(ls.Hits)
			row.Kills = int32(ls.Kills)
			row.Children = int32(ls.Children)
			row.Shared = ls.Shared
			row.Grazed = ls.Grazed
		}
		rows = append(rows, row)
	}
	return rows
}

// saveBookmark stores a snapshot of the world named after the bookmark.
func (w *World) saveBookmark(bm telemetry.Bookmark) {
	name := fmt.Sprintf("bookmark_%s_%d.sav", bm.Type, bm.Tick)
	if err := w.SaveToStore(context.Background(), name); err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "name", name, "step", w.step)
}
