package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	d := Summarize(values)

	if math.Abs(d.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", d.Mean)
	}
	// Population standard deviation of 0.1..1.0
	if math.Abs(d.Std-0.2872) > 0.001 {
		t.Errorf("std = %v, want ~0.287", d.Std)
	}
	if math.Abs(d.P10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", d.P10)
	}
	if math.Abs(d.P50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", d.P50)
	}
	if math.Abs(d.P90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", d.P90)
	}
	if d.Max != 1.0 {
		t.Errorf("max = %v, want 1", d.Max)
	}
}

func TestSummarizeDoesNotSortInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if d := Summarize(nil); d != (Distribution{}) {
		t.Errorf("empty slice should return zero distribution, got %+v", d)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(100)

	c.RecordBirth(true, false)
	c.RecordBirth(false, true)
	c.RecordSpawn()
	c.RecordHit()
	c.RecordHit()
	c.RecordDeath(true, true)
	c.RecordDeath(false, false)
	c.RecordShare(0.001)
	c.RecordCarcass(0.5)

	if c.ShouldFlush(99) {
		t.Fatal("flush requested before the window elapsed")
	}
	if !c.ShouldFlush(100) {
		t.Fatal("flush not requested at window end")
	}

	stats := c.Flush(100, Sample{
		Epoch:      2,
		Herbivores: 3,
		Carnivores: 1,
		Herbivore:  []float64{0.9, 0.8, 0.7, 0.1},
		Health:     []float64{1, 1, 1, 1},
		Generation: []float64{0, 1, 2, 5},
	})

	checks := []struct {
		name      string
		got, want float64
	}{
		{"herb births", float64(stats.HerbBirths), 1},
		{"carn births", float64(stats.CarnBirths), 1},
		{"crossover births", float64(stats.CrossoverBirths), 1},
		{"random spawns", float64(stats.RandomSpawns), 1},
		{"herb deaths", float64(stats.HerbDeaths), 1},
		{"carn deaths", float64(stats.CarnDeaths), 1},
		{"kills", float64(stats.Kills), 1},
		{"starved", float64(stats.Starved), 1},
		{"kill rate", stats.KillRate, 0.5},
		{"health mean", stats.HealthMean, 1},
		{"generation max", stats.GenerationMax, 5},
		{"epoch", float64(stats.Epoch), 2},
	}
	for _, ck := range checks {
		if math.Abs(ck.got-ck.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", ck.name, ck.got, ck.want)
		}
	}

	// Counters reset for the next window
	next := c.Flush(200, Sample{})
	if next.HerbBirths != 0 || next.Kills != 0 || next.FoodShared != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if next.WindowStartTick != 100 {
		t.Errorf("next window starts at %d, want 100", next.WindowStartTick)
	}
}
