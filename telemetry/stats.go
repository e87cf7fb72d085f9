// Package telemetry provides population tracking, bookmarking and experiment output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`
	Epoch           int   `csv:"epoch"`

	// Population counts at window end
	Herbivores int `csv:"herbivores"`
	Carnivores int `csv:"carnivores"`
	Hybrids    int `csv:"hybrids"`

	// Events during window
	HerbBirths      int `csv:"herb_births"`
	CarnBirths      int `csv:"carn_births"`
	CrossoverBirths int `csv:"crossover_births"`
	RandomSpawns    int `csv:"random_spawns"`
	HerbDeaths      int `csv:"herb_deaths"`
	CarnDeaths      int `csv:"carn_deaths"`
	Starved         int `csv:"starved"`

	// Combat
	Hits     int     `csv:"hits"`
	Kills    int     `csv:"kills"`
	KillRate float64 `csv:"kill_rate"` // kills per hit

	// Food flows
	FoodShared   float64 `csv:"food_shared"`
	CarcassFood  float64 `csv:"carcass_food"`
	TotalFood    float64 `csv:"total_food"`
	FoodCoverage float64 `csv:"food_coverage"` // percent of cells holding food

	// Herbivore axis distribution
	HerbMean float64 `csv:"herb_mean"`
	HerbStd  float64 `csv:"herb_std"`
	HerbP10  float64 `csv:"herb_p10"`
	HerbP50  float64 `csv:"herb_p50"`
	HerbP90  float64 `csv:"herb_p90"`

	// Health distribution
	HealthMean float64 `csv:"health_mean"`
	HealthP10  float64 `csv:"health_p10"`
	HealthP50  float64 `csv:"health_p50"`
	HealthP90  float64 `csv:"health_p90"`

	GenerationMean float64 `csv:"generation_mean"`
	GenerationMax  float64 `csv:"generation_max"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summarize computes population mean, standard deviation and percentiles.
// The input is not modified.
func Summarize(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	var d Distribution
	d.Mean, d.Std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d.P10 = Percentile(sorted, 0.10)
	d.P50 = Percentile(sorted, 0.50)
	d.P90 = Percentile(sorted, 0.90)
	d.Max = sorted[n-1]
	return d
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Int("epoch", s.Epoch),
		slog.Int("herbivores", s.Herbivores),
		slog.Int("carnivores", s.Carnivores),
		slog.Int("hybrids", s.Hybrids),
		slog.Int("herb_births", s.HerbBirths),
		slog.Int("carn_births", s.CarnBirths),
		slog.Int("crossover_births", s.CrossoverBirths),
		slog.Int("random_spawns", s.RandomSpawns),
		slog.Int("herb_deaths", s.HerbDeaths),
		slog.Int("carn_deaths", s.CarnDeaths),
		slog.Int("starved", s.Starved),
		slog.Int("hits", s.Hits),
		slog.Int("kills", s.Kills),
		slog.Float64("kill_rate", s.KillRate),
		slog.Float64("food_shared", s.FoodShared),
		slog.Float64("carcass_food", s.CarcassFood),
		slog.Float64("total_food", s.TotalFood),
		slog.Float64("food_coverage", s.FoodCoverage),
		slog.Float64("herb_mean", s.HerbMean),
		slog.Float64("herb_std", s.HerbStd),
		slog.Float64("herb_p10", s.HerbP10),
		slog.Float64("herb_p50", s.HerbP50),
		slog.Float64("herb_p90", s.HerbP90),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("health_p10", s.HealthP10),
		slog.Float64("health_p50", s.HealthP50),
		slog.Float64("health_p90", s.HealthP90),
		slog.Float64("generation_mean", s.GenerationMean),
		slog.Float64("generation_max", s.GenerationMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"epoch", s.Epoch,
		"herbivores", s.Herbivores,
		"carnivores", s.Carnivores,
		"hybrids", s.Hybrids,
		"herb_births", s.HerbBirths,
		"carn_births", s.CarnBirths,
		"crossover_births", s.CrossoverBirths,
		"random_spawns", s.RandomSpawns,
		"herb_deaths", s.HerbDeaths,
		"carn_deaths", s.CarnDeaths,
		"starved", s.Starved,
		"hits", s.Hits,
		"kills", s.Kills,
		"kill_rate", s.KillRate,
		"food_shared", s.FoodShared,
		"carcass_food", s.CarcassFood,
		"total_food", s.TotalFood,
		"food_coverage", s.FoodCoverage,
		"herb_mean", s.HerbMean,
		"herb_std", s.HerbStd,
		"health_mean", s.HealthMean,
		"generation_mean", s.GenerationMean,
		"generation_max", s.GenerationMax,
	)
}
