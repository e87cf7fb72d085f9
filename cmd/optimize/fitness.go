package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/game"
	"github.com/pthm-cable/scriptbots/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params         *ParamVector
	ticks          int
	sampleInterval int
	seeds          []int64
	baseConfig     *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64 // stability of the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Each run lasts ticks ticks and
// samples the population every sampleInterval ticks.
func NewFitnessEvaluator(params *ParamVector, ticks, sampleInterval int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		ticks:          ticks,
		sampleInterval: max(sampleInterval, 1),
		seeds:          seeds,
		baseConfig:     baseCfg,
		bestFitness:    math.Inf(1),
	}
}

// BestWindows returns the window stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the stability score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	samples     []float64               // min(herbivores, carnivores) per sample
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
}

type seedResult struct {
	fitness float64
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			r := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness: computeFitness(r.samples),
				quality: stability(r.samples),
				windows: r.windowStats,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeed := math.Inf(1)
	var bestWindows []telemetry.WindowStats
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeed {
			bestSeed = r.fitness
			bestWindows = r.windows
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestWindows = bestWindows
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}
	w, err := game.New(cfg, game.Options{
		Seed: seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return result
	}
	defer w.Close()

	for t := 1; t <= fe.ticks; t++ {
		w.Update()
		if t%fe.sampleInterval == 0 {
			herb, carn := w.Counts()
			result.samples = append(result.samples, float64(min(herb, carn)))
		}
	}
	return result
}

// computeFitness is the negative mean of the minority class size over all
// samples. A run with no samples scores 0.
func computeFitness(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return -stat.Mean(samples, nil)
}

// stability scores how steady the minority class was, in (0, 1]. Runs that
// never sampled or whose minority was always extinct score 0.
func stability(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(samples, nil)
	if mean == 0 {
		return 0
	}
	cv := std / mean
	return math.Exp(-cv * cv)
}
