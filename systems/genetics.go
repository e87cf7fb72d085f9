package systems

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/scriptbots/components"
)

// Floors applied to mutated genomes.
const (
	MinClock    = 2
	MinMutRate1 = 0.001
	MinMutRate2 = 0.02
)

// MetaRates holds the spread used when mutation rates mutate themselves.
type MetaRates struct {
	Rate1 float32
	Rate2 float32
}

// RandomGenome draws a fresh genome with the herbivore axis uniform in
// [herbLo, herbHi).
func RandomGenome(rng *rand.Rand, herbLo, herbHi float32) components.Genome {
	g := components.Genome{
		Herbivore:      uniform(rng, herbLo, herbHi),
		Clock1:         uniform(rng, 5, 100),
		Clock2:         uniform(rng, 5, 100),
		MutRate1:       uniform(rng, 0.001, 0.005),
		MutRate2:       uniform(rng, 0.03, 0.07),
		SmellMod:       uniform(rng, 0.1, 0.5),
		SoundMod:       uniform(rng, 0.2, 0.6),
		HearMod:        uniform(rng, 0.7, 1.3),
		EyeSens:        uniform(rng, 1, 3),
		BloodMod:       uniform(rng, 1, 3),
		TempPreference: uniform(rng, 0, 1),
	}
	for i := range g.EyeFOV {
		g.EyeFOV[i] = uniform(rng, 0.5, 2)
		g.EyeDir[i] = uniform(rng, 0, twoPi)
	}
	return g
}

// RepCounter draws the reproduction counter reset for a herbivore axis value.
func RepCounter(rng *rand.Rand, herbivore, rateH, rateC float32) float32 {
	return herbivore*uniform(rng, rateH-0.1, rateH+0.1) + (1-herbivore)*uniform(rng, rateC-0.1, rateC+0.1)
}

// BoostRates multiplies each mutation rate by U(1,10) with probability 0.04.
func BoostRates(rng *rand.Rand, mr, mr2 float32) (float32, float32) {
	if rng.Float32() < 0.04 {
		mr *= uniform(rng, 1, 10)
	}
	if rng.Float32() < 0.04 {
		mr2 *= uniform(rng, 1, 10)
	}
	return mr, mr2
}

// MutateGenome returns a mutated copy of parent. mr is the per-trait mutation
// probability scale and mr2 the mutation magnitude. The returned log holds
// one entry per probabilistic trait mutation.
func MutateGenome(rng *rand.Rand, parent *components.Genome, mr, mr2 float32, meta MetaRates) (components.Genome, []string) {
	child := *parent
	var log []string

	if rng.Float32() < 0.1 {
		child.MutRate1 = gauss(rng, parent.MutRate1, meta.Rate1)
	}
	if rng.Float32() < 0.1 {
		child.MutRate2 = gauss(rng, parent.MutRate2, meta.Rate2)
	}
	child.MutRate1 = max(child.MutRate1, MinMutRate1)
	child.MutRate2 = max(child.MutRate2, MinMutRate2)

	child.Herbivore = Clamp01(gauss(rng, parent.Herbivore, 0.03))

	trait := func(name string, v *float32) {
		if rng.Float32() < mr*5 {
			old := *v
			*v = gauss(rng, *v, mr2)
			log = append(log, fmt.Sprintf("%s %.3f->%.3f", name, old, *v))
		}
	}

	trait("clock1", &child.Clock1)
	child.Clock1 = max(child.Clock1, MinClock)
	trait("clock2", &child.Clock2)
	child.Clock2 = max(child.Clock2, MinClock)

	trait("smell", &child.SmellMod)
	trait("sound", &child.SoundMod)
	trait("hear", &child.HearMod)
	trait("eyesens", &child.EyeSens)
	trait("blood", &child.BloodMod)
	child.SmellMod = max(child.SmellMod, 0)
	child.SoundMod = max(child.SoundMod, 0)
	child.HearMod = max(child.HearMod, 0)
	child.EyeSens = max(child.EyeSens, 0)
	child.BloodMod = max(child.BloodMod, 0)

	for i := range child.EyeFOV {
		trait(fmt.Sprintf("eyefov%d", i), &child.EyeFOV[i])
		child.EyeFOV[i] = max(child.EyeFOV[i], 0)
		trait(fmt.Sprintf("eyedir%d", i), &child.EyeDir[i])
		child.EyeDir[i] = wrapEyeDir(child.EyeDir[i])
	}

	child.TempPreference = Clamp01(gauss(rng, parent.TempPreference, 0.005))

	return child, log
}

// CrossoverGenome takes every trait from one parent or the other with equal
// probability. Each eye is inherited as a (fov, dir) pair.
func CrossoverGenome(rng *rand.Rand, a, b *components.Genome) components.Genome {
	pick := func(x, y float32) float32 {
		if rng.Float32() < 0.5 {
			return x
		}
		return y
	}

	g := components.Genome{
		Clock1:         pick(a.Clock1, b.Clock1),
		Clock2:         pick(a.Clock2, b.Clock2),
		Herbivore:      pick(a.Herbivore, b.Herbivore),
		MutRate1:       pick(a.MutRate1, b.MutRate1),
		MutRate2:       pick(a.MutRate2, b.MutRate2),
		TempPreference: pick(a.TempPreference, b.TempPreference),
		SmellMod:       pick(a.SmellMod, b.SmellMod),
		SoundMod:       pick(a.SoundMod, b.SoundMod),
		HearMod:        pick(a.HearMod, b.HearMod),
		EyeSens:        pick(a.EyeSens, b.EyeSens),
		BloodMod:       pick(a.BloodMod, b.BloodMod),
	}
	for i := range g.EyeFOV {
		src := a
		if rng.Float32() >= 0.5 {
			src = b
		}
		g.EyeFOV[i] = src.EyeFOV[i]
		g.EyeDir[i] = src.EyeDir[i]
	}
	return g
}

// wrapEyeDir maps an eye direction into [0, 2Pi].
func wrapEyeDir(d float32) float32 {
	if d >= 0 && d <= twoPi {
		return d
	}
	return NormalizeHeading(d)
}

func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

func gauss(rng *rand.Rand, mu, sigma float32) float32 {
	return mu + float32(rng.NormFloat64())*sigma
}
