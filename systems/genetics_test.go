package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/scriptbots/components"
)

var testMeta = MetaRates{Rate1: 0.002, Rate2: 0.05}

func checkGenome(t *testing.T, g *components.Genome) {
	t.Helper()
	if g.Herbivore < 0 || g.Herbivore > 1 {
		t.Errorf("herbivore = %v outside [0,1]", g.Herbivore)
	}
	if g.Clock1 < MinClock || g.Clock2 < MinClock {
		t.Errorf("clocks = (%v, %v) below floor", g.Clock1, g.Clock2)
	}
	if g.MutRate1 < MinMutRate1 || g.MutRate2 < MinMutRate2 {
		t.Errorf("rates = (%v, %v) below floor", g.MutRate1, g.MutRate2)
	}
	if g.TempPreference < 0 || g.TempPreference > 1 {
		t.Errorf("temperature preference = %v", g.TempPreference)
	}
	for i := range g.EyeFOV {
		if g.EyeFOV[i] < 0 {
			t.Errorf("eye %d fov = %v", i, g.EyeFOV[i])
		}
		if g.EyeDir[i] < 0 || g.EyeDir[i] > twoPi {
			t.Errorf("eye %d dir = %v outside [0, 2Pi]", i, g.EyeDir[i])
		}
	}
}

func TestRandomGenomeRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		g := RandomGenome(rng, 0.9, 1)
		checkGenome(t, &g)
		if g.Herbivore < 0.9 || g.Herbivore >= 1 {
			t.Fatalf("herbivore = %v outside [0.9, 1)", g.Herbivore)
		}
		if g.Clock1 < 5 || g.Clock1 > 100 {
			t.Fatalf("clock1 = %v", g.Clock1)
		}
	}
}

// Repeated mutation at extreme rates must never break the genome invariants.
func TestMutateGenomeKeepsInvariants(t *testing.T) {
	tests := []struct {
		name    string
		mr, mr2 float32
	}{
		{"typical", 0.003, 0.05},
		{"violent", 1, 5},
		{"tiny", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			g := RandomGenome(rng, 0, 1)
			for gen := 0; gen < 500; gen++ {
				g, _ = MutateGenome(rng, &g, tt.mr, tt.mr2, MetaRates{Rate1: 0.5, Rate2: 0.5})
				checkGenome(t, &g)
				if t.Failed() {
					t.Fatalf("invariant broken at generation %d", gen)
				}
			}
		})
	}
}

func TestMutateGenomeLogsTraitChanges(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	parent := RandomGenome(rng, 0, 1)

	_, log := MutateGenome(rng, &parent, 0, 0.05, testMeta)
	if len(log) != 0 {
		t.Errorf("mutation probability 0 logged %v", log)
	}

	// mr*5 >= 1 mutates every trait: 2 clocks, 5 gains and 2 per eye
	_, log = MutateGenome(rng, &parent, 0.2, 0.05, testMeta)
	if want := 7 + 2*components.NumEyes; len(log) != want {
		t.Errorf("logged %d mutations, want %d", len(log), want)
	}
}

func TestMutateGenomeDoesNotTouchParent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	parent := RandomGenome(rng, 0, 1)
	before := parent
	MutateGenome(rng, &parent, 1, 1, testMeta)
	if parent != before {
		t.Error("parent genome modified by mutation")
	}
}

func TestCrossoverGenomeProvenance(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	a := RandomGenome(rng, 0, 0.1)
	b := RandomGenome(rng, 0.9, 1)

	fromA, fromB := 0, 0
	for i := 0; i < 100; i++ {
		c := CrossoverGenome(rng, &a, &b)
		scalars := []struct{ got, x, y float32 }{
			{c.Herbivore, a.Herbivore, b.Herbivore},
			{c.Clock1, a.Clock1, b.Clock1},
			{c.Clock2, a.Clock2, b.Clock2},
			{c.MutRate1, a.MutRate1, b.MutRate1},
			{c.MutRate2, a.MutRate2, b.MutRate2},
			{c.SmellMod, a.SmellMod, b.SmellMod},
			{c.SoundMod, a.SoundMod, b.SoundMod},
			{c.HearMod, a.HearMod, b.HearMod},
			{c.EyeSens, a.EyeSens, b.EyeSens},
			{c.BloodMod, a.BloodMod, b.BloodMod},
			{c.TempPreference, a.TempPreference, b.TempPreference},
		}
		for j, s := range scalars {
			switch s.got {
			case s.x:
				fromA++
			case s.y:
				fromB++
			default:
				t.Fatalf("trait %d = %v came from neither parent", j, s.got)
			}
		}
		for q := range c.EyeFOV {
			pairA := c.EyeFOV[q] == a.EyeFOV[q] && c.EyeDir[q] == a.EyeDir[q]
			pairB := c.EyeFOV[q] == b.EyeFOV[q] && c.EyeDir[q] == b.EyeDir[q]
			if !pairA && !pairB {
				t.Fatalf("eye %d split between parents", q)
			}
		}
	}
	if fromA == 0 || fromB == 0 {
		t.Errorf("traits from a: %d, from b: %d", fromA, fromB)
	}
}

func TestRepCounter(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		if r := RepCounter(rng, 1, 7, 3); r < 6.9 || r > 7.1 {
			t.Fatalf("herbivore rep counter = %v", r)
		}
		if r := RepCounter(rng, 0, 7, 3); r < 2.9 || r > 3.1 {
			t.Fatalf("carnivore rep counter = %v", r)
		}
	}
}

func TestBoostRates(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	boosted := 0
	for i := 0; i < 5000; i++ {
		mr, mr2 := BoostRates(rng, 0.01, 0.05)
		if mr < 0.01 || mr > 0.1 || mr2 < 0.05 || mr2 > 0.5 {
			t.Fatalf("boosted rates (%v, %v) out of range", mr, mr2)
		}
		if mr != 0.01 {
			boosted++
		}
	}
	// p = 0.04 over 5000 draws
	if boosted < 100 || boosted > 320 {
		t.Errorf("boosted %d times, want about 200", boosted)
	}
}
