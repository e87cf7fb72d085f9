package neural

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func testParams() Params {
	return Params{Inputs: testInputs, Outputs: testOutputs, Size: 200, Connections: 4, Hidden: testHidden}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"dwraon", KindDWRAON, false},
		{"mlp", KindMLP, false},
		{"assembly", KindAssembly, false},
		{"nope", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

var allKinds = []Kind{KindDWRAON, KindMLP, KindAssembly}

func TestBrainContract(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			b := New(kind, rng, testParams())
			if b.Kind() != kind {
				t.Fatalf("Kind() = %v, want %v", b.Kind(), kind)
			}

			in := make([]float32, testInputs)
			out := make([]float32, testOutputs)
			for tick := 0; tick < 50; tick++ {
				for i := range in {
					in[i] = rng.Float32()
				}
				b.Tick(in, out)
				for i, v := range out {
					if v < 0 || v > 1 || math.IsNaN(float64(v)) {
						t.Fatalf("tick %d output %d = %v outside [0,1]", tick, i, v)
					}
				}
			}

			mutated := b.Clone()
			mutated.Mutate(rng, 0.5, 0.5)
			child := b.Crossover(rng, mutated)
			if child.Kind() != kind {
				t.Errorf("crossover kind = %v", child.Kind())
			}
		})
	}
}

func TestBrainBinaryRoundTrip(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			b := New(kind, rng, testParams())

			// Run a few ticks so recurrent state is non-trivial
			in := make([]float32, testInputs)
			out := make([]float32, testOutputs)
			for i := range in {
				in[i] = 0.3
			}
			for i := 0; i < 5; i++ {
				b.Tick(in, out)
			}

			data, err := b.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			loaded, err := Decode(kind, data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			want := make([]float32, testOutputs)
			got := make([]float32, testOutputs)
			b.Tick(in, want)
			loaded.Tick(in, got)
			if !reflect.DeepEqual(want, got) {
				t.Errorf("outputs differ after round trip: %v vs %v", want, got)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			if _, err := Decode(kind, []byte{1, 2, 3}); err == nil {
				t.Error("expected error for truncated payload")
			}
		})
	}
	if _, err := Decode(Kind(99), nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestCrossoverAcrossKindsClones(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := New(KindMLP, rng, testParams())
	b := New(KindDWRAON, rng, testParams())

	child := a.Crossover(rng, b)
	if child.Kind() != KindMLP {
		t.Fatalf("child kind = %v, want mlp", child.Kind())
	}
	if !reflect.DeepEqual(child.(*FFNN).W1, a.(*FFNN).W1) {
		t.Error("cross-kind crossover should clone the receiver")
	}
}

func TestSaturate01(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		in, want float32
	}{
		{-1, 0},
		{0.25, 0.25},
		{3, 1},
		{nan, 0},
	}
	for _, tt := range tests {
		if got := saturate01(tt.in); got != tt.want {
			t.Errorf("saturate01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
