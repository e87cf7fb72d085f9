// Package neural provides the interchangeable agent controllers.
package neural

import (
	"encoding"
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/scriptbots/config"
)

// Kind identifies a brain variant. It is persisted as a single byte.
type Kind uint8

const (
	KindDWRAON Kind = iota + 1
	KindMLP
	KindAssembly
)

func (k Kind) String() string {
	switch k {
	case KindDWRAON:
		return "dwraon"
	case KindMLP:
		return "mlp"
	case KindAssembly:
		return "assembly"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "dwraon":
		return KindDWRAON, nil
	case "mlp":
		return KindMLP, nil
	case "assembly":
		return KindAssembly, nil
	}
	return 0, fmt.Errorf("unknown brain kind %q", s)
}

// Brain maps an input vector to an output vector and supports the genetic
// operators. Tick must only touch the brain's own state so brains can be
// ticked concurrently.
type Brain interface {
	Kind() Kind
	Tick(in, out []float32)
	Mutate(rng *rand.Rand, rate1, rate2 float32)
	Crossover(rng *rand.Rand, other Brain) Brain
	Clone() Brain
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Params holds the sizes shared by all variants.
type Params struct {
	Inputs      int
	Outputs     int
	Size        int // DWRAON boxes, assembly instructions
	Connections int // DWRAON inputs per box
	Hidden      int // MLP hidden units
}

// ParamsFromConfig extracts brain sizes from the neural config section.
func ParamsFromConfig(cfg config.NeuralConfig) Params {
	return Params{
		Inputs:      cfg.Inputs,
		Outputs:     cfg.Outputs,
		Size:        cfg.Size,
		Connections: cfg.Connections,
		Hidden:      cfg.Hidden,
	}
}

// New creates a randomly initialized brain of the given kind.
func New(kind Kind, rng *rand.Rand, p Params) Brain {
	switch kind {
	case KindMLP:
		return NewFFNN(rng, p.Inputs, p.Hidden, p.Outputs)
	case KindAssembly:
		return NewAssembly(rng, p.Inputs, p.Outputs, p.Size)
	default:
		return NewDWRAON(rng, p.Inputs, p.Outputs, p.Size, p.Connections)
	}
}

// Decode restores a brain of the given kind from its binary form.
func Decode(kind Kind, data []byte) (Brain, error) {
	var b Brain
	switch kind {
	case KindDWRAON:
		b = &DWRAON{}
	case KindMLP:
		b = &FFNN{}
	case KindAssembly:
		b = &Assembly{}
	default:
		return nil, fmt.Errorf("decoding brain: unknown kind %d", kind)
	}
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decoding %s brain: %w", kind, err)
	}
	return b, nil
}

// ErrShape is returned when serialized brain dimensions are inconsistent.
var ErrShape = errors.New("brain shape mismatch")

// Bounds applied to dimensions read from a serialized brain.
const (
	maxBrainDim     = 1 << 16
	maxBrainWeights = 1 << 22
)

// saturate01 clamps x to [0, 1]. NaN maps to 0.
func saturate01(x float32) float32 {
	if !(x > 0) {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x
}

// tanh uses a fast rational approximation avoiding float64 conversion.
func tanh(x float32) float32 {
	if x > 4 {
		return 1
	}
	if x < -4 {
		return -1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}

func randf(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

func randn(rng *rand.Rand, mu, sigma float32) float32 {
	return mu + float32(rng.NormFloat64())*sigma
}
