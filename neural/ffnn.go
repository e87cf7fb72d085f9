package neural

import (
	"bytes"
	"math"
	"math/rand"

	"github.com/pthm-cable/scriptbots/codec"
)

// FFNN is a two-layer feedforward network sized at construction.
// Weights are stored row-major.
type FFNN struct {
	NumInputs  int
	NumHidden  int
	NumOutputs int
	W1         []float32 // [NumHidden * NumInputs] input -> hidden
	B1         []float32 // [NumHidden]
	W2         []float32 // [NumOutputs * NumHidden] hidden -> output
	B2         []float32 // [NumOutputs]

	hidden []float32
}

// NewFFNN creates a randomly initialized network.
func NewFFNN(rng *rand.Rand, inputs, hidden, outputs int) *FFNN {
	nn := newFFNN(inputs, hidden, outputs)

	// Xavier initialization
	scale1 := float32(math.Sqrt(2.0 / float64(inputs)))
	scale2 := float32(math.Sqrt(2.0 / float64(hidden)))
	for i := range nn.W1 {
		nn.W1[i] = float32(rng.NormFloat64()) * scale1
	}
	for i := range nn.W2 {
		nn.W2[i] = float32(rng.NormFloat64()) * scale2
	}
	return nn
}

func newFFNN(inputs, hidden, outputs int) *FFNN {
	return &FFNN{
		NumInputs:  inputs,
		NumHidden:  hidden,
		NumOutputs: outputs,
		W1:         make([]float32, hidden*inputs),
		B1:         make([]float32, hidden),
		W2:         make([]float32, outputs*hidden),
		B2:         make([]float32, outputs),
		hidden:     make([]float32, hidden),
	}
}

func (nn *FFNN) Kind() Kind { return KindMLP }

// Tick computes the network output. Outputs use saturate01(raw*0.5 + 0.5),
// so a zero pre-activation maps to 0.5.
func (nn *FFNN) Tick(in, out []float32) {
	nIn := min(nn.NumInputs, len(in))
	for i := 0; i < nn.NumHidden; i++ {
		sum := nn.B1[i]
		row := nn.W1[i*nn.NumInputs : (i+1)*nn.NumInputs]
		for j := 0; j < nIn; j++ {
			sum += row[j] * in[j]
		}
		nn.hidden[i] = tanh(sum)
	}

	nOut := min(nn.NumOutputs, len(out))
	for i := 0; i < nOut; i++ {
		sum := nn.B2[i]
		row := nn.W2[i*nn.NumHidden : (i+1)*nn.NumHidden]
		for j, h := range nn.hidden {
			sum += row[j] * h
		}
		out[i] = saturate01(sum*0.5 + 0.5)
	}
}

// Mutate perturbs each weight and bias with probability rate1 by a normal
// draw of standard deviation rate2.
func (nn *FFNN) Mutate(rng *rand.Rand, rate1, rate2 float32) {
	for _, v := range [][]float32{nn.W1, nn.B1, nn.W2, nn.B2} {
		for i := range v {
			if rng.Float32() < rate1 {
				v[i] += float32(rng.NormFloat64()) * rate2
			}
		}
	}
}

// Crossover takes each hidden and output unit (incoming weights plus bias)
// from either parent with equal probability.
func (nn *FFNN) Crossover(rng *rand.Rand, other Brain) Brain {
	o, ok := other.(*FFNN)
	if !ok || o.NumInputs != nn.NumInputs || o.NumHidden != nn.NumHidden || o.NumOutputs != nn.NumOutputs {
		return nn.Clone()
	}

	child := newFFNN(nn.NumInputs, nn.NumHidden, nn.NumOutputs)
	for i := 0; i < nn.NumHidden; i++ {
		src := nn
		if rng.Float32() < 0.5 {
			src = o
		}
		lo, hi := i*nn.NumInputs, (i+1)*nn.NumInputs
		copy(child.W1[lo:hi], src.W1[lo:hi])
		child.B1[i] = src.B1[i]
	}
	for i := 0; i < nn.NumOutputs; i++ {
		src := nn
		if rng.Float32() < 0.5 {
			src = o
		}
		lo, hi := i*nn.NumHidden, (i+1)*nn.NumHidden
		copy(child.W2[lo:hi], src.W2[lo:hi])
		child.B2[i] = src.B2[i]
	}
	return child
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() Brain {
	clone := newFFNN(nn.NumInputs, nn.NumHidden, nn.NumOutputs)
	copy(clone.W1, nn.W1)
	copy(clone.B1, nn.B1)
	copy(clone.W2, nn.W2)
	copy(clone.B2, nn.B2)
	return clone
}

func (nn *FFNN) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Uint32(uint32(nn.NumInputs))
	w.Uint32(uint32(nn.NumHidden))
	w.Uint32(uint32(nn.NumOutputs))
	w.Float32s(nn.W1)
	w.Float32s(nn.B1)
	w.Float32s(nn.W2)
	w.Float32s(nn.B2)
	return buf.Bytes(), w.Err()
}

func (nn *FFNN) UnmarshalBinary(data []byte) error {
	r := codec.NewReader(bytes.NewReader(data))
	inputs := r.Len(maxBrainDim)
	hidden := r.Len(maxBrainDim)
	outputs := r.Len(maxBrainDim)
	if err := r.Err(); err != nil {
		return err
	}
	if inputs == 0 || hidden == 0 || hidden*inputs > maxBrainWeights || outputs*hidden > maxBrainWeights {
		return ErrShape
	}

	loaded := newFFNN(inputs, hidden, outputs)
	for _, dst := range [][]float32{loaded.W1, loaded.B1, loaded.W2, loaded.B2} {
		src := r.Float32s(len(dst))
		if r.Err() == nil && len(src) != len(dst) {
			r.Fail(ErrShape)
		}
		copy(dst, src)
	}
	if err := r.Err(); err != nil {
		return err
	}
	*nn = *loaded
	return nil
}
