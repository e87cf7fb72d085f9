package neural

import (
	"bytes"
	"math/rand"

	"github.com/pthm-cable/scriptbots/codec"
)

// Box types for DWRAON units.
const (
	BoxAnd uint8 = iota
	BoxOr
)

// Box is one unit of a damped weighted recurrent AND/OR network.
type Box struct {
	Type   uint8
	KP     float32 // damping: fraction of the gap to target closed per tick
	GW     float32 // global gain applied to OR sums
	Bias   float32
	W      []float32
	ID     []int32 // source box index per connection
	Notted []bool  // connection input is inverted

	Target float32
	Out    float32
}

// DWRAON is a damped weighted recurrent AND/OR network. The first
// NumInputs boxes mirror the input vector; outputs are read from the last
// boxes in reverse order.
type DWRAON struct {
	NumInputs  int
	NumOutputs int
	Boxes      []Box
}

// NewDWRAON creates a randomly wired network of size boxes with conns
// connections each.
func NewDWRAON(rng *rand.Rand, inputs, outputs, size, conns int) *DWRAON {
	b := &DWRAON{
		NumInputs:  inputs,
		NumOutputs: outputs,
		Boxes:      make([]Box, size),
	}
	for i := range b.Boxes {
		box := &b.Boxes[i]
		box.Type = BoxAnd
		if rng.Float32() > 0.5 {
			box.Type = BoxOr
		}
		box.KP = randf(rng, 0.8, 1)
		box.GW = randf(rng, 0, 5)
		box.Bias = randf(rng, -1, 1)
		box.W = make([]float32, conns)
		box.ID = make([]int32, conns)
		box.Notted = make([]bool, conns)
		for j := 0; j < conns; j++ {
			box.W[j] = randf(rng, 0.1, 2)
			box.ID[j] = int32(rng.Intn(size))
			// Bias wiring toward the sensors so fresh brains react to something
			if rng.Float32() < 0.2 {
				box.ID[j] = int32(rng.Intn(inputs))
			}
			box.Notted[j] = rng.Float32() < 0.5
		}
	}
	return b
}

func (b *DWRAON) Kind() Kind { return KindDWRAON }

// Tick advances every box one step toward its target and writes outputs.
func (b *DWRAON) Tick(in, out []float32) {
	n := min(b.NumInputs, len(in), len(b.Boxes))
	for i := 0; i < n; i++ {
		b.Boxes[i].Out = in[i]
	}

	for i := b.NumInputs; i < len(b.Boxes); i++ {
		box := &b.Boxes[i]
		var res float32
		if box.Type == BoxAnd {
			res = 1
			for j, id := range box.ID {
				val := b.Boxes[id].Out
				if box.Notted[j] {
					val = 1 - val
				}
				res *= val
			}
			res *= box.Bias
		} else {
			for j, id := range box.ID {
				val := b.Boxes[id].Out
				if box.Notted[j] {
					val = 1 - val
				}
				res += val * box.W[j]
			}
			res = (res + box.Bias) * box.GW
		}
		box.Target = saturate01(res)
	}

	for i := b.NumInputs; i < len(b.Boxes); i++ {
		box := &b.Boxes[i]
		box.Out += (box.Target - box.Out) * box.KP
	}

	last := len(b.Boxes) - 1
	for i := 0; i < b.NumOutputs && i < len(out) && last-i >= 0; i++ {
		out[i] = b.Boxes[last-i].Out
	}
}

// Mutate rewires, reweights and retypes boxes. Each box parameter changes
// with a probability proportional to rate1 by a normal step of rate2.
func (b *DWRAON) Mutate(rng *rand.Rand, rate1, rate2 float32) {
	size := len(b.Boxes)
	for i := b.NumInputs; i < size; i++ {
		box := &b.Boxes[i]
		if rng.Float32() < rate1*3 {
			box.Bias = randn(rng, box.Bias, rate2)
		}
		if rng.Float32() < rate1*3 {
			box.KP = min(max(randn(rng, box.KP, rate2), 0.01), 1)
		}
		if rng.Float32() < rate1*3 {
			box.GW = max(randn(rng, box.GW, rate2), 0)
		}
		conns := len(box.ID)
		if conns == 0 {
			continue
		}
		if rng.Float32() < rate1 {
			j := rng.Intn(conns)
			box.W[j] = randn(rng, box.W[j], rate2)
		}
		if rng.Float32() < rate1 {
			j := rng.Intn(conns)
			box.ID[j] = int32(rng.Intn(size))
		}
		if rng.Float32() < rate1 {
			j := rng.Intn(conns)
			box.Notted[j] = !box.Notted[j]
		}
		if rng.Float32() < rate1 {
			box.Type = 1 - box.Type
		}
	}
}

// Crossover takes each box wholesale from either parent.
func (b *DWRAON) Crossover(rng *rand.Rand, other Brain) Brain {
	o, ok := other.(*DWRAON)
	if !ok || len(o.Boxes) != len(b.Boxes) || o.NumInputs != b.NumInputs || o.NumOutputs != b.NumOutputs {
		return b.Clone()
	}
	child := &DWRAON{
		NumInputs:  b.NumInputs,
		NumOutputs: b.NumOutputs,
		Boxes:      make([]Box, len(b.Boxes)),
	}
	for i := range child.Boxes {
		src := &b.Boxes[i]
		if rng.Float32() < 0.5 {
			src = &o.Boxes[i]
		}
		child.Boxes[i] = src.clone()
	}
	return child
}

func (box *Box) clone() Box {
	c := *box
	c.W = append([]float32(nil), box.W...)
	c.ID = append([]int32(nil), box.ID...)
	c.Notted = append([]bool(nil), box.Notted...)
	return c
}

func (b *DWRAON) Clone() Brain {
	c := &DWRAON{
		NumInputs:  b.NumInputs,
		NumOutputs: b.NumOutputs,
		Boxes:      make([]Box, len(b.Boxes)),
	}
	for i := range b.Boxes {
		c.Boxes[i] = b.Boxes[i].clone()
	}
	return c
}

func (b *DWRAON) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Uint32(uint32(b.NumInputs))
	w.Uint32(uint32(b.NumOutputs))
	w.Uint32(uint32(len(b.Boxes)))
	for i := range b.Boxes {
		box := &b.Boxes[i]
		w.Uint8(box.Type)
		w.Float32(box.KP)
		w.Float32(box.GW)
		w.Float32(box.Bias)
		w.Float32(box.Target)
		w.Float32(box.Out)
		w.Uint32(uint32(len(box.ID)))
		for j := range box.ID {
			w.Float32(box.W[j])
			w.Int32(box.ID[j])
			w.Bool(box.Notted[j])
		}
	}
	return buf.Bytes(), w.Err()
}

func (b *DWRAON) UnmarshalBinary(data []byte) error {
	r := codec.NewReader(bytes.NewReader(data))
	inputs := r.Len(maxBrainDim)
	outputs := r.Len(maxBrainDim)
	size := r.Len(maxBrainDim)
	if err := r.Err(); err != nil {
		return err
	}
	if size < inputs || size < outputs {
		return ErrShape
	}

	boxes := make([]Box, size)
	for i := range boxes {
		box := &boxes[i]
		box.Type = r.Uint8()
		box.KP = r.Float32()
		box.GW = r.Float32()
		box.Bias = r.Float32()
		box.Target = r.Float32()
		box.Out = r.Float32()
		conns := r.Len(maxBrainDim)
		if r.Err() != nil {
			return r.Err()
		}
		box.W = make([]float32, conns)
		box.ID = make([]int32, conns)
		box.Notted = make([]bool, conns)
		for j := 0; j < conns; j++ {
			box.W[j] = r.Float32()
			box.ID[j] = r.Int32()
			box.Notted[j] = r.Bool()
			if box.ID[j] < 0 || int(box.ID[j]) >= size {
				r.Fail(ErrShape)
			}
		}
		if r.Err() != nil {
			return r.Err()
		}
	}

	b.NumInputs = inputs
	b.NumOutputs = outputs
	b.Boxes = boxes
	return nil
}
