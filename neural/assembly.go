package neural

import (
	"bytes"
	"math"
	"math/rand"

	"github.com/pthm-cable/scriptbots/codec"
)

// Opcodes understood by the assembly brain.
const (
	OpAdd uint8 = iota
	OpSub
	OpMul
	OpDiv
	OpMin
	OpMax
	OpConst
	OpGreater
	OpMix
	OpTanh
	OpSin
	numOps
)

// scratchRegisters is the number of registers that are neither inputs nor outputs.
const scratchRegisters = 16

// Instr computes Dst = op(A, B, K).
type Instr struct {
	Op  uint8
	A   uint16
	B   uint16
	Dst uint16
	K   float32
}

// Assembly is a register machine that runs its whole program once per tick.
// Registers hold the inputs, then the outputs, then scratch space. Registers
// keep their values between ticks, so programs can carry state.
type Assembly struct {
	NumInputs  int
	NumOutputs int
	Program    []Instr
	Regs       []float32
}

// NewAssembly creates a random program of length instructions.
func NewAssembly(rng *rand.Rand, inputs, outputs, length int) *Assembly {
	a := &Assembly{
		NumInputs:  inputs,
		NumOutputs: outputs,
		Program:    make([]Instr, length),
		Regs:       make([]float32, inputs+outputs+scratchRegisters),
	}
	for i := range a.Program {
		a.Program[i] = a.randomInstr(rng)
	}
	return a
}

func (a *Assembly) randomInstr(rng *rand.Rand) Instr {
	return Instr{
		Op:  uint8(rng.Intn(int(numOps))),
		A:   uint16(rng.Intn(len(a.Regs))),
		B:   uint16(rng.Intn(len(a.Regs))),
		Dst: a.randomDst(rng),
		K:   randf(rng, -1, 1),
	}
}

// randomDst never selects an input register.
func (a *Assembly) randomDst(rng *rand.Rand) uint16 {
	return uint16(a.NumInputs + rng.Intn(len(a.Regs)-a.NumInputs))
}

func (a *Assembly) Kind() Kind { return KindAssembly }

func (a *Assembly) Tick(in, out []float32) {
	copy(a.Regs[:a.NumInputs], in)

	regs := a.Regs
	for _, ins := range a.Program {
		x, y := regs[ins.A], regs[ins.B]
		var v float32
		switch ins.Op {
		case OpAdd:
			v = x + y
		case OpSub:
			v = x - y
		case OpMul:
			v = x * y
		case OpDiv:
			if y > 1e-3 || y < -1e-3 {
				v = x / y
			}
		case OpMin:
			v = min(x, y)
		case OpMax:
			v = max(x, y)
		case OpConst:
			v = ins.K
		case OpGreater:
			if x > y {
				v = 1
			}
		case OpMix:
			v = regs[ins.Dst]*ins.K + x*(1-ins.K)
		case OpTanh:
			v = tanh(x * ins.K * 4)
		case OpSin:
			v = float32(math.Sin(float64(x)))
		}
		// Keep registers finite so a single bad op cannot poison the program
		if v != v || v > 1e6 || v < -1e6 {
			v = 0
		}
		regs[ins.Dst] = v
	}

	base := a.NumInputs
	for i := 0; i < a.NumOutputs && i < len(out); i++ {
		out[i] = saturate01(regs[base+i])
	}
}

// Mutate changes one field of each instruction with probability rate1.
func (a *Assembly) Mutate(rng *rand.Rand, rate1, rate2 float32) {
	for i := range a.Program {
		if rng.Float32() >= rate1 {
			continue
		}
		ins := &a.Program[i]
		switch rng.Intn(5) {
		case 0:
			ins.Op = uint8(rng.Intn(int(numOps)))
		case 1:
			ins.A = uint16(rng.Intn(len(a.Regs)))
		case 2:
			ins.B = uint16(rng.Intn(len(a.Regs)))
		case 3:
			ins.Dst = a.randomDst(rng)
		default:
			ins.K = randn(rng, ins.K, rate2)
		}
	}
}

// Crossover splices the programs at a random cut point.
func (a *Assembly) Crossover(rng *rand.Rand, other Brain) Brain {
	o, ok := other.(*Assembly)
	if !ok || len(o.Program) != len(a.Program) || len(o.Regs) != len(a.Regs) || o.NumInputs != a.NumInputs {
		return a.Clone()
	}
	child := &Assembly{
		NumInputs:  a.NumInputs,
		NumOutputs: a.NumOutputs,
		Program:    make([]Instr, len(a.Program)),
		Regs:       make([]float32, len(a.Regs)),
	}
	cut := rng.Intn(len(a.Program) + 1)
	copy(child.Program[:cut], a.Program[:cut])
	copy(child.Program[cut:], o.Program[cut:])
	return child
}

func (a *Assembly) Clone() Brain {
	return &Assembly{
		NumInputs:  a.NumInputs,
		NumOutputs: a.NumOutputs,
		Program:    append([]Instr(nil), a.Program...),
		Regs:       append([]float32(nil), a.Regs...),
	}
}

func (a *Assembly) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := codec.NewWriter(&buf)
	w.Uint32(uint32(a.NumInputs))
	w.Uint32(uint32(a.NumOutputs))
	w.Float32s(a.Regs)
	w.Uint32(uint32(len(a.Program)))
	for _, ins := range a.Program {
		w.Uint8(ins.Op)
		w.Uint32(uint32(ins.A))
		w.Uint32(uint32(ins.B))
		w.Uint32(uint32(ins.Dst))
		w.Float32(ins.K)
	}
	return buf.Bytes(), w.Err()
}

func (a *Assembly) UnmarshalBinary(data []byte) error {
	r := codec.NewReader(bytes.NewReader(data))
	inputs := r.Len(maxBrainDim)
	outputs := r.Len(maxBrainDim)
	regs := r.Float32s(maxBrainDim)
	length := r.Len(maxBrainWeights)
	if err := r.Err(); err != nil {
		return err
	}
	if len(regs) < inputs+outputs || len(regs) == 0 {
		return ErrShape
	}

	program := make([]Instr, length)
	for i := range program {
		ins := &program[i]
		ins.Op = r.Uint8()
		ins.A = uint16(r.Len(len(regs) - 1))
		ins.B = uint16(r.Len(len(regs) - 1))
		ins.Dst = uint16(r.Len(len(regs) - 1))
		ins.K = r.Float32()
		if r.Err() != nil {
			return r.Err()
		}
		if int(ins.Dst) < inputs {
			return ErrShape
		}
	}

	a.NumInputs = inputs
	a.NumOutputs = outputs
	a.Regs = regs
	a.Program = program
	return nil
}
