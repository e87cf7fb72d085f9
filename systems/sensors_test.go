package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/scriptbots/components"
)

// frontEyeGenome has a single forward eye and unit gains.
func frontEyeGenome() *components.Genome {
	g := &components.Genome{
		Clock1:   10,
		Clock2:   20,
		SmellMod: 1,
		SoundMod: 1,
		HearMod:  1,
		EyeSens:  1,
		BloodMod: 1,
	}
	g.EyeFOV[0] = 1
	return g
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestComputeInputsNoNeighbors(t *testing.T) {
	in := make([]float32, NumInputs)
	self := SensorSelf{Heading: 0, Health: 1, FoodFrac: 0.25, Tick: 0, Genome: frontEyeGenome()}
	ComputeInputs(in, self, nil, 150)

	for i, v := range in {
		switch i {
		case InHealth:
			if v != 0.5 {
				t.Errorf("health = %v, want 0.5", v)
			}
		case InFood:
			if v != 0.25 {
				t.Errorf("food = %v, want 0.25", v)
			}
		default:
			if v != 0 {
				t.Errorf("slot %d = %v, want 0 with nobody around", i, v)
			}
		}
	}
}

func TestComputeInputsNeighborAhead(t *testing.T) {
	in := make([]float32, NumInputs)
	self := SensorSelf{Heading: 0, Health: 1, Genome: frontEyeGenome()}
	neighbors := []Observed{{
		DX: 50, Dist: 50,
		WheelMax: 0.3, Shout: 0.5, Health: 1,
		Red: 1, Green: 0.5, Blue: 0,
	}}
	ComputeInputs(in, self, neighbors, 150)

	closeness := float32(2) / 3
	tests := []struct {
		name string
		slot int
		want float32
	}{
		{"eye0 presence", InEye0, closeness / 3},
		{"eye0 red", InEye0 + 1, closeness},
		{"eye0 green", InEye0 + 2, closeness / 2},
		{"eye0 blue", InEye0 + 3, 0},
		{"eye1 blind", InEye1, 0},
		{"smell", InSmell, closeness},
		{"sound", InSound, closeness * 0.3},
		{"hearing", InHearing, closeness * 0.5},
		{"blood", InBlood, closeness * 0.5},
	}
	for _, tt := range tests {
		if got := in[tt.slot]; !approx(got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestComputeInputsNeighborBehind(t *testing.T) {
	in := make([]float32, NumInputs)
	self := SensorSelf{Heading: 0, Health: 1, Genome: frontEyeGenome()}
	neighbors := []Observed{{DX: -50, Dist: 50, Health: 0, Red: 1}}
	ComputeInputs(in, self, neighbors, 150)

	if in[InEye0] != 0 || in[InEye0+1] != 0 {
		t.Errorf("forward eye saw a neighbor behind: %v", in[InEye0:InEye0+4])
	}
	if in[InBlood] != 0 {
		t.Errorf("blood = %v for a neighbor behind", in[InBlood])
	}
	if in[InSmell] == 0 {
		t.Error("smell should not depend on direction")
	}
}

func TestComputeInputsEyeUsesDirection(t *testing.T) {
	g := frontEyeGenome()
	g.EyeFOV[0] = 0
	g.EyeFOV[2] = 0.5
	g.EyeDir[2] = math.Pi / 2 // looks left of the heading

	in := make([]float32, NumInputs)
	self := SensorSelf{Heading: 0, Health: 1, Genome: g}
	ComputeInputs(in, self, []Observed{{DY: 30, Dist: 30, Blue: 1}}, 150)

	if in[InEye2+3] == 0 {
		t.Error("side eye missed a neighbor in its field of view")
	}
	if in[InEye0+3] != 0 {
		t.Error("eye with zero field of view saw something")
	}
}

func TestComputeInputsIgnoresFarAndClamps(t *testing.T) {
	in := make([]float32, NumInputs)
	self := SensorSelf{Heading: 0, Health: 2, Genome: frontEyeGenome()}

	var crowd []Observed
	for i := 0; i < 50; i++ {
		crowd = append(crowd, Observed{DX: 10, Dist: 10, WheelMax: 1, Shout: 1, Red: 1, Green: 1, Blue: 1})
	}
	crowd = append(crowd, Observed{DX: 200, Dist: 200})
	ComputeInputs(in, self, crowd, 150)

	for i, v := range in {
		if v < 0 || v > 1 {
			t.Errorf("slot %d = %v outside [0,1]", i, v)
		}
	}
	if in[InSmell] != 1 {
		t.Errorf("crowded smell = %v, want clamped to 1", in[InSmell])
	}
}

func TestComputeInputsClocks(t *testing.T) {
	in := make([]float32, NumInputs)
	g := frontEyeGenome()
	self := SensorSelf{Tick: 157, Health: 1, Genome: g}
	ComputeInputs(in, self, nil, 150)

	want1 := float32(math.Abs(math.Sin(157.0 / 10)))
	want2 := float32(math.Abs(math.Sin(157.0 / 20)))
	if !approx(in[InClock1], want1) || !approx(in[InClock2], want2) {
		t.Errorf("clocks = (%v, %v), want (%v, %v)", in[InClock1], in[InClock2], want1, want2)
	}
}
