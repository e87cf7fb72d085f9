package systems

import (
	"math"

	"github.com/pthm-cable/scriptbots/components"
)

// Input slots. Eyes are interleaved with the scalar senses.
const (
	InEye0    = 0 // presence, R, G, B
	InFood    = 4
	InEye1    = 5
	InSound   = 9
	InSmell   = 10
	InHealth  = 11
	InEye2    = 12
	InClock1  = 16
	InClock2  = 17
	InHearing = 18
	InBlood   = 19
	InEye3    = 20

	NumInputs = 24
)

// Output slots.
const (
	OutLeft    = 0
	OutRight   = 1
	OutRed     = 2
	OutGreen   = 3
	OutBlue    = 4
	OutSpike   = 5
	OutBoost   = 6
	OutShout   = 7
	OutGive    = 8
	NumOutputs = 9
)

// eyeSlots maps an eye index to the first of its four input slots.
var eyeSlots = [components.NumEyes]int{InEye0, InEye1, InEye2, InEye3}

// bloodFOV is the half-angle of the forward blood sensor.
const bloodFOV = 3 * math.Pi / 16

// Observed is what a sensing agent knows about one neighbor.
type Observed struct {
	DX, DY   float32 // toroidal delta from the sensing agent
	Dist     float32
	WheelMax float32 // max(|wl|, |wr|)
	Shout    float32
	Health   float32
	Red      float32
	Green    float32
	Blue     float32
}

// SensorSelf is the sensing agent's own state.
type SensorSelf struct {
	Heading  float32
	Health   float32
	FoodFrac float32 // food at the agent's cell over the food cap
	Tick     int
	Genome   *components.Genome
}

// ComputeInputs fills dst (length NumInputs) from the agent's own state and
// the neighbors within distance. Every slot ends up in [0, 1].
func ComputeInputs(dst []float32, self SensorSelf, neighbors []Observed, distance float32) {
	g := self.Genome

	var p, r, gr, b [components.NumEyes]float32
	var smell, sound, hearing, blood float32

	for i := range neighbors {
		n := &neighbors[i]
		if n.Dist >= distance {
			continue
		}
		closeness := (distance - n.Dist) / distance

		smell += closeness
		sound += closeness * n.WheelMax
		hearing += closeness * n.Shout

		bearing := atan232(n.DY, n.DX)

		for q := 0; q < components.NumEyes; q++ {
			fov := g.EyeFOV[q]
			diff := AngleDiff(self.Heading+g.EyeDir[q], bearing)
			if diff < fov {
				mul := g.EyeSens * ((fov - diff) / fov) * closeness
				p[q] += mul * (n.Dist / distance)
				r[q] += mul * n.Red
				gr[q] += mul * n.Green
				b[q] += mul * n.Blue
			}
		}

		if diff := AngleDiff(self.Heading, bearing); diff < bloodFOV {
			mul := ((bloodFOV - diff) / bloodFOV) * closeness
			blood += mul * (1 - n.Health/2)
		}
	}

	for q, slot := range eyeSlots {
		dst[slot] = Clamp01(p[q])
		dst[slot+1] = Clamp01(r[q])
		dst[slot+2] = Clamp01(gr[q])
		dst[slot+3] = Clamp01(b[q])
	}

	dst[InFood] = Clamp01(self.FoodFrac)
	dst[InSound] = Clamp01(sound * g.SoundMod)
	dst[InSmell] = Clamp01(smell * g.SmellMod)
	dst[InHealth] = Clamp01(self.Health / 2)
	dst[InClock1] = clock(self.Tick, g.Clock1)
	dst[InClock2] = clock(self.Tick, g.Clock2)
	dst[InHearing] = Clamp01(hearing * g.HearMod)
	dst[InBlood] = Clamp01(blood * g.BloodMod)
}

func clock(tick int, period float32) float32 {
	if period <= 0 {
		return 0
	}
	return float32(math.Abs(math.Sin(float64(tick) / float64(period))))
}
