package systems

import "math"

// DriveParams holds the world constants used by Drive.
type DriveParams struct {
	Radius    float32 // body radius, wheels sit at Radius/2 either side
	Speed     float32 // distance per unit wheel output
	BoostMult float32
	Width     float32
	Height    float32
}

// Drive moves a two-wheeled body for one tick. The body first pivots about
// its right wheel by the left wheel's travel, then about its left wheel by
// the right wheel's travel. The heading is returned in (-Pi, Pi] and the
// position is wrapped onto the torus.
func Drive(x, y, heading, left, right float32, boost bool, p DriveParams) (nx, ny, nh float32) {
	bw1 := float64(p.Speed * left)
	bw2 := float64(p.Speed * right)
	if boost {
		bw1 *= float64(p.BoostMult)
		bw2 *= float64(p.BoostMult)
	}

	// Wheel offset, perpendicular to the heading
	half := float64(p.Radius) / 2
	perp := float64(heading) + math.Pi/2
	vx, vy := half*math.Cos(perp), half*math.Sin(perp)

	px, py := float64(x), float64(y)
	w1x, w1y := px+vx, py+vy
	w2x, w2y := px-vx, py-vy

	// Pivot about the right wheel
	rx, ry := rotate(w2x-px, w2y-py, -bw1)
	px, py = w2x-rx, w2y-ry
	h := float64(heading) - bw1

	// Pivot about the left wheel
	rx, ry = rotate(px-w1x, py-w1y, bw2)
	px, py = w1x+rx, w1y+ry
	h += bw2

	nh = NormalizeAngle(float32(h))
	nx = Wrap(float32(px), p.Width)
	ny = Wrap(float32(py), p.Height)
	return nx, ny, nh
}

func rotate(x, y, theta float64) (float64, float64) {
	s, c := math.Sincos(theta)
	return x*c - y*s, x*s + y*c
}

// GrowSpike moves the spike toward target: it extends by at most speed per
// tick and retracts instantly.
func GrowSpike(spike, target, speed float32) float32 {
	if spike < target {
		spike += speed
		if spike > target {
			spike = target
		}
	} else if spike > target {
		spike = target
	}
	return Clamp01(spike)
}

// Intake returns the health gained from grazing a food cell holding f and
// the amount removed from the cell.
func Intake(f, health, herbivore, left, right, maxIntake, waste float32) (gain, eaten float32) {
	if !(f > 0) || health >= 2 {
		return 0, 0
	}
	itk := min(f, maxIntake)
	speedMul := (1-(abs32(left)+abs32(right))/2)*0.7 + 0.3
	return itk * herbivore * speedMul, min(f, waste)
}

// StrikeParams holds the combat constants.
type StrikeParams struct {
	Radius    float32
	SpikeMult float32
	BoostMult float32
}

// CanAttack reports whether an agent is armed and moving fast enough to strike.
func CanAttack(herbivore, spike, left, right float32) bool {
	return herbivore < 0.8 && spike >= 0.2 && left >= 0.5 && right >= 0.5
}

// StrikeDamage returns the damage dealt when an attacker whose heading is
// given hits a victim at (dx, dy) relative to it. ok is false when the victim
// is out of reach or outside the pi/8 cone ahead of the attacker.
func StrikeDamage(heading, dx, dy, spike, left, right float32, boost bool, p StrikeParams) (dmg float32, ok bool) {
	reach := 2 * p.Radius
	if dx*dx+dy*dy >= reach*reach {
		return 0, false
	}
	if AngleDiff(heading, atan232(dy, dx)) >= math.Pi/8 {
		return 0, false
	}
	mult := float32(1)
	if boost {
		mult = p.BoostMult
	}
	return p.SpikeMult * spike * max(abs32(left), abs32(right)) * mult, true
}

// FromBehind reports whether two headings differ by less than pi/2.
func FromBehind(attacker, victim float32) bool {
	return AngleDiff(attacker, victim) < math.Pi/2
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
