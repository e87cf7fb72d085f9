package systems

import "math"

const (
	pi    = math.Pi
	twoPi = 2 * math.Pi
)

// ClampFloat clamps a float32 value between min and max.
func ClampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// Clamp01 clamps a float32 value to the [0, 1] range. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeAngle wraps an angle to (-Pi, Pi].
func NormalizeAngle(angle float32) float32 {
	if angle > pi || angle <= -pi {
		angle = float32(math.Remainder(float64(angle), twoPi))
		if angle <= -pi {
			angle += twoPi
		}
	}
	return angle
}

// NormalizeHeading wraps a heading to [0, 2*Pi).
func NormalizeHeading(h float32) float32 {
	if h < 0 || h >= twoPi {
		h = float32(math.Mod(float64(h), twoPi))
		if h < 0 {
			h += twoPi
		}
		if h >= twoPi {
			h = 0
		}
	}
	return h
}

// AngleDiff returns the absolute shortest-arc difference between two angles,
// in [0, Pi].
func AngleDiff(a, b float32) float32 {
	d := NormalizeAngle(a - b)
	if d < 0 {
		d = -d
	}
	return d
}

// Wrap maps v into [0, size) with a floored modulo.
func Wrap(v, size float32) float32 {
	if v >= 0 && v < size {
		return v
	}
	m := float32(math.Mod(float64(v), float64(size)))
	if m < 0 {
		m += size
	}
	if m >= size {
		m = 0
	}
	return m
}

// ToroidalDelta returns the shortest path delta from (x1,y1) to (x2,y2).
func ToroidalDelta(x1, y1, x2, y2, w, h float32) (dx, dy float32) {
	dx = x2 - x1
	dy = y2 - y1

	if dx > w/2 {
		dx -= w
	} else if dx < -w/2 {
		dx += w
	}
	if dy > h/2 {
		dy -= h
	} else if dy < -h/2 {
		dy += h
	}

	return dx, dy
}

// ToroidalDistance returns the wrapped Euclidean distance between two points.
func ToroidalDistance(x1, y1, x2, y2, w, h float32) float32 {
	dx, dy := ToroidalDelta(x1, y1, x2, y2, w, h)
	return sqrt32(dx*dx + dy*dy)
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func atan232(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}
