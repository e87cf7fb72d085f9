// Package components defines ECS components for the simulation.
package components

// NumEyes is the number of eyes every agent carries.
const NumEyes = 4

// Motor holds the decoded brain outputs that drive an agent this tick.
type Motor struct {
	Left  float32 // left wheel speed
	Right float32 // right wheel speed
	Shout float32
	Give  float32 // food sharing intent, >0.5 gives
}

// Sensors holds the brain input and output vectors.
// Both are refreshed every tick and only persisted for debugging.
type Sensors struct {
	In  []float32
	Out []float32
}

// IsHerbivore reports whether a herbivore axis value classifies an agent as a herbivore.
func IsHerbivore(herbivore float32) bool {
	return herbivore > 0.5
}
