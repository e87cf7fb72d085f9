package components

// Body holds the physical and display state of an agent.
type Body struct {
	Health float32 // [0,2], 0 is dead
	Spike  float32 // spike extension [0,1]
	Boost  bool
	Age    int32 // increments every 100 ticks
	Spiked bool  // hit by a spike this tick
	Red    float32
	Green  float32
	Blue   float32
	DFood  float32 // net health shared this tick, display only

	// Event indicator: a countdown with a color, set on births, kills and feeding
	Indicator  float32
	IndicatorR float32
	IndicatorG float32
	IndicatorB float32
}

// InitEvent starts an indicator event.
func (b *Body) InitEvent(size, r, g, bl float32) {
	b.Indicator = size
	b.IndicatorR = r
	b.IndicatorG = g
	b.IndicatorB = bl
}

// ClampHealth keeps health inside [0,2].
func (b *Body) ClampHealth() {
	if b.Health > 2 {
		b.Health = 2
	} else if !(b.Health >= 0) {
		b.Health = 0
	}
}
