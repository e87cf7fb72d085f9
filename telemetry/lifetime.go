package telemetry

// LifetimeStats tracks per-agent statistics over its lifetime.
type LifetimeStats struct {
	BirthStep  int64
	Generation int
	Herbivore  float32
	Hybrid     bool

	// Combat
	Hits  int
	Kills int

	// Reproduction
	Children int

	// Food flows
	Shared     float32 // health given to others
	Received   float32 // health received from givers and carcasses
	Grazed     float32 // health gained from the food field
	PeakHealth float32
}

// LifetimeTracker manages per-agent lifetime statistics keyed by agent id.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a newly created agent.
func (lt *LifetimeTracker) Register(id uint32, birthStep int64, generation int, herbivore float32, hybrid bool) {
	lt.stats[id] = &LifetimeStats{
		BirthStep:  birthStep,
		Generation: generation,
		Herbivore:  herbivore,
		Hybrid:     hybrid,
	}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an agent's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordHit increments successful strike count.
func (lt *LifetimeTracker) RecordHit(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Hits++
	}
}

// RecordKill increments kill count.
func (lt *LifetimeTracker) RecordKill(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Kills++
	}
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// RecordShare moves amount from giver to receiver.
func (lt *LifetimeTracker) RecordShare(giver, receiver uint32, amount float32) {
	if s := lt.stats[giver]; s != nil {
		s.Shared += amount
	}
	if s := lt.stats[receiver]; s != nil {
		s.Received += amount
	}
}

// RecordReceive adds health received from a carcass.
func (lt *LifetimeTracker) RecordReceive(id uint32, amount float32) {
	if s := lt.stats[id]; s != nil {
		s.Received += amount
	}
}

// RecordGraze adds grazing gain to the cumulative total.
func (lt *LifetimeTracker) RecordGraze(id uint32, amount float32) {
	if s := lt.stats[id]; s != nil {
		s.Grazed += amount
	}
}

// UpdateHealth tracks peak health.
func (lt *LifetimeTracker) UpdateHealth(id uint32, health float32) {
	if s := lt.stats[id]; s != nil && health > s.PeakHealth {
		s.PeakHealth = health
	}
}

// Reset drops all tracked agents.
func (lt *LifetimeTracker) Reset() {
	clear(lt.stats)
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
