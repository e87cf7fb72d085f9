package components

// Genome holds the evolvable traits of an agent.
type Genome struct {
	Herbivore float32 // 0 obligate carnivore, 1 obligate herbivore
	Clock1    float32 // oscillator periods, >= 2
	Clock2    float32
	MutRate1  float32 // mutation probability, >= 0.001
	MutRate2  float32 // mutation magnitude, >= 0.02

	SmellMod float32
	SoundMod float32
	HearMod  float32
	EyeSens  float32
	BloodMod float32

	EyeFOV [NumEyes]float32 // half-angle, >= 0
	EyeDir [NumEyes]float32 // offset from heading, [0, 2Pi]

	TempPreference float32
}

// MaxMutationLog caps the number of mutation log entries kept per agent.
const MaxMutationLog = 32

// Organism holds identity and reproduction bookkeeping.
type Organism struct {
	ID         uint32
	RepCounter float32 // reproduces when negative
	Generation int32
	Hybrid     bool // produced by crossover
	Selected   bool
	Lineage    string
	Mutations  []string
}

// LogMutation appends an entry to the mutation log, dropping the oldest
// entries beyond MaxMutationLog.
func (o *Organism) LogMutation(entry string) {
	o.Mutations = append(o.Mutations, entry)
	if n := len(o.Mutations); n > MaxMutationLog {
		o.Mutations = append(o.Mutations[:0], o.Mutations[n-MaxMutationLog:]...)
	}
}
