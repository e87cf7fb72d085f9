// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Agent      AgentConfig      `yaml:"agent"`
	Perception PerceptionConfig `yaml:"perception"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Food       FoodConfig       `yaml:"food"`
	Simulation SimulationConfig `yaml:"simulation"`
	Neural     NeuralConfig     `yaml:"neural"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world dimensions and food cell size.
type WorldConfig struct {
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	CellSize int `yaml:"cell_size"` // Food grid cell size in world units
}

// AgentConfig holds body and economy parameters shared by all agents.
type AgentConfig struct {
	Radius         float64 `yaml:"radius"`
	Speed          float64 `yaml:"speed"`
	SpikeSpeed     float64 `yaml:"spike_speed"`
	SpikeMult      float64 `yaml:"spike_mult"`
	Babies         int     `yaml:"babies"`
	BoostSizeMult  float64 `yaml:"boost_size_mult"`
	RepRateH       float64 `yaml:"rep_rate_h"` // Reproduction counter reset for herbivores
	RepRateC       float64 `yaml:"rep_rate_c"` // Reproduction counter reset for carnivores
	RepMult        float64 `yaml:"rep_mult"`   // Repcounter reduction per unit of carcass food
	BaseMetabolism float64 `yaml:"base_metabolism"`
}

// PerceptionConfig holds sensor parameters.
type PerceptionConfig struct {
	Distance     float64 `yaml:"distance"`       // Vision and hearing range
	GridCellSize float64 `yaml:"grid_cell_size"` // Spatial index cell size (0 = distance)
}

// EvolutionConfig holds meta-mutation parameters.
type EvolutionConfig struct {
	MetaMutRate1 float64 `yaml:"meta_mut_rate1"`
	MetaMutRate2 float64 `yaml:"meta_mut_rate2"`
}

// FoodConfig holds food field and food exchange parameters.
type FoodConfig struct {
	Intake             float64 `yaml:"intake"`
	Waste              float64 `yaml:"waste"`
	Max                float64 `yaml:"max"`
	AddFrequency       int     `yaml:"add_frequency"`
	Transfer           float64 `yaml:"transfer"`
	SharingDistance    float64 `yaml:"sharing_distance"`
	DistributionRadius float64 `yaml:"distribution_radius"`
	InitialFill        float64 `yaml:"initial_fill"` // Fraction of cells filled at start
}

// SimulationConfig holds population management parameters.
type SimulationConfig struct {
	NumBots                  int  `yaml:"num_bots"`
	RandomSpawnEpochInterval int  `yaml:"random_spawn_epoch_interval"`
	RandomSpawnCount         int  `yaml:"random_spawn_count"`
	InitialClosed            bool `yaml:"initial_closed"`
	HerbivoreRepopulation    int  `yaml:"herbivore_repopulation"`
	CarnivoreRepopulation    int  `yaml:"carnivore_repopulation"`
}

// NeuralConfig holds brain parameters.
type NeuralConfig struct {
	Kind        string `yaml:"kind"` // dwraon, mlp or assembly
	Inputs      int    `yaml:"inputs"`
	Outputs     int    `yaml:"outputs"`
	Size        int    `yaml:"size"`        // DWRAON boxes / assembly instructions
	Connections int    `yaml:"connections"` // DWRAON inputs per box
	Hidden      int    `yaml:"hidden"`      // MLP hidden layer size
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow     int `yaml:"stats_window"` // Ticks per stats window
	PerfWindow      int `yaml:"perf_window"`
	HistoryInterval int `yaml:"history_interval"`
	HistoryLength   int `yaml:"history_length"`
}

// StorageConfig holds snapshot persistence parameters.
type StorageConfig struct {
	Kind              string `yaml:"kind"` // memory, file or sqlite
	Path              string `yaml:"path"`
	AutosaveFrequency int    `yaml:"autosave_frequency"` // Epochs between autosaves (0 = off)
	SaveDir           string `yaml:"save_dir"`
}

// ServerConfig holds live feed parameters.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	BroadcastInterval int    `yaml:"broadcast_interval"` // Ticks between frames
	AllowAnyOrigin    bool   `yaml:"allow_any_origin"`   // Accept cross-origin websocket clients
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW32     float32
	WorldH32     float32
	CellSize32   float32
	FoodW        int // Food grid columns
	FoodH        int // Food grid rows
	Radius32     float32
	Distance32   float32
	GridCellSize float32
	FoodMax32    float32
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. Invalid fields are
// replaced with their defaults and reported through slog.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	for _, w := range cfg.Validate() {
		slog.Warn("config_invalid", "field", w.Field, "value", w.Value, "default", w.Default)
	}
	cfg.computeDerived()

	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// MustDefault is like Default but panics on error.
func MustDefault() *Config {
	cfg, err := Default()
	if err != nil {
		panic(fmt.Sprintf("config: failed to load defaults: %v", err))
	}
	return cfg
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Refresh recomputes derived values after fields were changed in place.
func (c *Config) Refresh() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.CellSize32 = float32(c.World.CellSize)
	c.Derived.Radius32 = float32(c.Agent.Radius)
	c.Derived.Distance32 = float32(c.Perception.Distance)
	c.Derived.FoodMax32 = float32(c.Food.Max)

	if c.World.CellSize > 0 {
		c.Derived.FoodW = c.World.Width / c.World.CellSize
		c.Derived.FoodH = c.World.Height / c.World.CellSize
	}

	// The spatial index must cover the largest neighbor radius in one ring
	c.Derived.GridCellSize = float32(c.Perception.GridCellSize)
	if c.Derived.GridCellSize <= 0 {
		c.Derived.GridCellSize = c.Derived.Distance32
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
