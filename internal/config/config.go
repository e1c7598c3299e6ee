// Package config loads engine and reference-harness configuration from the
// environment, a .env file, and an optional YAML tuning-profile overlay.
// Retrieval weights and location-decay parameters are exactly the values
// that must not be silently renormalized, so they're exposed here as
// per-deployment tuning rather than buried as code constants.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vthunder/cogmem/internal/location"
	"github.com/vthunder/cogmem/internal/retrieval"
)

// Config is the full engine + harness configuration.
type Config struct {
	StateDir   string
	OllamaURL  string
	EmbedModel string

	Retrieval retrieval.Config
	Decay     location.DecayConfig

	SweepInterval      time.Duration
	SweepBatchSize     int
	DecaySweepInterval time.Duration
}

// Tuning is the subset of Config that a YAML profile may override. The
// ambient env/dotenv layer owns paths and secrets; the YAML layer owns
// ranking and decay tunables.
type Tuning struct {
	MaxResults      *int     `yaml:"max_results"`
	MinProbability  *float64 `yaml:"min_probability"`
	Decay           *float64 `yaml:"decay"`
	Noise           *float64 `yaml:"noise"`
	Threshold       *float64 `yaml:"threshold"`
	ProbeWeight     *float64 `yaml:"probe_weight"`
	BaseLevelWeight *float64 `yaml:"base_level_weight"`
	SpreadingWeight *float64 `yaml:"spreading_weight"`

	LocationDecayFactor     *float64 `yaml:"location_decay_factor"`
	LocationStickyThreshold *float64 `yaml:"location_sticky_threshold"`
	LocationFloor           *float64 `yaml:"location_floor"`
	LocationWellKnownFloor  *float64 `yaml:"location_well_known_floor"`
}

// Load reads .env (if present), then the environment, then an optional
// YAML tuning file named by COGMEM_TUNING_FILE, layering in that order.
func Load() (Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	cfg := Config{
		StateDir:           envOr("COGMEM_STATE_DIR", "./data"),
		OllamaURL:          envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:         envOr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		Retrieval:          retrieval.DefaultConfig(),
		Decay:              location.DefaultDecayConfig(),
		SweepInterval:      envDurationOr("COGMEM_EMBED_SWEEP_INTERVAL", 5*time.Second),
		SweepBatchSize:     envIntOr("COGMEM_EMBED_SWEEP_BATCH", 10),
		DecaySweepInterval: envDurationOr("COGMEM_DECAY_SWEEP_INTERVAL", time.Hour),
	}

	if path := os.Getenv("COGMEM_TUNING_FILE"); path != "" {
		if err := applyTuningFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func applyTuningFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var t Tuning
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return err
	}

	if t.MaxResults != nil {
		cfg.Retrieval.MaxResults = *t.MaxResults
	}
	if t.MinProbability != nil {
		cfg.Retrieval.MinProbability = *t.MinProbability
	}
	if t.Decay != nil {
		cfg.Retrieval.Decay = *t.Decay
	}
	if t.Noise != nil {
		cfg.Retrieval.Noise = *t.Noise
	}
	if t.Threshold != nil {
		cfg.Retrieval.Threshold = *t.Threshold
	}
	if t.ProbeWeight != nil {
		cfg.Retrieval.ProbeWeight = *t.ProbeWeight
	}
	if t.BaseLevelWeight != nil {
		cfg.Retrieval.BaseLevelWeight = *t.BaseLevelWeight
	}
	if t.SpreadingWeight != nil {
		cfg.Retrieval.SpreadingWeight = *t.SpreadingWeight
	}

	if t.LocationDecayFactor != nil {
		cfg.Decay.DecayFactor = *t.LocationDecayFactor
	}
	if t.LocationStickyThreshold != nil {
		cfg.Decay.StickyThreshold = *t.LocationStickyThreshold
	}
	if t.LocationFloor != nil {
		cfg.Decay.Floor = *t.LocationFloor
	}
	if t.LocationWellKnownFloor != nil {
		cfg.Decay.WellKnownFloor = *t.LocationWellKnownFloor
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
