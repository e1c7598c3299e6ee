package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StateDir != "./data" {
		t.Errorf("StateDir = %q, want ./data", cfg.StateDir)
	}
	if cfg.EmbedModel != "nomic-embed-text" {
		t.Errorf("EmbedModel = %q, want nomic-embed-text", cfg.EmbedModel)
	}
	if cfg.Retrieval.MaxResults != 10 {
		t.Errorf("Retrieval.MaxResults = %d, want 10 (the default)", cfg.Retrieval.MaxResults)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("COGMEM_STATE_DIR", "/var/lib/cogmem")
	t.Setenv("OLLAMA_EMBED_MODEL", "custom-model")
	t.Setenv("COGMEM_EMBED_SWEEP_BATCH", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StateDir != "/var/lib/cogmem" {
		t.Errorf("StateDir = %q, want /var/lib/cogmem", cfg.StateDir)
	}
	if cfg.EmbedModel != "custom-model" {
		t.Errorf("EmbedModel = %q, want custom-model", cfg.EmbedModel)
	}
	if cfg.SweepBatchSize != 25 {
		t.Errorf("SweepBatchSize = %d, want 25", cfg.SweepBatchSize)
	}
}

func TestLoad_InvalidEnvIntFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("COGMEM_EMBED_SWEEP_BATCH", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SweepBatchSize != 10 {
		t.Errorf("SweepBatchSize = %d, want fallback of 10", cfg.SweepBatchSize)
	}
}

func TestLoad_TuningFileOverlaysRetrievalWeights(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	yaml := "max_results: 25\nprobe_weight: 0.6\nlocation_decay_factor: 0.2\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COGMEM_TUNING_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retrieval.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", cfg.Retrieval.MaxResults)
	}
	if cfg.Retrieval.ProbeWeight != 0.6 {
		t.Errorf("ProbeWeight = %v, want 0.6", cfg.Retrieval.ProbeWeight)
	}
	if cfg.Decay.DecayFactor != 0.2 {
		t.Errorf("DecayFactor = %v, want 0.2", cfg.Decay.DecayFactor)
	}
	// untouched fields keep their defaults
	if cfg.Retrieval.BaseLevelWeight != 0.3 {
		t.Errorf("BaseLevelWeight should be unchanged by a partial overlay, got %v", cfg.Retrieval.BaseLevelWeight)
	}
}

func TestLoad_MissingTuningFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("COGMEM_TUNING_FILE", "/nonexistent/tuning.yaml")
	if _, err := Load(); err == nil {
		t.Error("expected an error when COGMEM_TUNING_FILE names a missing file")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"COGMEM_STATE_DIR", "OLLAMA_URL", "OLLAMA_EMBED_MODEL",
		"COGMEM_EMBED_SWEEP_INTERVAL", "COGMEM_EMBED_SWEEP_BATCH", "COGMEM_DECAY_SWEEP_INTERVAL",
		"COGMEM_TUNING_FILE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}
