// Package profiling provides opt-in stage timing for the retrieval
// pipeline: a global profiler that records how long each pipeline stage
// (probe acquisition, candidate load, scoring, sort) takes per query,
// written as newline-delimited JSON, one line per recorded stage.
//
// Grounded on bud2/internal/profiling/profiler.go's level/Start/Record
// shape, adapted from per-conversation-message timing to per-retrieval-
// query timing.
package profiling

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Level switches profiling on or off. Any level other than LevelOff
// enables it; LevelMinimal and LevelDetailed record the same stages.
type Level string

const (
	LevelOff      Level = "off"
	LevelMinimal  Level = "minimal"
	LevelDetailed Level = "detailed"
)

// StageTiming is a single timing measurement for one pipeline stage of one
// query.
type StageTiming struct {
	QueryID    string                 `json:"query_id"`
	Stage      string                 `json:"stage"`
	StartTime  time.Time              `json:"start_time"`
	DurationMs float64                `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Profiler records stage timings for retrieval queries.
type Profiler struct {
	enabled bool
	level   Level
	logPath string
	mu      sync.Mutex
	logFile *os.File
	encoder *json.Encoder
}

var (
	global Profiler
	once   sync.Once
)

// Init initializes the process-wide profiler. Safe to call multiple
// times; only the first call takes effect.
func Init(level Level, logPath string) error {
	var err error
	once.Do(func() {
		global = Profiler{enabled: level != LevelOff, level: level, logPath: logPath}
		if global.enabled {
			err = global.openLogFile()
		}
	})
	return err
}

// Get returns the process-wide profiler, defaulting to disabled if Init
// was never called.
func Get() *Profiler {
	return &global
}

func (p *Profiler) openLogFile() error {
	f, err := os.OpenFile(p.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open profiling log: %w", err)
	}
	p.logFile = f
	p.encoder = json.NewEncoder(f)
	return nil
}

// Close closes the profiler's log file, if open.
func (p *Profiler) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.logFile != nil {
		return p.logFile.Close()
	}
	return nil
}

// Start begins timing a stage for queryID and returns a function to call
// when the stage completes.
func (p *Profiler) Start(queryID, stage string) func() {
	if !p.enabled {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(queryID, stage, time.Since(start), nil)
	}
}

// Record records a completed timing measurement.
func (p *Profiler) Record(queryID, stage string, duration time.Duration, metadata map[string]interface{}) {
	if !p.enabled {
		return
	}
	timing := StageTiming{
		QueryID:    queryID,
		Stage:      stage,
		StartTime:  time.Now().Add(-duration),
		DurationMs: float64(duration.Nanoseconds()) / 1e6,
		Metadata:   metadata,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.encoder != nil {
		_ = p.encoder.Encode(timing)
	}
}

// IsEnabled reports whether profiling is active.
func (p *Profiler) IsEnabled() bool {
	return p.enabled
}
