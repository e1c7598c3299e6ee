// Package retrieval implements the ranking pipeline. It loads every
// in-scope candidate, blends the vector, activation, and spreading
// kernels' signals by configured weights, thresholds by retrieval
// probability, and returns a ranked top-k, recording an access for each
// item actually returned.
package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vthunder/cogmem/internal/activation"
	"github.com/vthunder/cogmem/internal/cogerr"
	"github.com/vthunder/cogmem/internal/embedclient"
	"github.com/vthunder/cogmem/internal/logging"
	"github.com/vthunder/cogmem/internal/profiling"
	"github.com/vthunder/cogmem/internal/spreading"
	"github.com/vthunder/cogmem/internal/store"
	"github.com/vthunder/cogmem/internal/types"
	"github.com/vthunder/cogmem/internal/vectorkernel"
)

// Config holds the enumerated, non-normalized tunables from the retrieval
// procedure. Weights are used exactly as given and must not be silently
// renormalized; users tune them deliberately.
type Config struct {
	MaxResults      int
	MinProbability  float64
	Decay           float64
	Noise           float64
	Threshold       float64
	ProbeWeight     float64
	BaseLevelWeight float64
	SpreadingWeight float64
	ProbeTimeout    time.Duration
}

// DefaultConfig returns the engine's documented default tuning.
func DefaultConfig() Config {
	return Config{
		MaxResults:      10,
		MinProbability:  0.1,
		Decay:           activation.DefaultDecay,
		Noise:           activation.DefaultNoise,
		Threshold:       activation.DefaultThreshold,
		ProbeWeight:     0.4,
		BaseLevelWeight: 0.3,
		SpreadingWeight: 0.3,
		ProbeTimeout:    30 * time.Second,
	}
}

// Query is the input to a retrieval call.
type Query struct {
	ProbeText string
	// ProbeVector may be supplied directly, skipping embedding acquisition.
	ProbeVector []float64
	Kind        types.MemoryKind
	ProjectID   string
}

// Engine runs retrieval against a backing store and an optional embedder.
// A nil Embedder is a valid configuration: every query then runs in
// base-level-only mode.
type Engine struct {
	db     *store.DB
	embed  embedclient.Embedder
	config Config
}

// New constructs a retrieval Engine. embed may be nil.
func New(db *store.DB, embed embedclient.Embedder, config Config) *Engine {
	return &Engine{db: db, embed: embed, config: config}
}

// Retrieve runs the full pipeline and returns the ranked, filtered top-k,
// recording an access for every returned memory at a single `now` captured
// at call entry.
func (e *Engine) Retrieve(ctx context.Context, q Query) ([]types.ScoredMemory, error) {
	now := time.Now()
	queryID := uuid.NewString()
	prof := profiling.Get()

	stopProbe := prof.Start(queryID, "probe")
	probe, simMode := e.acquireProbe(ctx, q)
	stopProbe()

	stopLoad := prof.Start(queryID, "load_candidates")
	candidates, err := e.db.ListMemories(q.ProjectID, q.Kind)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		stopLoad()
		return nil, nil
	}

	embeddings, err := e.db.AllEmbeddings(store.SpaceText)
	if err != nil {
		return nil, err
	}
	stopLoad()

	stopScore := prof.Start(queryID, "score")
	scored := make([]types.ScoredMemory, 0, len(candidates))
	for _, m := range candidates {
		vec, hasVec := embeddings[m.ID]
		if simMode && !hasVec {
			continue // drop candidates without embeddings in similarity mode
		}

		history, err := e.db.AccessHistory(m.ID)
		if err != nil {
			return nil, err
		}
		lastAccess := m.CreatedAt
		accessTimesMs := make([]int64, len(history))
		for i, t := range history {
			accessTimesMs[i] = t.UnixMilli()
			if t.After(lastAccess) {
				lastAccess = t
			}
		}

		var sim, probeActivation, spread float64
		if simMode {
			sim, err = vectorkernel.Cosine(probe, vec)
			if err != nil {
				logging.Warn("retrieval", "skip candidate %s: %v", m.ID, err)
				continue
			}
			probeActivation = vectorkernel.Cube(sim)
			spread, err = e.spreadFor(m.ID, probe, embeddings)
			if err != nil {
				logging.Warn("retrieval", "spreading skipped for %s: %v", m.ID, err)
			}
		}

		base := activation.BaseLevel(accessTimesMs, now.UnixMilli(), e.config.Decay)
		// Three weighted terms per the scoring formula; emotional weight is a
		// stored Memory attribute, not a fourth ranking term.
		score := e.config.ProbeWeight*probeActivation + e.config.BaseLevelWeight*base + e.config.SpreadingWeight*spread
		probability := activation.Logistic(score, e.config.Threshold, e.config.Noise)

		if probability < e.config.MinProbability {
			continue
		}

		scored = append(scored, types.ScoredMemory{
			Memory:          m,
			Similarity:      sim,
			ProbeActivation: probeActivation,
			BaseLevel:       base,
			Spreading:       spread,
			Score:           score,
			Probability:     probability,
			LastAccess:      lastAccess,
		})
	}
	stopScore()

	stopSort := prof.Start(queryID, "sort")
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].LastAccess.Equal(scored[j].LastAccess) {
			return scored[i].LastAccess.After(scored[j].LastAccess)
		}
		return scored[i].Memory.ID < scored[j].Memory.ID
	})

	if len(scored) > e.config.MaxResults {
		scored = scored[:e.config.MaxResults]
	}
	stopSort()

	for _, s := range scored {
		if err := e.db.RecordAccess(s.Memory.ID, now); err != nil {
			return nil, err
		}
	}

	return scored, nil
}

// acquireProbe resolves the query to a probe vector, falling back to
// base-level-only ranking (simMode=false) when no vector can be obtained
// within the configured deadline. This is the pipeline's only suspension
// point and the only place a ProviderFailure or MissingEmbedding is
// recovered rather than propagated.
func (e *Engine) acquireProbe(ctx context.Context, q Query) (probe []float64, simMode bool) {
	if len(q.ProbeVector) > 0 {
		return q.ProbeVector, true
	}
	if q.ProbeText == "" || e.embed == nil {
		return nil, false
	}

	timeout := e.config.ProbeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := e.embed.Embed(ctx, q.ProbeText)
	if err != nil {
		if cogerr.Recoverable(err) || ctx.Err() != nil {
			logging.Warn("retrieval", "probe embedding unavailable, falling back to base-level ranking: %v", err)
			return nil, false
		}
		logging.Warn("retrieval", "probe embedding error, falling back to base-level ranking: %v", err)
		return nil, false
	}
	return vec, true
}

// spreadFor computes S(m) for one candidate using its stored associations
// and the already-loaded embedding map.
func (e *Engine) spreadFor(memoryID string, probe []float64, embeddings map[string][]float64) (float64, error) {
	assocs, err := e.db.AssociationsFor(memoryID)
	if err != nil {
		return 0, err
	}
	if len(assocs) == 0 {
		return 0, nil
	}

	edges := make([]spreading.Edge, 0, len(assocs))
	for _, a := range assocs {
		otherID := a.TargetID
		if otherID == memoryID {
			otherID = a.SourceID
		}
		edges = append(edges, spreading.Edge{
			OtherID:        otherID,
			Strength:       a.Strength,
			OtherEmbedding: embeddings[otherID],
		})
	}
	return spreading.Spread(edges, probe)
}

// RecordCreationAccess appends the creation-time access record required by
// the Memory invariant: every memory has at least one access record, its
// creation.
func (e *Engine) RecordCreationAccess(memoryID string, at time.Time) error {
	return e.db.RecordAccess(memoryID, at)
}
