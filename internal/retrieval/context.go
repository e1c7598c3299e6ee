package retrieval

import (
	"context"
	"fmt"
)

const (
	contextCandidateCap  = 10
	contextMinSim        = 0.3
	contextDefaultBudget = 300
	charsPerToken        = 4
)

// Context is the result of context assembly: the selected memories (by
// gist) and a human-readable summary line.
type Context struct {
	Selected []ContextItem
	Summary  string
}

// ContextItem is one memory admitted into the assembled context.
type ContextItem struct {
	MemoryID string
	Gist     string
	Tokens   int
}

// AssembleContext is the thin "current task" layer on top of Retrieve: it
// retrieves up to 10 candidates, drops weak raw-similarity matches, and
// greedily packs gists into a token budget in ranked order.
func (e *Engine) AssembleContext(ctx context.Context, q Query, tokenBudget int) (*Context, error) {
	if tokenBudget <= 0 {
		tokenBudget = contextDefaultBudget
	}

	capped := e.config
	capped.MaxResults = contextCandidateCap
	scoped := &Engine{db: e.db, embed: e.embed, config: capped}

	ranked, err := scoped.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	var selected []ContextItem
	used := 0
	for _, r := range ranked {
		if r.Similarity < contextMinSim {
			continue
		}
		gist := r.Memory.Gist
		if gist == "" {
			gist = r.Memory.Content
		}
		tokens := (len(gist) + charsPerToken - 1) / charsPerToken
		if used+tokens > tokenBudget {
			break // budget exhausted; ranked order means later items are no better fits
		}
		selected = append(selected, ContextItem{MemoryID: r.Memory.ID, Gist: gist, Tokens: tokens})
		used += tokens
	}

	return &Context{
		Selected: selected,
		Summary:  fmt.Sprintf("%d memories, ~%d tokens", len(selected), used),
	}, nil
}
