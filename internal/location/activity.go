package location

import (
	"strings"

	"github.com/tsawler/prose/v3"

	"github.com/vthunder/cogmem/internal/types"
)

// keywordActivity maps an activity-indicative token (lowercased word form) to
// its activity type, used by the keyword-precedence rule in InferActivity.
var keywordActivity = map[string]types.ActivityType{
	"debug":     types.ActivityDebugging,
	"debugging": types.ActivityDebugging,
	"fix":       types.ActivityDebugging,
	"fixing":    types.ActivityDebugging,
	"refactor":  types.ActivityRefactoring,
	"read":      types.ActivityReading,
	"reading":   types.ActivityReading,
	"review":    types.ActivityReviewing,
	"reviewing": types.ActivityReviewing,
	"write":     types.ActivityWriting,
	"writing":   types.ActivityWriting,
}

// toolActivity maps a tool name to its activity type, the third
// precedence level.
var toolActivity = map[string]types.ActivityType{
	"Read":      types.ActivityReading,
	"Edit":      types.ActivityWriting,
	"Write":     types.ActivityWriting,
	"MultiEdit": types.ActivityWriting,
}

// InferActivity resolves the activity type for a new access following the
// four-level precedence: explicit > keyword > tool > default (unknown).
//
// Grounded on bud2/memory-service/pkg/extract/prose.go's use of the prose
// NLP library for lightweight text analysis, adapted here from named-entity
// extraction to tokenizing the context string so keyword matching operates
// on actual word tokens rather than a raw substring search (avoiding false
// positives inside unrelated words).
func InferActivity(explicit types.ActivityType, context, tool string) types.ActivityType {
	if explicit != "" {
		return explicit
	}

	if context != "" {
		if act, ok := matchKeyword(context); ok {
			return act
		}
	}

	if tool != "" {
		if act, ok := toolActivity[tool]; ok {
			return act
		}
	}

	return types.ActivityUnknown
}

func matchKeyword(context string) (types.ActivityType, bool) {
	doc, err := prose.NewDocument(strings.ToLower(context), prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return "", false
	}
	for _, tok := range doc.Tokens() {
		if act, ok := keywordActivity[tok.Text]; ok {
			return act, true
		}
	}
	return "", false
}
