// Package router picks a concrete model when the caller asks for automatic
// selection.
//
// DESIGN: Pure heuristics over the request text, no upstream calls and no
// stored state. The selection is advisory quality tuning; correctness only
// requires that the result is a valid catalog id and, when the caller is
// restricted to a set of allowed models, a member of that set.
package router

import (
	"regexp"

	"github.com/satmarket/assistant-gateway/internal/catalog"
	"github.com/satmarket/assistant-gateway/internal/utils"
)

// Selection is the input to automatic model choice.
type Selection struct {
	// Message is the latest user message.
	Message string
	// History holds prior conversation turns, oldest first.
	History []string
	// Allowed restricts the outcome to these model ids. Empty means any
	// catalog model.
	Allowed []string
}

// Roughly: fenced code, import/func/class keywords, or stack-trace shapes.
var codePattern = regexp.MustCompile("(?s)```|\\b(func |def |class |import |package |#include|SELECT .+ FROM|Traceback \\(most recent)")

// longContextTokens is the point where conversation size starts to matter
// more than model skill.
const longContextTokens = 6000

const (
	codeModel        = "qwen/qwen-2.5-coder-32b-instruct:free"
	longContextModel = "google/gemini-2.0-flash-exp:free"
)

// Select returns the model id to use for sel. The result is always a known
// catalog id; when sel.Allowed is non-empty the result is one of its members.
func Select(sel Selection) string {
	pick := heuristicPick(sel)
	if len(sel.Allowed) == 0 {
		return pick
	}
	for _, id := range sel.Allowed {
		if id == pick {
			return pick
		}
	}
	// Preference not available to this caller; fall back to the first
	// allowed id the catalog knows, else the first allowed id verbatim
	// (unknown ids get substituted later during catalog resolution).
	for _, id := range sel.Allowed {
		if _, ok := catalog.Describe(id); ok {
			return id
		}
	}
	return sel.Allowed[0]
}

func heuristicPick(sel Selection) string {
	if codePattern.MatchString(sel.Message) {
		return codeModel
	}

	total := utils.EstimateTokens(sel.Message)
	for _, turn := range sel.History {
		total += utils.EstimateTokens(turn)
	}
	if total > longContextTokens {
		return longContextModel
	}

	return catalog.DefaultFreeModel
}
