package contextdocs

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/utils"
)

// Assembler renders a caller's documents into a single prompt block, bounded
// by an approximate token budget.
type Assembler struct {
	store       DocumentStore
	tokenBudget int
	maxDocs     int
}

// NewAssembler creates an assembler. A nil store disables context assembly
// (Build always returns the empty string).
func NewAssembler(store DocumentStore, tokenBudget, maxDocs int) *Assembler {
	return &Assembler{store: store, tokenBudget: tokenBudget, maxDocs: maxDocs}
}

// Build returns the context block for callerID, or "" when the caller has no
// documents. Storage failures degrade to an empty block: a completion without
// context beats a failed completion.
func (a *Assembler) Build(ctx context.Context, callerID string) string {
	if a == nil || a.store == nil {
		return ""
	}
	docs, err := a.store.ListDocuments(ctx, callerID, a.maxDocs)
	if err != nil {
		log.Warn().Err(err).Str("caller", callerID).Msg("context assembly degraded, continuing without documents")
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Caller documents:\n")
	used := utils.EstimateTokens("Caller documents:\n")
	included := 0
	for _, doc := range docs {
		section := "\n### " + doc.Title + "\n" + strings.TrimSpace(doc.Content) + "\n"
		cost := utils.EstimateTokens(section)
		if used+cost > a.tokenBudget {
			remaining := a.tokenBudget - used
			if remaining <= 0 || included == 0 && remaining < 16 {
				break
			}
			// Partial inclusion: keep the head of the document that fits.
			section = truncateToTokens(section, remaining)
			if section == "" {
				break
			}
			b.WriteString(section)
			included++
			break
		}
		b.WriteString(section)
		used += cost
		included++
	}
	if included == 0 {
		return ""
	}
	return b.String()
}

// truncateToTokens cuts s so its estimated token count fits within budget,
// trimming at a rune boundary.
func truncateToTokens(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	// Rough chars-per-token expansion, then verify with the real estimator.
	maxChars := budget * 4
	runes := []rune(s)
	if len(runes) > maxChars {
		runes = runes[:maxChars]
	}
	out := string(runes)
	for len(runes) > 0 && utils.EstimateTokens(out) > budget {
		runes = runes[:len(runes)*9/10]
		out = string(runes)
	}
	return out
}
