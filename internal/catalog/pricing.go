package catalog

import "strings"

// conservative default for paid ids without explicit prices, to avoid
// silently under-reporting spend.
var defaultPricing = Descriptor{PromptSatsPerMTok: 5000, CompletionSatsPerMTok: 25000}

// CostSats computes the satoshi cost of a completion. Free models and the
// ":free" variants always cost zero. Unknown ids never dispatch (Resolve
// substitutes them first), so pricing only needs the descriptor table plus a
// conservative default guarding direct callers.
func CostSats(model string, inputTokens, outputTokens int) int64 {
	if IsFree(model) || strings.HasSuffix(model, ":free") {
		return 0
	}

	p, ok := Describe(model)
	if !ok {
		p = defaultPricing
	}

	sats := float64(inputTokens)/1_000_000*p.PromptSatsPerMTok +
		float64(outputTokens)/1_000_000*p.CompletionSatsPerMTok
	if sats <= 0 {
		return 0
	}
	// Round up: fractional sats always bill as one.
	out := int64(sats)
	if float64(out) < sats {
		out++
	}
	return out
}
