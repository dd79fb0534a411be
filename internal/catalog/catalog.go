// Package catalog is the static model registry and free-tier policy source.
//
// DESIGN: Descriptors are immutable; every accepted model id resolves to
// exactly one descriptor. Unknown ids are substituted with the default free
// model before dispatch rather than rejected.
package catalog

// Descriptor is one catalog entry for an upstream model.
type Descriptor struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Free    bool   `json:"free"`
	Context int    `json:"context"`
	// Prices in satoshis per million tokens. Zero for free models.
	PromptSatsPerMTok     float64 `json:"prompt_sats_per_mtok"`
	CompletionSatsPerMTok float64 `json:"completion_sats_per_mtok"`
}

// DefaultFreeModel is the fixed fallback for unknown ids and the baseline
// choice for auto-routing.
const DefaultFreeModel = "meta-llama/llama-3.3-70b-instruct:free"

var descriptors = []Descriptor{
	{ID: "meta-llama/llama-3.3-70b-instruct:free", Label: "Llama 3.3 70B (free)", Free: true, Context: 131072},
	{ID: "google/gemini-2.0-flash-exp:free", Label: "Gemini 2.0 Flash (free)", Free: true, Context: 1048576},
	{ID: "qwen/qwen-2.5-coder-32b-instruct:free", Label: "Qwen 2.5 Coder 32B (free)", Free: true, Context: 32768},
	{ID: "mistralai/mistral-small-3.1:free", Label: "Mistral Small 3.1 (free)", Free: true, Context: 96000},

	{ID: "openai/gpt-4o", Label: "GPT-4o", Context: 128000, PromptSatsPerMTok: 2500, CompletionSatsPerMTok: 10000},
	{ID: "openai/gpt-4o-mini", Label: "GPT-4o mini", Context: 128000, PromptSatsPerMTok: 150, CompletionSatsPerMTok: 600},
	{ID: "anthropic/claude-3.5-sonnet", Label: "Claude 3.5 Sonnet", Context: 200000, PromptSatsPerMTok: 3000, CompletionSatsPerMTok: 15000},
	{ID: "anthropic/claude-3.5-haiku", Label: "Claude 3.5 Haiku", Context: 200000, PromptSatsPerMTok: 1000, CompletionSatsPerMTok: 5000},
	{ID: "google/gemini-1.5-pro", Label: "Gemini 1.5 Pro", Context: 2097152, PromptSatsPerMTok: 1250, CompletionSatsPerMTok: 5000},
}

var byID = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.ID] = d
	}
	return m
}()

// Describe returns the descriptor for id, or ok=false for unknown ids.
func Describe(id string) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// IsFree reports whether id names a free model. Unknown ids are not free.
func IsFree(id string) bool {
	d, ok := byID[id]
	return ok && d.Free
}

// ListFree returns all free descriptors in catalog order.
func ListFree() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Free {
			out = append(out, d)
		}
	}
	return out
}

// FreeIDs returns the ids of all free models in catalog order.
func FreeIDs() []string {
	free := ListFree()
	ids := make([]string, len(free))
	for i, d := range free {
		ids[i] = d.ID
	}
	return ids
}

// All returns every descriptor in catalog order.
func All() []Descriptor {
	return append([]Descriptor(nil), descriptors...)
}

// Resolve maps a requested id onto a dispatchable one: known ids pass
// through, anything else becomes the default free model.
func Resolve(id string) Descriptor {
	if d, ok := byID[id]; ok {
		return d
	}
	return byID[DefaultFreeModel]
}
