// Package actions extracts structured action suggestions from model output.
//
// DESIGN: Model text is untrusted input. Extraction is pure string work plus
// schema checks; nothing in here executes an action or touches storage. Every
// fenced action block is removed from the visible text, including malformed
// ones, so raw block syntax never reaches end users. Extraction is idempotent
// over its own output.
package actions

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/satmarket/assistant-gateway/internal/utils"
)

// SuggestedAction is one validated suggestion parsed from model output.
type SuggestedAction struct {
	Type       string `json:"type"`
	EntityType string `json:"entityType"`
	// Prefill carries the block's remaining fields as form seed values.
	Prefill map[string]any `json:"prefill"`
}

// ActionCreateEntity is the only action kind currently recognized.
const ActionCreateEntity = "create_entity"

// entityTypes are the entities a suggestion may target.
var entityTypes = map[string]bool{
	"product": true,
	"auction": true,
	"service": true,
	"event":   true,
}

var blockPattern = regexp.MustCompile("(?s)```action\\s*\\n(.*?)\\n?```")

// Extract removes every ```action fenced block from raw and returns the
// cleaned text plus the suggestions that validated. Invalid blocks are
// dropped silently from the result (logged at debug) but still removed from
// the text.
func Extract(raw string) (string, []SuggestedAction) {
	matches := blockPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}

	var suggestions []SuggestedAction
	for _, m := range matches {
		action, ok := parseBlock(m[1])
		if !ok {
			log.Debug().Str("block", utils.Truncate(m[1], 120)).Msg("discarding malformed action block")
			continue
		}
		suggestions = append(suggestions, action)
	}

	cleaned := blockPattern.ReplaceAllString(raw, "")
	cleaned = collapseBlankRuns(cleaned)
	return strings.TrimSpace(cleaned), suggestions
}

func parseBlock(body string) (SuggestedAction, bool) {
	body = strings.TrimSpace(body)
	if !gjson.Valid(body) {
		return SuggestedAction{}, false
	}
	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return SuggestedAction{}, false
	}

	if parsed.Get("action").String() != ActionCreateEntity {
		return SuggestedAction{}, false
	}
	entity := parsed.Get("entity_type").String()
	if !entityTypes[entity] {
		return SuggestedAction{}, false
	}
	if strings.TrimSpace(parsed.Get("title").String()) == "" {
		return SuggestedAction{}, false
	}

	// The prefill is the block minus the discriminator keys.
	rest := body
	var err error
	for _, key := range []string{"action", "entity_type"} {
		if rest, err = sjson.Delete(rest, key); err != nil {
			return SuggestedAction{}, false
		}
	}
	prefill, ok := gjson.Parse(rest).Value().(map[string]any)
	if !ok {
		return SuggestedAction{}, false
	}

	return SuggestedAction{
		Type:       ActionCreateEntity,
		EntityType: entity,
		Prefill:    prefill,
	}, true
}

// collapseBlankRuns squeezes the blank-line runs left behind by removed
// blocks down to a single blank line.
func collapseBlankRuns(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
