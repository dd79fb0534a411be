package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productBlock = "```action\n" +
	`{"action": "create_entity", "entity_type": "product", "title": "Signed paperback", "price_sats": 21000, "description": "First edition"}` +
	"\n```"

func TestExtract_NoBlocksPassThrough(t *testing.T) {
	in := "Just a plain answer with a ```go\ncode fence\n``` inside."
	out, acts := Extract(in)
	assert.Equal(t, in, out)
	assert.Empty(t, acts)
}

func TestExtract_ProductSuggestion(t *testing.T) {
	in := "I can list that for you.\n\n" + productBlock + "\n\nWant me to adjust the price?"
	out, acts := Extract(in)

	require.Len(t, acts, 1)
	a := acts[0]
	assert.Equal(t, ActionCreateEntity, a.Type)
	assert.Equal(t, "product", a.EntityType)
	assert.Equal(t, "Signed paperback", a.Prefill["title"])
	assert.Equal(t, float64(21000), a.Prefill["price_sats"])
	assert.NotContains(t, a.Prefill, "action", "discriminator keys stay out of the prefill")
	assert.NotContains(t, a.Prefill, "entity_type")

	assert.NotContains(t, out, "```action")
	assert.Contains(t, out, "I can list that for you.")
	assert.Contains(t, out, "Want me to adjust the price?")
}

func TestExtract_MalformedBlockStillRemoved(t *testing.T) {
	in := "Here:\n```action\n{not json at all\n```\nDone."
	out, acts := Extract(in)
	assert.Empty(t, acts)
	assert.NotContains(t, out, "```action")
	assert.NotContains(t, out, "not json")
	assert.Contains(t, out, "Done.")
}

func TestExtract_RejectsUnknownEntityType(t *testing.T) {
	in := "```action\n" + `{"action": "create_entity", "entity_type": "spaceship", "title": "X"}` + "\n```"
	out, acts := Extract(in)
	assert.Empty(t, acts)
	assert.NotContains(t, out, "```action")
	assert.Empty(t, out)
}

func TestExtract_RejectsMissingTitle(t *testing.T) {
	in := "```action\n" + `{"action": "create_entity", "entity_type": "product", "title": "  "}` + "\n```"
	_, acts := Extract(in)
	assert.Empty(t, acts)
}

func TestExtract_RejectsUnknownActionKind(t *testing.T) {
	in := "```action\n" + `{"action": "delete_everything", "entity_type": "product", "title": "X"}` + "\n```"
	_, acts := Extract(in)
	assert.Empty(t, acts)
}

func TestExtract_MultipleBlocks(t *testing.T) {
	second := "```action\n" + `{"action": "create_entity", "entity_type": "event", "title": "Book signing", "date": "2026-09-01"}` + "\n```"
	in := "Two ideas:\n" + productBlock + "\nand\n" + second
	out, acts := Extract(in)

	require.Len(t, acts, 2)
	assert.Equal(t, "product", acts[0].EntityType)
	assert.Equal(t, "event", acts[1].EntityType)
	assert.Equal(t, "Book signing", acts[1].Prefill["title"])
	assert.NotContains(t, out, "```action")
}

func TestExtract_Idempotent(t *testing.T) {
	in := "Answer.\n" + productBlock
	once, acts := Extract(in)
	require.Len(t, acts, 1)

	twice, acts2 := Extract(once)
	assert.Equal(t, once, twice)
	assert.Empty(t, acts2)
}

func TestExtract_NestedObjectPrefill(t *testing.T) {
	in := "```action\n" + `{"action": "create_entity", "entity_type": "service", "title": "Editing", "rates": {"hourly_sats": 5000}}` + "\n```"
	_, acts := Extract(in)
	require.Len(t, acts, 1)
	rates, ok := acts[0].Prefill["rates"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5000), rates["hourly_sats"])
}
