package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satmarket/assistant-gateway/internal/catalog"
)

func TestSelect_CodeGoesToCoderModel(t *testing.T) {
	cases := []string{
		"why does this fail?\n```go\nfunc main() {}\n```",
		"fix my query: SELECT id FROM orders WHERE total > 10",
		"Traceback (most recent call last):\n  File \"app.py\", line 3",
	}
	for _, msg := range cases {
		assert.Equal(t, codeModel, Select(Selection{Message: msg}), msg)
	}
}

func TestSelect_LongConversationPrefersLargeContext(t *testing.T) {
	turn := strings.Repeat("we talked about pricing and inventory at length ", 150)
	sel := Selection{
		Message: "so what should I do next?",
		History: []string{turn, turn, turn, turn, turn, turn, turn, turn},
	}
	assert.Equal(t, longContextModel, Select(sel))
}

func TestSelect_DefaultForPlainChat(t *testing.T) {
	assert.Equal(t, catalog.DefaultFreeModel, Select(Selection{Message: "hi, how do refunds work?"}))
}

func TestSelect_HonorsAllowedSet(t *testing.T) {
	sel := Selection{
		Message: "```python\nprint('hi')\n```",
		Allowed: []string{catalog.DefaultFreeModel},
	}
	assert.Equal(t, catalog.DefaultFreeModel, Select(sel),
		"heuristic pick outside the allowed set must be replaced")
}

func TestSelect_AllowedContainsPick(t *testing.T) {
	sel := Selection{
		Message: "```python\nprint('hi')\n```",
		Allowed: []string{catalog.DefaultFreeModel, codeModel},
	}
	assert.Equal(t, codeModel, Select(sel))
}

func TestSelect_UnknownAllowedStaysInSet(t *testing.T) {
	sel := Selection{Message: "hello", Allowed: []string{"no/such-model"}}
	assert.Equal(t, "no/such-model", Select(sel))
}
