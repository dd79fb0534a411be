package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// charsPerToken is the fallback ratio when the tokenizer is unavailable.
const charsPerToken = 4

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// tokenEncoder lazily initializes the cl100k_base encoder. Initialization can
// fail offline (the BPE ranks may need fetching); we fall back to a chars/4
// estimate rather than erroring.
func tokenEncoder() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			log.Debug().Err(err).Msg("tokenizer unavailable, using char ratio estimates")
			return
		}
		encoding = enc
	})
	return encoding
}

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	if enc := tokenEncoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}
