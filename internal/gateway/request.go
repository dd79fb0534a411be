// Package gateway - request.go parses and validates chat requests.
package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/satmarket/assistant-gateway/internal/config"
)

// ChatTurn is one prior conversation turn supplied by the caller.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /v1/assistant/chat.
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history,omitempty"`
	// Model is a catalog id, "auto", or empty (treated as auto).
	Model  string `json:"model,omitempty"`
	Stream bool   `json:"stream,omitempty"`
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)

	var req ChatRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, errInvalid("malformed request body")
	}
	if err := validateChatRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func validateChatRequest(req *ChatRequest) error {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return errInvalid("message is required")
	}
	if len(req.Message) > config.MaxMessageLength {
		return errInvalid("message exceeds %d characters", config.MaxMessageLength)
	}

	if req.Model == "" {
		req.Model = config.AutoModelSentinel
	}

	// Keep the most recent turns; old history beyond the cap is dropped
	// rather than rejected.
	if len(req.History) > config.DefaultMaxHistoryTurns {
		req.History = req.History[len(req.History)-config.DefaultMaxHistoryTurns:]
	}
	for i := range req.History {
		switch req.History[i].Role {
		case "user", "assistant":
		default:
			return errInvalid("history[%d].role must be user or assistant", i)
		}
		if len(req.History[i].Content) > config.MaxMessageLength {
			return errInvalid("history[%d].content exceeds %d characters", i, config.MaxMessageLength)
		}
	}
	return nil
}
