// Package gateway types - response and frame shapes for the chat transports.
//
// DESIGN: The non-streaming response and the terminal streaming frame carry
// the same usage and status payloads so clients can share handling. Frames
// are discriminated structurally: a model frame has only "model", content
// frames have "content", the terminal frame has "done": true, and error
// frames have "error".
package gateway

import (
	"github.com/satmarket/assistant-gateway/internal/actions"
)

// UserStatus tells the client how the caller is funded and what remains of
// the daily free allowance.
type UserStatus struct {
	HasByok               bool `json:"hasByok"`
	FreeMessagesPerDay    int  `json:"freeMessagesPerDay"`
	FreeMessagesRemaining int  `json:"freeMessagesRemaining"`
}

// UsagePayload is the token and cost accounting reported to the client.
type UsagePayload struct {
	InputTokens  int  `json:"inputTokens"`
	OutputTokens int  `json:"outputTokens"`
	TotalTokens  int  `json:"totalTokens"`
	Estimated    bool `json:"estimated,omitempty"`
	// ApiCostSats is present only for caller-funded paid models.
	ApiCostSats *int64 `json:"apiCostSats,omitempty"`
	IsFreeModel bool   `json:"isFreeModel"`
	UsedByok    bool   `json:"usedByok"`
}

// ChatData is the payload of a successful non-streaming completion.
type ChatData struct {
	Message    string                    `json:"message"`
	Actions    []actions.SuggestedAction `json:"actions,omitempty"`
	ModelUsed  string                    `json:"modelUsed"`
	Usage      UsagePayload              `json:"usage"`
	UserStatus *UserStatus               `json:"userStatus,omitempty"`
}

// ChatResponse is the body of a non-streaming completion.
type ChatResponse struct {
	Success bool     `json:"success"`
	Data    ChatData `json:"data"`
}

// streamFrame is one JSON line (or websocket message) of a streaming
// completion.
type streamFrame struct {
	Model   string `json:"model,omitempty"`
	Content string `json:"content,omitempty"`

	Done       bool                      `json:"done,omitempty"`
	Usage      *UsagePayload             `json:"usage,omitempty"`
	Actions    []actions.SuggestedAction `json:"actions,omitempty"`
	UserStatus *UserStatus               `json:"userStatus,omitempty"`

	Error string    `json:"error,omitempty"`
	Code  ErrorKind `json:"code,omitempty"`
}

// ModelInfo is one entry of GET /v1/assistant/models.
type ModelInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Free      bool   `json:"free"`
	Context   int    `json:"context"`
	Available bool   `json:"available"`
}

// ModelsResponse is the body of GET /v1/assistant/models.
type ModelsResponse struct {
	Models       []ModelInfo `json:"models"`
	DefaultModel string      `json:"defaultModel"`
	UserStatus   *UserStatus `json:"userStatus,omitempty"`
}
