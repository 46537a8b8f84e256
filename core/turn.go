package core

import (
	"time"

	"github.com/google/uuid"
)

// ToolCallStatus tracks the lifecycle of one announced tool call.
type ToolCallStatus string

const (
	// ToolCallRunning means the call was announced but no result arrived yet.
	ToolCallRunning ToolCallStatus = "running"
	// ToolCallCompleted means a result arrived without an error prefix.
	ToolCallCompleted ToolCallStatus = "completed"
	// ToolCallError means the result content carried the backend error prefix.
	ToolCallError ToolCallStatus = "error"
)

// ToolCallRecord is one entry of a turn's tool-call ledger. Identity is Name;
// duplicate names may coexist when results arrive without a matching start.
type ToolCallRecord struct {
	Name   string         `json:"name"`
	Status ToolCallStatus `json:"status"`
	Result string         `json:"result,omitempty"`
}

// ParsedTurn is the structured view derived from a turn's full accumulated
// text. It is recomputed from scratch on every chunk, so deriving it twice
// from the same text must yield identical values.
type ParsedTurn struct {
	AnswerText string           `json:"answer_text"`
	Thoughts   []string         `json:"thoughts,omitempty"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
}

// Equal reports deep equality with another ParsedTurn.
func (t ParsedTurn) Equal(o ParsedTurn) bool {
	if t.AnswerText != o.AnswerText ||
		len(t.Thoughts) != len(o.Thoughts) ||
		len(t.ToolCalls) != len(o.ToolCalls) {
		return false
	}
	for i := range t.Thoughts {
		if t.Thoughts[i] != o.Thoughts[i] {
			return false
		}
	}
	for i := range t.ToolCalls {
		if t.ToolCalls[i] != o.ToolCalls[i] {
			return false
		}
	}
	return true
}

// TurnRequest carries the user input submitted to open one streamed turn.
type TurnRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	Search bool   `json:"search"`
}

// NewUserMessage synthesizes the local optimistic copy of a just-submitted
// prompt so surfaces can render it before the backend's next refetch.
func NewUserMessage(prompt string) Message {
	return Message{
		ID:        NewID(),
		Role:      "user",
		Content:   prompt,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for messages and turns.
func NewID() string { return uuid.NewString() }
