package testutil

import (
	"time"

	"github.com/introlix/deskflow/core"
)

// DeskBuilder helps construct desk snapshots with fluent chaining for tests.
// Example:
//
//	desk := NewDeskBuilder("desk-1").State(core.StatePlannerAgent).UserMessage("hi").Build()
type DeskBuilder struct {
	desk core.Desk
	now  time.Time
}

// NewDeskBuilder creates a builder for a desk with the given id in the
// initial state, bound to workspace "ws-1".
func NewDeskBuilder(id string) *DeskBuilder {
	return &DeskBuilder{
		desk: core.Desk{ID: id, WorkspaceID: "ws-1", State: core.StateInitial},
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Workspace overrides the workspace id (chainable).
func (b *DeskBuilder) Workspace(id string) *DeskBuilder {
	b.desk.WorkspaceID = id
	return b
}

// State sets the workflow state (chainable).
func (b *DeskBuilder) State(s core.DeskState) *DeskBuilder {
	b.desk.State = s
	return b
}

// UserMessage appends a user message with a deterministic timestamp (chainable).
func (b *DeskBuilder) UserMessage(content string) *DeskBuilder {
	return b.message("user", content)
}

// AgentMessage appends an assistant message (chainable).
func (b *DeskBuilder) AgentMessage(id, content string) *DeskBuilder {
	b.message("assistant", content)
	b.desk.Messages[len(b.desk.Messages)-1].ID = id
	return b
}

func (b *DeskBuilder) message(role, content string) *DeskBuilder {
	b.now = b.now.Add(time.Second)
	b.desk.Messages = append(b.desk.Messages, core.Message{
		Role:      role,
		Content:   content,
		CreatedAt: b.now,
	})
	return b
}

// ContextAgent sets the context agent data block (chainable).
func (b *DeskBuilder) ContextAgent(data *core.ContextAgentData) *DeskBuilder {
	b.desk.ContextAgent = data
	return b
}

// Plan sets the planner agent topics (chainable).
func (b *DeskBuilder) Plan(topics ...core.PlanTopic) *DeskBuilder {
	b.desk.PlannerAgent = &core.PlannerAgentData{Topics: topics}
	return b
}

// Document sets the persisted document content (chainable).
func (b *DeskBuilder) Document(content string) *DeskBuilder {
	b.desk.Documents = &core.DocumentRecord{Content: content, UpdatedAt: b.now}
	return b
}

// Build returns a deep copy so the builder can keep being chained.
func (b *DeskBuilder) Build() *core.Desk {
	return b.desk.Clone()
}
