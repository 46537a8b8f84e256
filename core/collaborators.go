package core

import (
	"context"
	"errors"
)

var (
	// ErrTurnActive is returned when a second turn is started for a desk that
	// already has one streaming.
	ErrTurnActive = errors.New("turn already active for desk")
	// ErrDeskNotFound is returned by stores and readers when no desk exists
	// for the given identifier.
	ErrDeskNotFound = errors.New("desk not found")
)

// DeskReader is the authoritative read path for desk snapshots. The UI layer
// polls it and hands each fresh snapshot to the stage machine and the
// document sync controller.
type DeskReader interface {
	GetDesk(ctx context.Context, workspaceID, deskID string) (*Desk, error)
}

// ContextAgentRequest carries the parameters for one context-agent round.
type ContextAgentRequest struct {
	Prompt        string   `json:"prompt"`
	Answers       string   `json:"answers,omitempty"`
	ResearchScope string   `json:"research_scope,omitempty"`
	UserFiles     []string `json:"user_files,omitempty"`
	Model         string   `json:"model"`
}

// ContextAgentResult is the backend's reply to a context-agent round.
type ContextAgentResult struct {
	Questions          []string            `json:"questions,omitempty"`
	MoveNext           bool                `json:"move_next"`
	ConfidenceLevel    float64             `json:"confidence_level"`
	FinalPrompt        string              `json:"final_prompt,omitempty"`
	ResearchParameters *ResearchParameters `json:"research_parameters,omitempty"`
	State              DeskState           `json:"state"`
}

// PlanResult is the backend's reply to planner setup and plan edits.
type PlanResult struct {
	Topics []PlanTopic `json:"topics"`
	State  DeskState   `json:"state"`
}

// StageActions groups the remote stage-transition commands. Each call's side
// effect is advancing Desk.State as observed by a later DeskReader fetch;
// implementations must be safe to retry from the caller's side.
type StageActions interface {
	// SetupInitial titles the desk from the prompt and moves it to the
	// context-agent stage.
	SetupInitial(ctx context.Context, workspaceID, deskID, prompt string) error

	// SetupContextAgent runs one clarification round with the context agent.
	SetupContextAgent(ctx context.Context, workspaceID, deskID string, req ContextAgentRequest) (*ContextAgentResult, error)

	// SetupPlannerAgent builds the research plan from the enriched prompt.
	SetupPlannerAgent(ctx context.Context, workspaceID, deskID, model string) (*PlanResult, error)

	// EditPlan saves the (possibly edited) plan and confirms it, advancing
	// the desk to the explorer stage. This is the user's explicit
	// approve-plan command, never fired automatically.
	EditPlan(ctx context.Context, workspaceID, deskID string, topics []PlanTopic) (*PlanResult, error)

	// SetupExplorerAgent gathers sources for the approved plan and completes
	// the workflow.
	SetupExplorerAgent(ctx context.Context, workspaceID, deskID, model string) error
}

// TurnSource yields the chunks of one streamed turn. Recv blocks until the
// next chunk is available and returns io.EOF once the stream completed
// normally. Close releases the underlying transport; it is safe to call
// multiple times.
type TurnSource interface {
	Recv() (string, error)
	Close() error
}

// TurnSubmitter opens streamed turns against the backend chat surface.
type TurnSubmitter interface {
	SubmitTurn(ctx context.Context, workspaceID, chatID string, req TurnRequest) (TurnSource, error)
}

// DocumentStore persists editor documents. Saves are fire-and-forget from
// the core's perspective: the authoritative content is whatever the next
// desk read returns.
type DocumentStore interface {
	SaveDocument(ctx context.Context, workspaceID, deskID, content string) error
}

// DeskStore caches desk snapshots between reads and holds the optimistic
// message appended right after a turn submission. A Put from a refetch is
// the authority that reconciles or overwrites the optimistic copy.
type DeskStore interface {
	Get(deskID string) (*Desk, bool)
	Put(desk *Desk)
	AppendMessage(deskID string, msg Message) error
	Invalidate(deskID string)
}
