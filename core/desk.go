package core

import "time"

// DeskState identifies the workflow stage a research desk is in. Values are
// the backend's wire strings; the set is closed but readers must tolerate
// unknown values from newer backends (see Known).
type DeskState string

const (
	// StateInitial is a freshly created desk awaiting setup.
	StateInitial DeskState = "initial"
	// StateContextAgent gathers clarifying context before research starts.
	StateContextAgent DeskState = "context_agent"
	// StatePlannerAgent produces the research plan topics.
	StatePlannerAgent DeskState = "planner_agent"
	// StateApprovePlan waits for the user to edit and confirm the plan.
	StateApprovePlan DeskState = "approve_plan"
	// StateExplorerAgent collects sources for the approved plan.
	StateExplorerAgent DeskState = "explorer_agent"
	// StateComplete is terminal; the editor and chat panel become active.
	StateComplete DeskState = "complete"
)

// Known reports whether the state is a member of the closed workflow set.
func (s DeskState) Known() bool {
	switch s {
	case StateInitial, StateContextAgent, StatePlannerAgent,
		StateApprovePlan, StateExplorerAgent, StateComplete:
		return true
	}
	return false
}

// Terminal reports whether no further automatic workflow progress is expected.
func (s DeskState) Terminal() bool { return s == StateComplete }

// Message is a single chat entry on a desk or workspace chat.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAgent reports whether the message was authored by the backend agent.
func (m Message) IsAgent() bool { return m.Role == "assistant" }

// PlanTopic is one entry of the planner agent's research plan.
type PlanTopic struct {
	Topic                  string   `json:"topic"`
	Priority               string   `json:"priority"`
	EstimatedSourcesNeeded int      `json:"estimated_sources_needed"`
	Keywords               []string `json:"keywords"`
}

// ResearchParameters narrows the scope the context agent settled on.
type ResearchParameters struct {
	Scope     string   `json:"scope,omitempty"`
	Audience  string   `json:"audience,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	TimeFrame string   `json:"time_frame,omitempty"`
}

// ContextAgentData is the context agent's accumulated output stored on the desk.
type ContextAgentData struct {
	ConvHistory        []Message           `json:"conv_history,omitempty"`
	FinalPrompt        string              `json:"final_prompt,omitempty"`
	ResearchParameters *ResearchParameters `json:"research_parameters,omitempty"`
	ConfidenceLevel    float64             `json:"confidence_level,omitempty"`
	Questions          []string            `json:"questions,omitempty"`
	MoveNext           bool                `json:"move_next,omitempty"`
}

// PlannerAgentData holds the ordered plan produced by the planner agent.
type PlannerAgentData struct {
	Topics []PlanTopic `json:"topics"`
}

// DocumentRecord carries the persisted editor document for a desk. Content is
// the interchange representation (Lexical JSON or plain markdown).
type DocumentRecord struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Desk is a snapshot of a research desk as read from the backend. The backend
// owns the record; deskflow never mutates a snapshot in place, it only caches
// copies and issues stage-transition commands whose effect is observed on the
// next read.
type Desk struct {
	ID           string            `json:"_id"`
	WorkspaceID  string            `json:"workspace_id"`
	Title        string            `json:"title,omitempty"`
	State        DeskState         `json:"state"`
	ContextAgent *ContextAgentData `json:"context_agent,omitempty"`
	PlannerAgent *PlannerAgentData `json:"planner_agent,omitempty"`
	Documents    *DocumentRecord   `json:"documents,omitempty"`
	Messages     []Message         `json:"messages,omitempty"`
	CreatedAt    time.Time         `json:"created_at,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
}

// LastMessage returns the most recent message and true, or a zero Message and
// false when the desk has none.
func (d *Desk) LastMessage() (Message, bool) {
	if len(d.Messages) == 0 {
		return Message{}, false
	}
	return d.Messages[len(d.Messages)-1], true
}

// DocumentContent returns the persisted document content or "" when none exists.
func (d *Desk) DocumentContent() string {
	if d.Documents == nil {
		return ""
	}
	return d.Documents.Content
}

// Clone returns a deep copy of the desk safe for independent mutation.
func (d *Desk) Clone() *Desk {
	clone := *d
	if d.ContextAgent != nil {
		ca := *d.ContextAgent
		ca.ConvHistory = append([]Message(nil), d.ContextAgent.ConvHistory...)
		if d.ContextAgent.ResearchParameters != nil {
			rp := *d.ContextAgent.ResearchParameters
			rp.Sources = append([]string(nil), d.ContextAgent.ResearchParameters.Sources...)
			ca.ResearchParameters = &rp
		}
		ca.Questions = append([]string(nil), d.ContextAgent.Questions...)
		clone.ContextAgent = &ca
	}
	if d.PlannerAgent != nil {
		pa := PlannerAgentData{Topics: make([]PlanTopic, len(d.PlannerAgent.Topics))}
		for i, t := range d.PlannerAgent.Topics {
			t.Keywords = append([]string(nil), t.Keywords...)
			pa.Topics[i] = t
		}
		clone.PlannerAgent = &pa
	}
	if d.Documents != nil {
		doc := *d.Documents
		clone.Documents = &doc
	}
	clone.Messages = append([]Message(nil), d.Messages...)
	return &clone
}
