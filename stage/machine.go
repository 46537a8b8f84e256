package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/logging"
)

// Params carries the user-provided inputs threaded through the automatic
// stage actions: the initiating prompt, the model selection and the optional
// clarification answers / research scope for the context agent.
type Params struct {
	Prompt        string
	Model         string
	Answers       string
	ResearchScope string
	UserFiles     []string
}

// Options holds dependency and configuration overrides passed to NewMachine.
type Options struct {
	// Logger receives stage-action records. Defaults to NoOpLogger.
	Logger logging.Logger
	// OnActionError surfaces a failed automatic action to the UI surface.
	// The guard stays set, so the failure is reported exactly once; recovery
	// goes through Retry.
	OnActionError func(deskID string, state core.DeskState, err error)
	// OnActionFired is invoked after an automatic action resolved
	// successfully. Useful for triggering an immediate refetch.
	OnActionFired func(deskID string, state core.DeskState)
}

type guardKey struct {
	deskID string
	state  core.DeskState
}

// Machine decides, per observed desk snapshot, whether to fire the stage's
// automatic remote action. Guards are owned by the instance (not ambient
// state) so multiple desks can be driven concurrently without cross-talk.
type Machine struct {
	actions core.StageActions
	logger  logging.Logger

	onActionError func(string, core.DeskState, error)
	onActionFired func(string, core.DeskState)

	mu     sync.Mutex
	guards map[guardKey]bool
	params map[string]Params
}

// NewMachine constructs a Machine with optional overrides.
func NewMachine(actions core.StageActions, optFns ...func(o *Options)) *Machine {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Machine{
		actions:       actions,
		logger:        opts.Logger,
		onActionError: opts.OnActionError,
		onActionFired: opts.OnActionFired,
		guards:        make(map[guardKey]bool),
		params:        make(map[string]Params),
	}
}

// SetParams stores the carried-over inputs for a desk. Call before the first
// Observe so the initial and context-agent actions have their prompt.
func (m *Machine) SetParams(deskID string, p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params[deskID] = p
}

// Observe inspects the latest desk snapshot and fires the registered
// automatic action for its state when the (desk, state) guard is not yet
// set and the state's precondition holds. The guard is set before the
// action is invoked, so a rapid re-observation while the action is still
// resolving cannot double-fire. Returns true when an action was invoked.
func (m *Machine) Observe(ctx context.Context, desk *core.Desk) bool {
	if desk == nil {
		return false
	}

	state := desk.State
	if !state.Known() {
		m.logger.Warn("ignoring unknown desk state", "desk_id", desk.ID, "state", string(state))
		return false
	}
	if !m.hasAutomaticAction(state) {
		return false
	}

	// State-specific precondition: the context agent only runs while its
	// output is still absent.
	if state == core.StateContextAgent && desk.ContextAgent != nil {
		return false
	}

	m.mu.Lock()
	key := guardKey{deskID: desk.ID, state: state}
	if m.guards[key] {
		m.mu.Unlock()
		return false
	}
	m.guards[key] = true
	p := m.params[desk.ID]
	m.mu.Unlock()

	m.invoke(ctx, desk, state, p)

	return true
}

// Retry re-invokes the automatic action for the desk's current state. This
// is the user-initiated recovery path after a surfaced failure: the guard
// stays set, but an explicit command is always allowed through.
func (m *Machine) Retry(ctx context.Context, desk *core.Desk) error {
	if desk == nil {
		return errors.New("no desk to retry")
	}
	if !m.hasAutomaticAction(desk.State) {
		return fmt.Errorf("no automatic action for state %q", desk.State)
	}

	m.mu.Lock()
	m.guards[guardKey{deskID: desk.ID, state: desk.State}] = true
	p := m.params[desk.ID]
	m.mu.Unlock()

	return m.run(ctx, desk, desk.State, p)
}

// ApprovePlan submits the (possibly edited) topics, confirming the plan and
// advancing the desk to the explorer stage. This transition is always
// user-triggered and therefore never guarded.
func (m *Machine) ApprovePlan(ctx context.Context, desk *core.Desk, topics []core.PlanTopic) (*core.PlanResult, error) {
	res, err := m.actions.EditPlan(ctx, desk.WorkspaceID, desk.ID, topics)
	if err != nil {
		return nil, fmt.Errorf("failed to approve plan: %w", err)
	}
	return res, nil
}

// Reset drops all guards and params for a desk. Call when the desk identity
// served by this machine changes.
func (m *Machine) Reset(deskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.guards {
		if key.deskID == deskID {
			delete(m.guards, key)
		}
	}
	delete(m.params, deskID)
}

func (m *Machine) hasAutomaticAction(state core.DeskState) bool {
	switch state {
	case core.StateInitial, core.StateContextAgent, core.StatePlannerAgent, core.StateExplorerAgent:
		return true
	}
	// approve_plan waits for the user's explicit confirm; complete is terminal.
	return false
}

func (m *Machine) invoke(ctx context.Context, desk *core.Desk, state core.DeskState, p Params) {
	if err := m.run(ctx, desk, state, p); err != nil {
		if m.onActionError != nil {
			m.onActionError(desk.ID, state, err)
		}
		return
	}
	if m.onActionFired != nil {
		m.onActionFired(desk.ID, state)
	}
}

func (m *Machine) run(ctx context.Context, desk *core.Desk, state core.DeskState, p Params) error {
	start := time.Now()

	var err error
	switch state {
	case core.StateInitial:
		err = m.actions.SetupInitial(ctx, desk.WorkspaceID, desk.ID, p.Prompt)
	case core.StateContextAgent:
		_, err = m.actions.SetupContextAgent(ctx, desk.WorkspaceID, desk.ID, core.ContextAgentRequest{
			Prompt:        p.Prompt,
			Answers:       p.Answers,
			ResearchScope: p.ResearchScope,
			UserFiles:     p.UserFiles,
			Model:         p.Model,
		})
	case core.StatePlannerAgent:
		_, err = m.actions.SetupPlannerAgent(ctx, desk.WorkspaceID, desk.ID, p.Model)
	case core.StateExplorerAgent:
		err = m.actions.SetupExplorerAgent(ctx, desk.WorkspaceID, desk.ID, p.Model)
	default:
		return fmt.Errorf("no automatic action for state %q", state)
	}

	m.logStageAction(desk, state, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("stage action %q failed: %w", state, err)
	}

	return nil
}

func (m *Machine) logStageAction(desk *core.Desk, state core.DeskState, dur time.Duration, err error) {
	if err != nil {
		m.logger.Error("stage action failed", "desk_id", desk.ID, "state", string(state), "error", err)
		return
	}
	m.logger.Debug("stage action completed", "desk_id", desk.ID, "state", string(state), "duration", dur)
}
