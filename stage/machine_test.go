package stage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/internal/testutil"
)

// recordingActions counts invocations per action and can fail on demand.
type recordingActions struct {
	mu       sync.Mutex
	initial  int
	context  int
	planner  int
	explorer int
	edits    int

	failInitial error
	lastPrompt  string
	lastRequest core.ContextAgentRequest
	lastModel   string
	lastTopics  []core.PlanTopic
}

func (a *recordingActions) SetupInitial(_ context.Context, _, _ string, prompt string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initial++
	a.lastPrompt = prompt
	return a.failInitial
}

func (a *recordingActions) SetupContextAgent(_ context.Context, _, _ string, req core.ContextAgentRequest) (*core.ContextAgentResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.context++
	a.lastRequest = req
	return &core.ContextAgentResult{MoveNext: true}, nil
}

func (a *recordingActions) SetupPlannerAgent(_ context.Context, _, _ string, model string) (*core.PlanResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.planner++
	a.lastModel = model
	return &core.PlanResult{State: core.StateApprovePlan}, nil
}

func (a *recordingActions) EditPlan(_ context.Context, _, _ string, topics []core.PlanTopic) (*core.PlanResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edits++
	a.lastTopics = topics
	return &core.PlanResult{Topics: topics, State: core.StateExplorerAgent}, nil
}

func (a *recordingActions) SetupExplorerAgent(_ context.Context, _, _ string, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.explorer++
	return nil
}

func TestMachine_FiresOncePerState(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)
	machine.SetParams("desk-1", Params{Prompt: "research batteries", Model: "gpt-4o-mini"})

	desk := testutil.NewDeskBuilder("desk-1").State(core.StateInitial).Build()

	if !machine.Observe(context.Background(), desk) {
		t.Fatal("first observation should fire")
	}
	for i := 0; i < 3; i++ {
		if machine.Observe(context.Background(), desk) {
			t.Fatal("re-observation fired again")
		}
	}

	if actions.initial != 1 {
		t.Fatalf("SetupInitial called %d times, want 1", actions.initial)
	}
	if actions.lastPrompt != "research batteries" {
		t.Fatalf("prompt = %q", actions.lastPrompt)
	}
}

func TestMachine_WorkflowProgression(t *testing.T) {
	actions := &recordingActions{}
	var fired []core.DeskState
	machine := NewMachine(actions, func(o *Options) {
		o.OnActionFired = func(_ string, state core.DeskState) { fired = append(fired, state) }
	})
	machine.SetParams("desk-1", Params{Prompt: "p", Model: "m", Answers: "a1"})

	states := []core.DeskState{
		core.StateInitial,
		core.StateContextAgent,
		core.StatePlannerAgent,
		core.StateExplorerAgent,
	}
	for _, state := range states {
		desk := testutil.NewDeskBuilder("desk-1").State(state).Build()
		if !machine.Observe(context.Background(), desk) {
			t.Fatalf("state %s did not fire", state)
		}
	}

	if actions.initial != 1 || actions.context != 1 || actions.planner != 1 || actions.explorer != 1 {
		t.Fatalf("action counts: %+v", actions)
	}
	if actions.lastRequest.Answers != "a1" || actions.lastRequest.Model != "m" {
		t.Fatalf("context request = %+v", actions.lastRequest)
	}
	if len(fired) != 4 {
		t.Fatalf("OnActionFired for %v", fired)
	}
}

func TestMachine_NoActionForUserAndTerminalStates(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)

	for _, state := range []core.DeskState{core.StateApprovePlan, core.StateComplete} {
		desk := testutil.NewDeskBuilder("desk-1").State(state).Build()
		if machine.Observe(context.Background(), desk) {
			t.Fatalf("state %s should not fire automatically", state)
		}
	}
}

func TestMachine_UnknownStateIgnored(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)

	desk := testutil.NewDeskBuilder("desk-1").State("verifier_agent").Build()
	if machine.Observe(context.Background(), desk) {
		t.Fatal("unknown state fired an action")
	}
}

func TestMachine_ContextAgentPrecondition(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)

	desk := testutil.NewDeskBuilder("desk-1").
		State(core.StateContextAgent).
		ContextAgent(&core.ContextAgentData{Questions: []string{"scope?"}}).
		Build()

	if machine.Observe(context.Background(), desk) {
		t.Fatal("context agent fired despite existing output")
	}
	if actions.context != 0 {
		t.Fatalf("SetupContextAgent called %d times", actions.context)
	}
}

func TestMachine_FailureSurfacedOnceThenRetry(t *testing.T) {
	boom := errors.New("backend down")
	actions := &recordingActions{failInitial: boom}

	var failures int
	machine := NewMachine(actions, func(o *Options) {
		o.OnActionError = func(_ string, _ core.DeskState, err error) {
			failures++
			if !errors.Is(err, boom) {
				t.Errorf("surfaced error = %v", err)
			}
		}
	})
	machine.SetParams("desk-1", Params{Prompt: "p"})

	desk := testutil.NewDeskBuilder("desk-1").State(core.StateInitial).Build()
	machine.Observe(context.Background(), desk)
	machine.Observe(context.Background(), desk)

	if failures != 1 {
		t.Fatalf("failure surfaced %d times, want 1", failures)
	}
	if actions.initial != 1 {
		t.Fatalf("SetupInitial called %d times, want 1", actions.initial)
	}

	// User-initiated retry goes through even though the guard is set.
	actions.failInitial = nil
	if err := machine.Retry(context.Background(), desk); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if actions.initial != 2 {
		t.Fatalf("SetupInitial called %d times after retry, want 2", actions.initial)
	}
}

func TestMachine_RetryRequiresDesk(t *testing.T) {
	machine := NewMachine(&recordingActions{})

	if err := machine.Retry(context.Background(), nil); err == nil {
		t.Fatal("Retry with no desk should return an error")
	}
}

func TestMachine_ApprovePlanUnguarded(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)

	topics := []core.PlanTopic{{Topic: "cathode materials", Priority: "high"}}
	desk := testutil.NewDeskBuilder("desk-1").State(core.StateApprovePlan).Plan(topics...).Build()

	res, err := machine.ApprovePlan(context.Background(), desk, topics)
	if err != nil {
		t.Fatalf("ApprovePlan returned error: %v", err)
	}
	if res.State != core.StateExplorerAgent {
		t.Fatalf("result state = %s", res.State)
	}

	// A second approval (re-edit) is always allowed.
	if _, err := machine.ApprovePlan(context.Background(), desk, topics); err != nil {
		t.Fatalf("second ApprovePlan returned error: %v", err)
	}
	if actions.edits != 2 {
		t.Fatalf("EditPlan called %d times, want 2", actions.edits)
	}
}

func TestMachine_ResetClearsGuards(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)
	machine.SetParams("desk-1", Params{Prompt: "p"})

	desk := testutil.NewDeskBuilder("desk-1").State(core.StateInitial).Build()
	machine.Observe(context.Background(), desk)
	machine.Reset("desk-1")

	if !machine.Observe(context.Background(), desk) {
		t.Fatal("observation after Reset should fire again")
	}
	if actions.initial != 2 {
		t.Fatalf("SetupInitial called %d times, want 2", actions.initial)
	}
}

func TestMachine_IndependentDesks(t *testing.T) {
	actions := &recordingActions{}
	machine := NewMachine(actions)

	a := testutil.NewDeskBuilder("desk-a").State(core.StateInitial).Build()
	b := testutil.NewDeskBuilder("desk-b").State(core.StateInitial).Build()

	if !machine.Observe(context.Background(), a) {
		t.Fatal("desk-a did not fire")
	}
	if !machine.Observe(context.Background(), b) {
		t.Fatal("desk-b did not fire despite separate guard")
	}
	if actions.initial != 2 {
		t.Fatalf("SetupInitial called %d times, want 2", actions.initial)
	}
}
