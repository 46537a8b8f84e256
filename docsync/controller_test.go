package docsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/internal/testutil"
	"github.com/introlix/deskflow/lexical"
)

// recordingStore captures document saves and signals each one.
type recordingStore struct {
	mu    sync.Mutex
	saves []string
	err   error
	saved chan struct{}
}

func newRecordingStore() *recordingStore {
	return &recordingStore{saved: make(chan struct{}, 16)}
}

func (s *recordingStore) SaveDocument(_ context.Context, _, _ string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, content)
	s.saved <- struct{}{}
	return nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *recordingStore) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return ""
	}
	return s.saves[len(s.saves)-1]
}

func newTestController(store core.DocumentStore, optFns ...func(o *Options)) *Controller {
	base := func(o *Options) {
		o.QuiescentWindow = 0
		o.DebounceInterval = 10 * time.Millisecond
	}
	return NewController(store, append([]func(o *Options){base}, optFns...)...)
}

func waitSave(t *testing.T, store *recordingStore) {
	t.Helper()
	select {
	case <-store.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save")
	}
}

func TestController_LoadNormalizesPersistedContent(t *testing.T) {
	lexicalDoc := `{"root":{"type":"root","children":[{"type":"heading","tag":"h1","children":[{"type":"text","text":"Findings"}]}]}}`
	desk := testutil.NewDeskBuilder("desk-1").Document(lexicalDoc).Build()

	store := newRecordingStore()
	var replaced string
	c := newTestController(store, func(o *Options) {
		o.OnReplace = func(content string) { replaced = content }
	})
	defer c.Close()

	c.ObserveDesk(desk)

	if got, want := c.Buffer(), "# Findings"; got != want {
		t.Fatalf("Buffer = %q, want %q", got, want)
	}
	if replaced != "# Findings" {
		t.Fatalf("OnReplace got %q", replaced)
	}
}

func TestController_DebouncedAutosave(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").Document("# Notes").Build()
	store := newRecordingStore()
	c := newTestController(store)
	defer c.Close()

	c.ObserveDesk(desk)
	c.Edit("# Notes\n\nfirst")
	c.Edit("# Notes\n\nfirst revision")

	waitSave(t, store)

	if store.count() != 1 {
		t.Fatalf("got %d saves, want 1 (debounced)", store.count())
	}
	if got, want := store.last(), lexical.FromMarkdown("# Notes\n\nfirst revision"); got != want {
		t.Fatalf("saved content = %q, want %q", got, want)
	}
}

func TestController_QuiescentWindowSuppressesAutosave(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").Document("body").Build()
	store := newRecordingStore()
	c := NewController(store, func(o *Options) {
		o.QuiescentWindow = time.Hour
		o.DebounceInterval = 5 * time.Millisecond
	})
	defer c.Close()

	c.ObserveDesk(desk)
	c.Edit("body changed")

	time.Sleep(50 * time.Millisecond)
	if store.count() != 0 {
		t.Fatalf("got %d saves during quiescent window, want 0", store.count())
	}

	// An explicit flush still writes.
	c.Flush()
	waitSave(t, store)
}

func TestController_NoSaveLoopAfterReconcile(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").
		AgentMessage("m1", "drafted").
		Document("v1").
		Build()
	store := newRecordingStore()
	c := newTestController(store)
	defer c.Close()

	c.ObserveDesk(desk)

	// Agent rewrites the document; the refetched snapshot replaces the buffer.
	updated := testutil.NewDeskBuilder("desk-1").
		AgentMessage("m1", "drafted").
		AgentMessage("m2", "rewrote").
		Document("v2").
		Build()
	c.ObserveDesk(updated)

	if c.Buffer() != "v2" {
		t.Fatalf("Buffer = %q, want %q", c.Buffer(), "v2")
	}

	// The replacement content is already persisted; flushing must not echo it
	// back to the backend.
	c.Flush()
	time.Sleep(50 * time.Millisecond)
	if store.count() != 0 {
		t.Fatalf("got %d saves after reconcile, want 0", store.count())
	}
}

func TestController_ReconcileIgnoresSameAgentMessage(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").
		AgentMessage("m1", "drafted").
		Document("v1").
		Build()
	store := newRecordingStore()
	c := newTestController(store)
	defer c.Close()

	c.ObserveDesk(desk)
	c.Edit("v1 with local edits")
	waitSave(t, store)

	// Refetch with the same last agent message must not clobber local edits.
	c.ObserveDesk(desk)
	if got, want := c.Buffer(), "v1 with local edits"; got != want {
		t.Fatalf("Buffer = %q, want %q", got, want)
	}
}

func TestController_PersistedContentWinsOnNewAgentMessage(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").
		AgentMessage("m1", "drafted").
		Document("v1").
		Build()
	store := newRecordingStore()
	var replaces []string
	c := newTestController(store, func(o *Options) {
		o.OnReplace = func(content string) { replaces = append(replaces, content) }
	})
	defer c.Close()

	c.ObserveDesk(desk)
	c.Edit("local divergence")

	updated := testutil.NewDeskBuilder("desk-1").
		AgentMessage("m1", "drafted").
		AgentMessage("m2", "rewrote").
		Document("v2").
		Build()
	c.ObserveDesk(updated)

	if c.Buffer() != "v2" {
		t.Fatalf("Buffer = %q, want %q (persisted wins)", c.Buffer(), "v2")
	}
	if len(replaces) != 2 {
		t.Fatalf("OnReplace fired %d times, want 2 (load + reconcile)", len(replaces))
	}
}

func TestController_DeskIdentityChangeReloads(t *testing.T) {
	store := newRecordingStore()
	c := newTestController(store)
	defer c.Close()

	c.ObserveDesk(testutil.NewDeskBuilder("desk-1").Document("first desk").Build())
	c.Edit("first desk edited")

	c.ObserveDesk(testutil.NewDeskBuilder("desk-2").Document("second desk").Build())

	if got, want := c.Buffer(), "second desk"; got != want {
		t.Fatalf("Buffer = %q, want %q", got, want)
	}
}

func TestController_CloseCancelsPendingSave(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").Document("body").Build()
	store := newRecordingStore()
	c := NewController(store, func(o *Options) {
		o.QuiescentWindow = 0
		o.DebounceInterval = 20 * time.Millisecond
	})

	c.ObserveDesk(desk)
	c.Edit("body changed")
	c.Close()

	time.Sleep(60 * time.Millisecond)
	if store.count() != 0 {
		t.Fatalf("got %d saves after Close, want 0", store.count())
	}
}

func TestController_SaveErrorSurfaced(t *testing.T) {
	desk := testutil.NewDeskBuilder("desk-1").Document("body").Build()
	store := newRecordingStore()
	store.err = errors.New("service unavailable")

	errCh := make(chan error, 1)
	c := newTestController(store, func(o *Options) {
		o.OnSaveError = func(err error) { errCh <- err }
	})
	defer c.Close()

	c.ObserveDesk(desk)
	c.Edit("body changed")

	select {
	case err := <-errCh:
		if !errors.Is(err, store.err) {
			t.Fatalf("surfaced error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save error")
	}
}
