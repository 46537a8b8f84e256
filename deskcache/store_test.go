package deskcache

import (
	"errors"
	"testing"
	"time"

	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/internal/testutil"
)

// Interface compliance (compile-time assertion)
var _ core.DeskStore = (*Store)(nil)

func TestStore_PutGetClones(t *testing.T) {
	store := New()
	desk := testutil.NewDeskBuilder("desk-1").UserMessage("hi").Build()

	store.Put(desk)
	got, ok := store.Get("desk-1")
	if !ok {
		t.Fatal("desk not found after Put")
	}
	if got == desk {
		t.Error("Get should return a different pointer")
	}

	got.Messages[0].Content = "tampered"
	again, _ := store.Get("desk-1")
	if again.Messages[0].Content != "hi" {
		t.Error("cached snapshot mutated through a returned clone")
	}
}

func TestStore_AppendMessage(t *testing.T) {
	store := New()
	store.Put(testutil.NewDeskBuilder("desk-1").UserMessage("hi").Build())

	msg := core.NewUserMessage("follow-up")
	if err := store.AppendMessage("desk-1", msg); err != nil {
		t.Fatalf("AppendMessage returned error: %v", err)
	}

	desk, _ := store.Get("desk-1")
	if len(desk.Messages) != 2 || desk.Messages[1].Content != "follow-up" {
		t.Fatalf("unexpected messages: %+v", desk.Messages)
	}
}

func TestStore_AppendMessageMissingDesk(t *testing.T) {
	store := New()
	err := store.AppendMessage("nope", core.NewUserMessage("hi"))
	if !errors.Is(err, core.ErrDeskNotFound) {
		t.Fatalf("err = %v, want ErrDeskNotFound", err)
	}
}

func TestStore_PutOverwritesOptimisticMessages(t *testing.T) {
	store := New()
	store.Put(testutil.NewDeskBuilder("desk-1").UserMessage("hi").Build())
	_ = store.AppendMessage("desk-1", core.NewUserMessage("optimistic"))

	// The refetched authoritative snapshot replaces the optimistic copy.
	store.Put(testutil.NewDeskBuilder("desk-1").
		UserMessage("hi").
		AgentMessage("m1", "echoed reply").
		Build())

	desk, _ := store.Get("desk-1")
	if len(desk.Messages) != 2 || desk.Messages[1].Content != "echoed reply" {
		t.Fatalf("unexpected messages: %+v", desk.Messages)
	}
}

func TestStore_InvalidateAndLen(t *testing.T) {
	store := New()
	store.Put(testutil.NewDeskBuilder("desk-1").Build())
	store.Put(testutil.NewDeskBuilder("desk-2").Build())

	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}

	store.Invalidate("desk-1")
	if _, ok := store.Get("desk-1"); ok {
		t.Error("desk-1 still cached after Invalidate")
	}
	if _, ok := store.Get("desk-2"); !ok {
		t.Error("desk-2 dropped by unrelated Invalidate")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	store := New(func(o *Options) {
		o.TTL = 20 * time.Millisecond
		o.CleanupInterval = 10 * time.Millisecond
	})
	store.Put(testutil.NewDeskBuilder("desk-1").Build())

	time.Sleep(60 * time.Millisecond)
	if _, ok := store.Get("desk-1"); ok {
		t.Error("snapshot survived past its TTL")
	}
}
