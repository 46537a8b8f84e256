package docsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/lexical"
	"github.com/introlix/deskflow/logging"
)

// Options holds dependency and configuration overrides passed to NewController.
type Options struct {
	// QuiescentWindow suppresses autosave for this long after a load, so the
	// structural churn of populating the editor does not trigger a write.
	QuiescentWindow time.Duration
	// DebounceInterval is the trailing-edge autosave delay. Every local edit
	// restarts it; the save fires only once edits stop.
	DebounceInterval time.Duration
	// Logger receives autosave/reconcile records. Defaults to NoOpLogger.
	Logger logging.Logger
	// OnReplace is invoked with the new buffer content after a load or a
	// reconciliation replaced the local buffer. The editor surface re-renders
	// from it.
	OnReplace func(content string)
	// OnSaveError surfaces a failed autosave write.
	OnSaveError func(err error)
}

// Controller reconciles one desk's locally mutable document buffer against
// the persisted document content and agent-authored messages. The buffer is
// held in canonical markdown form (lexical.Normalize); saves are serialized
// back to the editor's interchange representation.
//
// The controller serves one desk at a time: observing a snapshot with a
// different desk identity resets all state and runs the load path again.
type Controller struct {
	store  core.DocumentStore
	logger logging.Logger

	quiescentWindow  time.Duration
	debounceInterval time.Duration
	onReplace        func(string)
	onSaveError      func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	workspaceID     string
	deskID          string
	buffer          string
	loaded          bool
	quiesceUntil    time.Time
	lastPersisted   string // canonical form of the last content known persisted
	sourceMessageID string // identity of the last agent message reconciled against
	timer           *time.Timer
	closed          bool
}

// NewController constructs a Controller with optional overrides.
func NewController(store core.DocumentStore, optFns ...func(o *Options)) *Controller {
	opts := Options{
		QuiescentWindow:  1800 * time.Millisecond,
		DebounceInterval: 1500 * time.Millisecond,
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		store:            store,
		logger:           opts.Logger,
		quiescentWindow:  opts.QuiescentWindow,
		debounceInterval: opts.DebounceInterval,
		onReplace:        opts.OnReplace,
		onSaveError:      opts.OnSaveError,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Buffer returns the current local document content in canonical form.
func (c *Controller) Buffer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// ObserveDesk processes a fresh desk snapshot: the first snapshot for a desk
// identity loads the persisted content into the buffer, later snapshots
// reconcile the buffer against agent updates. Safe to call on every refetch.
func (c *Controller) ObserveDesk(desk *core.Desk) {
	if desk == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if desk.ID != c.deskID {
		c.resetLocked()
		c.workspaceID = desk.WorkspaceID
		c.deskID = desk.ID
	}

	if !c.loaded {
		c.loadLocked(desk)
		return
	}

	c.reconcileLocked(desk)
}

// Edit records a local buffer mutation and, outside the quiescent window,
// restarts the autosave debounce timer.
func (c *Controller) Edit(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.buffer = content

	if time.Now().Before(c.quiesceUntil) {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounceInterval, c.autosave)
}

// Flush saves the buffer immediately when it diverges from the persisted
// content, bypassing the debounce. Used on explicit user save commands.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.autosave()
}

// Close cancels pending timers and in-flight saves. The controller must not
// be used afterwards; a dangling save after the surface is gone would write
// stale content.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.cancel()
}

func (c *Controller) resetLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.buffer = ""
	c.loaded = false
	c.quiesceUntil = time.Time{}
	c.lastPersisted = ""
	c.sourceMessageID = ""
}

func (c *Controller) loadLocked(desk *core.Desk) {
	content := lexical.Normalize(desk.DocumentContent())
	c.buffer = content
	c.lastPersisted = content
	c.loaded = true
	c.quiesceUntil = time.Now().Add(c.quiescentWindow)
	if last, ok := desk.LastMessage(); ok && last.IsAgent() {
		c.sourceMessageID = messageIdentity(last)
	}

	c.logger.Debug("document loaded", "desk_id", desk.ID, "bytes", len(content))
	if c.onReplace != nil {
		c.onReplace(content)
	}
}

func (c *Controller) reconcileLocked(desk *core.Desk) {
	last, ok := desk.LastMessage()
	if !ok || !last.IsAgent() {
		// The agent has not produced a counter-update yet.
		return
	}

	id := messageIdentity(last)
	if id == c.sourceMessageID {
		return
	}
	c.sourceMessageID = id

	persisted := lexical.Normalize(desk.DocumentContent())
	if persisted == c.buffer {
		c.lastPersisted = persisted
		return
	}

	// The agent rewrote the document; persisted content wins unconditionally.
	c.buffer = persisted
	c.lastPersisted = persisted

	c.logger.Debug("document reconciled", "desk_id", desk.ID, "message_id", id)
	if c.onReplace != nil {
		c.onReplace(persisted)
	}
}

// autosave runs on timer expiry (or Flush) from its own goroutine. A save
// whose canonical content equals the last known-persisted content is a no-op
// so reconciliation-triggered replacements cannot start a save loop.
func (c *Controller) autosave() {
	c.mu.Lock()
	if c.closed || !c.loaded || c.buffer == c.lastPersisted {
		c.mu.Unlock()
		return
	}
	workspaceID, deskID := c.workspaceID, c.deskID
	buffer := c.buffer
	c.mu.Unlock()

	start := time.Now()
	content := lexical.FromMarkdown(buffer)
	if err := c.store.SaveDocument(c.ctx, workspaceID, deskID, content); err != nil {
		err = fmt.Errorf("failed to save document: %w", err)
		c.logger.Error("autosave failed", "desk_id", deskID, "error", err)
		if c.onSaveError != nil {
			c.onSaveError(err)
		}
		return
	}

	c.mu.Lock()
	// Another edit may have landed while the write was in flight; only the
	// saved content counts as persisted.
	c.lastPersisted = buffer
	c.mu.Unlock()

	c.logger.Debug("autosave completed", "desk_id", deskID, "bytes", len(content), "duration", time.Since(start))
}

// messageIdentity derives a stable identity for a message. The backend does
// not assign message ids, so fall back to role + timestamp + length.
func messageIdentity(m core.Message) string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("%s|%d|%d", m.Role, m.CreatedAt.UnixNano(), len(m.Content))
}
