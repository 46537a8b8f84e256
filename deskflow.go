// Package deskflow provides a high-level façade over the backend client and
// the orchestration pieces (stream reader, stage machine, document sync and
// desk caching) for driving a research desk end to end. Most applications
// interact with this package by:
//  1. Creating a Deskflow via New() with the backend base URL
//  2. Polling Refresh to observe desk state and let stages fire
//  3. Running chat turns with RunTurn and editing the document via Edit
//
// The façade wires the collaborators together while keeping each one
// individually usable; all defaults are safe for local development.
package deskflow

import (
	"context"
	"errors"

	"github.com/introlix/deskflow/client"
	"github.com/introlix/deskflow/config"
	"github.com/introlix/deskflow/core"
	"github.com/introlix/deskflow/deskcache"
	"github.com/introlix/deskflow/docsync"
	"github.com/introlix/deskflow/logging"
	"github.com/introlix/deskflow/stage"
	"github.com/introlix/deskflow/stream"
)

// Options configures the Deskflow instance.
type Options struct {
	// Config supplies base URL, workspace, model and timing defaults.
	Config config.Config

	// DeskStore caches desk snapshots between reads (defaults to an
	// in-memory TTL store).
	DeskStore core.DeskStore

	// StageCallbacks observe stage action outcomes.
	StageCallbacks stage.Options

	// DocumentCallbacks observe document replaces and save failures.
	OnDocumentReplace func(content string)
	OnSaveError       func(err error)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Deskflow is the high-level façade aggregating the backend client and the
// orchestration services for one workspace.
type Deskflow struct {
	opts    Options
	client  *client.Client
	store   core.DeskStore
	limiter *core.TurnLimiter
	reader  *stream.Reader
	machine *stage.Machine
	docs    *docsync.Controller
}

// New creates a Deskflow instance with optional overrides. Any unset service
// is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Deskflow {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.DeskStore == nil {
		opts.DeskStore = deskcache.New(func(o *deskcache.Options) {
			o.TTL = opts.Config.CacheTTL
		})
	}

	c := client.New(opts.Config.BaseURL, func(o *client.Options) {
		o.Logger = opts.Logger
	})

	limiter := core.NewTurnLimiter()

	f := &Deskflow{
		opts:    opts,
		client:  c,
		store:   opts.DeskStore,
		limiter: limiter,
		reader: stream.NewReader(c, func(o *stream.Options) {
			o.Limiter = limiter
			o.Logger = opts.Logger
		}),
		machine: stage.NewMachine(c, func(o *stage.Options) {
			o.Logger = opts.Logger
			o.OnActionError = opts.StageCallbacks.OnActionError
			o.OnActionFired = opts.StageCallbacks.OnActionFired
		}),
		docs: docsync.NewController(c, func(o *docsync.Options) {
			o.DebounceInterval = opts.Config.AutosaveDebounce
			o.QuiescentWindow = opts.Config.LoadQuiescence
			o.Logger = opts.Logger
			o.OnReplace = opts.OnDocumentReplace
			o.OnSaveError = opts.OnSaveError
		}),
	}
	return f
}

// Client exposes the underlying backend client for direct calls.
func (f *Deskflow) Client() *client.Client { return f.client }

// Document exposes the document sync controller for editor integration.
func (f *Deskflow) Document() *docsync.Controller { return f.docs }

// CreateDesk creates a desk in the configured workspace and returns its id.
func (f *Deskflow) CreateDesk(ctx context.Context, title string) (string, error) {
	return f.client.CreateDesk(ctx, f.opts.Config.WorkspaceID, title)
}

// SetStageParams records the inputs the stage machine will use when the desk
// identified by deskID reaches an automatic stage.
func (f *Deskflow) SetStageParams(deskID string, p stage.Params) {
	f.machine.SetParams(deskID, p)
}

// Desk returns the cached snapshot for deskID, fetching from the backend on
// a cache miss.
func (f *Deskflow) Desk(ctx context.Context, deskID string) (*core.Desk, error) {
	if desk, ok := f.store.Get(deskID); ok {
		return desk, nil
	}
	return f.Refresh(ctx, deskID)
}

// Refresh fetches the authoritative snapshot, stores it, and lets the stage
// machine and the document controller observe it. Callers poll this while a
// desk is mid-workflow.
func (f *Deskflow) Refresh(ctx context.Context, deskID string) (*core.Desk, error) {
	desk, err := f.client.GetDesk(ctx, f.opts.Config.WorkspaceID, deskID)
	if err != nil {
		return nil, err
	}
	f.store.Put(desk)
	f.machine.Observe(ctx, desk)
	f.docs.ObserveDesk(desk)
	return desk, nil
}

// RetryStage re-runs the automatic action for the desk's current stage after
// a failure, bypassing the fire-once guard.
func (f *Deskflow) RetryStage(ctx context.Context, deskID string) error {
	desk, err := f.Desk(ctx, deskID)
	if err != nil {
		return err
	}
	return f.machine.Retry(ctx, desk)
}

// ApprovePlan submits the user's confirmed plan topics, advancing the desk to
// the explorer stage.
func (f *Deskflow) ApprovePlan(ctx context.Context, deskID string, topics []core.PlanTopic) (*core.PlanResult, error) {
	desk, err := f.Desk(ctx, deskID)
	if err != nil {
		return nil, err
	}
	res, err := f.machine.ApprovePlan(ctx, desk, topics)
	if err != nil {
		return nil, err
	}
	f.store.Invalidate(deskID)
	return res, nil
}

// RunTurn submits a chat turn and streams it to completion, invoking the
// callbacks as parsed state evolves. The optimistic user message is appended
// to the cached desk snapshot immediately; the authoritative copy arrives
// with the next Refresh.
func (f *Deskflow) RunTurn(ctx context.Context, deskID, chatID string, req core.TurnRequest, cb stream.Callbacks) error {
	if req.Model == "" {
		req.Model = f.opts.Config.Model
	}
	if err := f.store.AppendMessage(deskID, core.NewUserMessage(req.Prompt)); err != nil && !errors.Is(err, core.ErrDeskNotFound) {
		return err
	}
	err := f.reader.Run(ctx, f.opts.Config.WorkspaceID, chatID, req, cb)
	f.store.Invalidate(deskID)
	return err
}

// Edit records a local document edit and schedules a debounced autosave.
func (f *Deskflow) Edit(content string) { f.docs.Edit(content) }

// Close flushes nothing and releases the document controller's timer and
// in-flight saves. The Deskflow must not be used afterwards.
func (f *Deskflow) Close() { f.docs.Close() }
