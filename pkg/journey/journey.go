// Package journey is the root controller: it owns the session, the router
// and the three content views, and keeps the mounted view's subscription in
// step with the session.
package journey

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/session"
)

type (
	MomentsView = View[record.Moment, record.MomentForm]
	JournalView = View[record.JournalEntry, record.JournalForm]
	PurposeView = View[record.Purpose, record.PurposeForm]
)

// Deps are the process-wide handles, created once at start.
type Deps struct {
	Auth    backend.Auth
	Store   backend.Store
	KV      backend.KV
	Confirm backend.Confirmer
	Paths   backend.Paths
	// Token is an optional external session token.
	Token               string
	FallbackToAnonymous bool
	Logger              *zap.Logger
}

// Journey wires the components together. Create it with New, then Start.
type Journey struct {
	deps      Deps
	log       *zap.Logger
	session   *session.Session
	router    *router.Router
	bootstrap *session.Bootstrap

	moments *MomentsView
	journal *JournalView
	purpose *PurposeView

	mu      sync.Mutex
	ctx     context.Context
	stops   []func()
	started bool
	closed  bool

	lmu       sync.Mutex
	listeners []func()
	changed   chan struct{}
}

func New(deps Deps) *Journey {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	j := &Journey{
		deps:    deps,
		log:     log,
		session: session.New(),
		router:  router.New(),
		changed: make(chan struct{}, 1),
	}
	j.bootstrap = &session.Bootstrap{
		Auth:                deps.Auth,
		KV:                  deps.KV,
		Token:               deps.Token,
		FallbackToAnonymous: deps.FallbackToAnonymous,
		Logger:              log.Named("session"),
	}

	vd := viewDeps{
		store:   deps.Store,
		session: j.session,
		confirm: deps.Confirm,
		log:     log,
		changed: j.notify,
	}
	j.moments = newView(router.Moments,
		backend.Query{Path: deps.Paths.Moments(), OrderBy: "createdAt", Direction: backend.Desc},
		record.DecodeMoment, momentsKind(deps.Paths), vd)
	j.journal = newView(router.Journal,
		backend.Query{Path: deps.Paths.Journal(), OrderBy: "createdAt", Direction: backend.Desc},
		record.DecodeJournalEntry, journalKind(deps.Paths), vd)
	j.purpose = newView(router.Purpose,
		backend.Query{Path: deps.Paths.Purpose(), OrderBy: "lastUpdatedAt", Direction: backend.Desc},
		record.DecodePurpose, purposeKind(deps.Paths), vd)
	return j
}

func (j *Journey) Session() *session.Session { return j.session }

func (j *Journey) Router() *router.Router { return j.router }

func (j *Journey) Moments() *MomentsView { return j.moments }

func (j *Journey) Journal() *JournalView { return j.journal }

func (j *Journey) Purpose() *PurposeView { return j.purpose }

// Start mounts the current view and runs the identity bootstrap. Sign-in
// failures are logged and leave the session unauthenticated; they are not
// returned.
func (j *Journey) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return errors.New("journey: already started")
	}
	j.started = true
	j.ctx = ctx
	j.stops = append(j.stops, j.session.Watch(func(snap session.Snapshot) {
		j.syncMounted(snap)
		j.notify()
	}))
	if err := j.viewFor(j.router.Current()).mount(ctx, j.session.Snapshot().Authenticated()); err != nil {
		j.log.Error("mount view", zap.Error(err))
	}
	j.mu.Unlock()

	stop := j.bootstrap.Run(ctx, j.session)
	j.mu.Lock()
	j.stops = append(j.stops, stop)
	j.mu.Unlock()
	return nil
}

func (j *Journey) syncMounted(snap session.Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed || !j.started {
		return
	}
	if err := j.viewFor(j.router.Current()).sync(j.ctx, snap.Authenticated()); err != nil {
		j.log.Error("sync view", zap.Error(err))
	}
}

func (j *Journey) viewFor(v router.View) mountable {
	switch v {
	case router.Journal:
		return j.journal
	case router.Purpose:
		return j.purpose
	default:
		return j.moments
	}
}

// Mounted is the currently selected view.
func (j *Journey) Mounted() router.View { return j.router.Current() }

// Select unmounts the current view and mounts v.
func (j *Journey) Select(v router.View) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("journey: closed")
	}
	prev := j.router.Current()
	if !j.router.Select(v) {
		return nil
	}
	if j.started {
		j.viewFor(prev).unmount()
		if err := j.viewFor(v).mount(j.ctx, j.session.Snapshot().Authenticated()); err != nil {
			j.log.Error("mount view", zap.String("view", string(v)), zap.Error(err))
		}
	}
	j.notify()
	return nil
}

// SubmitName stores the display name of the signed-in user.
func (j *Journey) SubmitName(name string) error {
	return j.bootstrap.SubmitName(j.session, name)
}

// SignOut signs out when the auth provider supports it.
func (j *Journey) SignOut(ctx context.Context) error {
	so, ok := j.deps.Auth.(interface {
		SignOut(ctx context.Context) error
	})
	if !ok {
		return errors.New("journey: auth provider cannot sign out")
	}
	return so.SignOut(ctx)
}

// OnChange registers fn to run after any state change. fn runs on the
// goroutine that caused the change and must not block.
func (j *Journey) OnChange(fn func()) {
	j.lmu.Lock()
	j.listeners = append(j.listeners, fn)
	j.lmu.Unlock()
}

func (j *Journey) notify() {
	select {
	case j.changed <- struct{}{}:
	default:
	}
	j.lmu.Lock()
	fns := make([]func(), len(j.listeners))
	copy(fns, j.listeners)
	j.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// WaitReady blocks until the session has resolved and the mounted view has
// received its first snapshot, failed, or stayed inert.
func (j *Journey) WaitReady(ctx context.Context, timeout time.Duration) error {
	return j.WaitFor(ctx, timeout, func() bool {
		return !j.session.Snapshot().Resolving() && j.viewFor(j.router.Current()).settled()
	})
}

// WaitFor blocks until done reports true, checking after every change.
func (j *Journey) WaitFor(ctx context.Context, timeout time.Duration, done func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-j.changed:
		case <-tick.C:
		}
	}
}

// Close unmounts the current view and stops listening to the auth provider.
func (j *Journey) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	stops := j.stops
	j.stops = nil
	if j.started {
		j.viewFor(j.router.Current()).unmount()
	}
	j.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

// PurposeText is the purpose statement, or "" when it has never been
// written.
func (j *Journey) PurposeText() string {
	p, ok := j.purpose.Get(backend.PurposeDocument)
	if !ok {
		return ""
	}
	return p.Text
}
