package journey

import (
	"context"

	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/binder"
	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/session"
)

// View pairs the live snapshot of one collection with the commands that
// write to it.
type View[T crud.Record, F crud.Form] struct {
	Name     router.View
	Binder   *binder.Binder[T]
	Commands *crud.Controller[T, F]
}

type viewDeps struct {
	store   backend.Store
	session *session.Session
	confirm backend.Confirmer
	log     *zap.Logger
	changed func()
}

func newView[T crud.Record, F crud.Form](name router.View, q backend.Query, decode binder.Decoder[T], kind crud.Kind[F], d viewDeps) *View[T, F] {
	log := d.log.With(zap.String("view", string(name)))
	b := binder.New(d.store, q, decode,
		binder.WithLabel(name.Title()),
		binder.WithLogger(log),
		binder.WithOnChange(d.changed),
	)
	c := crud.New[T, F](kind, crud.Deps[T]{
		Store:   d.store,
		Session: d.session,
		Confirm: d.confirm,
		Lookup: func(id string) (T, bool) {
			return b.Find(func(r T) bool { return r.RecordID() == id })
		},
		Logger: log,
	})
	c.SetOnChange(d.changed)
	return &View[T, F]{Name: name, Binder: b, Commands: c}
}

// Records is the latest snapshot, newest first.
func (v *View[T, F]) Records() []T { return v.Binder.Items() }

// Get finds a record of the current snapshot by id.
func (v *View[T, F]) Get(id string) (T, bool) {
	return v.Binder.Find(func(r T) bool { return r.RecordID() == id })
}

// ErrMessage prefers the last command error over the subscription error.
func (v *View[T, F]) ErrMessage() string {
	if msg := v.Commands.ErrMessage(); msg != "" {
		return msg
	}
	return v.Binder.ErrMessage()
}

func (v *View[T, F]) view() router.View { return v.Name }

func (v *View[T, F]) mount(ctx context.Context, authenticated bool) error {
	v.Commands.Mount()
	return v.Binder.Sync(ctx, authenticated)
}

func (v *View[T, F]) unmount() {
	v.Commands.Unmount()
	v.Binder.Close()
}

func (v *View[T, F]) sync(ctx context.Context, authenticated bool) error {
	return v.Binder.Sync(ctx, authenticated)
}

func (v *View[T, F]) settled() bool {
	return v.Binder.Ready() || v.Binder.Err() != nil || !v.Binder.Active()
}

type mountable interface {
	view() router.View
	mount(ctx context.Context, authenticated bool) error
	unmount()
	sync(ctx context.Context, authenticated bool) error
	settled() bool
}

func momentsKind(p backend.Paths) crud.Kind[record.MomentForm] {
	return crud.Kind[record.MomentForm]{Name: "moment", Path: p.Moments(), Blank: record.NewMomentForm}
}

func journalKind(p backend.Paths) crud.Kind[record.JournalForm] {
	return crud.Kind[record.JournalForm]{
		Name:  "journal entry",
		Path:  p.Journal(),
		Blank: func() record.JournalForm { return record.JournalForm{} },
	}
}

func purposeKind(p backend.Paths) crud.Kind[record.PurposeForm] {
	return crud.Kind[record.PurposeForm]{
		Name:      "purpose",
		Path:      p.Purpose(),
		Singleton: backend.PurposeDocument,
		Blank:     func() record.PurposeForm { return record.PurposeForm{} },
	}
}
