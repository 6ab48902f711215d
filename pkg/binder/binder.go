// Package binder projects a live store subscription into local state.
package binder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
)

// ErrSubscription wraps failures reported by the store for a live query.
var ErrSubscription = errors.New("binder: subscription failed")

// Decoder turns a stored document into a typed record.
type Decoder[T any] func(doc backend.Document) (T, error)

// Binder holds the latest full snapshot of one query. It is inert until
// Sync is called with both a store and an authenticated session; it opens
// exactly one subscription while active and closes it once when the
// preconditions drop or the owner calls Close.
type Binder[T any] struct {
	store  backend.Store
	query  backend.Query
	decode Decoder[T]
	label  string
	log    *zap.Logger

	mu       sync.Mutex
	items    []T
	loading  bool
	err      error
	active   bool
	gen      uint64
	cancel   backend.Unsubscribe
	received bool
	onChange func()
}

// Option configures a Binder.
type Option func(*options)

type options struct {
	label    string
	log      *zap.Logger
	onChange func()
}

// WithLabel names the binder in error messages and logs.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithOnChange sets a hook fired after every state change, outside the lock.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

// New creates an inert binder. store may be nil, in which case the binder
// never activates.
func New[T any](store backend.Store, q backend.Query, decode Decoder[T], opts ...Option) *Binder[T] {
	o := options{label: q.Path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Binder[T]{
		store:    store,
		query:    q,
		decode:   decode,
		label:    o.label,
		log:      o.log.With(zap.String("binder", o.label), zap.String("path", q.Path)),
		onChange: o.onChange,
	}
}

// SetOnChange replaces the change hook.
func (b *Binder[T]) SetOnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Query returns the bound query.
func (b *Binder[T]) Query() backend.Query { return b.query }

// Sync evaluates the activation preconditions. It must be called every time
// any precondition input changes.
func (b *Binder[T]) Sync(ctx context.Context, authenticated bool) error {
	want := b.store != nil && authenticated

	b.mu.Lock()
	if want == b.active {
		b.mu.Unlock()
		return nil
	}
	if !want {
		cancel := b.teardownLocked()
		// A signed-out session never sees the previous user's data.
		b.items = nil
		b.err = nil
		fn := b.onChange
		b.mu.Unlock()
		b.stop(cancel)
		b.notify(fn)
		return nil
	}

	b.gen++
	gen := b.gen
	b.active = true
	b.loading = true
	b.received = false
	b.err = nil
	b.mu.Unlock()

	cancel, err := b.store.Subscribe(ctx, b.query,
		func(docs []backend.Document) { b.apply(gen, docs) },
		func(err error) { b.fail(gen, err) },
	)

	b.mu.Lock()
	if err != nil {
		if gen == b.gen {
			b.active = false
			b.loading = false
			b.err = fmt.Errorf("%w: %v", ErrSubscription, err)
		}
		fn := b.onChange
		b.mu.Unlock()
		b.log.Error("open subscription", zap.Error(err))
		b.notify(fn)
		return err
	}
	if gen != b.gen || !b.active {
		// Torn down while Subscribe was in flight.
		b.mu.Unlock()
		cancel()
		return nil
	}
	b.cancel = cancel
	fn := b.onChange
	b.mu.Unlock()
	b.log.Debug("subscription opened")
	b.notify(fn)
	return nil
}

// Close tears the subscription down when the owning view unmounts and
// drops the snapshot. Safe to call repeatedly.
func (b *Binder[T]) Close() {
	b.mu.Lock()
	cancel := b.teardownLocked()
	b.items = nil
	b.err = nil
	b.received = false
	b.mu.Unlock()
	b.stop(cancel)
}

// teardownLocked retires the current generation so late callbacks are
// dropped, and hands back the cancel handle to run after unlocking.
func (b *Binder[T]) teardownLocked() backend.Unsubscribe {
	if b.active {
		b.gen++
	}
	b.active = false
	b.loading = false
	cancel := b.cancel
	b.cancel = nil
	return cancel
}

func (b *Binder[T]) stop(cancel backend.Unsubscribe) {
	if cancel == nil {
		return
	}
	cancel()
	b.log.Debug("subscription closed")
}

func (b *Binder[T]) apply(gen uint64, docs []backend.Document) {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := b.decode(doc)
		if err != nil {
			b.log.Warn("skipping document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	b.mu.Lock()
	if gen != b.gen || !b.active {
		b.mu.Unlock()
		return
	}
	b.items = items
	b.loading = false
	b.received = true
	b.err = nil
	fn := b.onChange
	b.mu.Unlock()
	b.notify(fn)
}

func (b *Binder[T]) fail(gen uint64, err error) {
	b.mu.Lock()
	if gen != b.gen || !b.active {
		b.mu.Unlock()
		return
	}
	b.loading = false
	b.err = fmt.Errorf("%w: %v", ErrSubscription, err)
	fn := b.onChange
	b.mu.Unlock()
	b.log.Error("subscription error", zap.Error(err))
	b.notify(fn)
}

func (b *Binder[T]) notify(fn func()) {
	if fn != nil {
		fn()
	}
}

// Items returns a copy of the latest snapshot.
func (b *Binder[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Find returns the record in the latest snapshot matching pred.
func (b *Binder[T]) Find(pred func(T) bool) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range b.items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (b *Binder[T]) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *Binder[T]) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Ready reports that at least one snapshot arrived since activation.
func (b *Binder[T]) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.received
}

// Err returns the last subscription error, if any.
func (b *Binder[T]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// ErrMessage is the human readable form of Err.
func (b *Binder[T]) ErrMessage() string {
	if b.Err() == nil {
		return ""
	}
	return fmt.Sprintf("Could not load %s. Reopen the view to try again.", b.label)
}
