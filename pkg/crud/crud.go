// Package crud implements the per-view create, update and delete commands
// shared by every record kind.
package crud

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/session"
)

var (
	ErrNotAuthenticated = errors.New("crud: not signed in")
	ErrPermissionDenied = errors.New("crud: permission denied")
	ErrEmptyText        = record.ErrBlank
	ErrNotEditing       = errors.New("crud: nothing is being edited")
	ErrInFlight         = errors.New("crud: another operation is in flight")
	ErrNotFound         = errors.New("crud: record not found")
	ErrImmutable        = errors.New("crud: record cannot be deleted")
	ErrDeclined         = errors.New("crud: delete not confirmed")
	ErrWrite            = errors.New("crud: write failed")
)

// Record is what the command layer needs to know about a stored record.
type Record interface {
	RecordID() string
	Creator() string
}

// Form is the editable part of a record kind.
type Form interface {
	Validate() error
	CreateFields(a record.Author) map[string]any
	UpdateFields(a record.Author) map[string]any
}

// Kind parameterises a Controller for one record kind.
type Kind[F Form] struct {
	// Name is the singular noun used in messages ("moment").
	Name string
	Path string
	// Singleton is the fixed document id of a single-document kind. Writes
	// upsert into it and deletes are refused.
	Singleton string
	Blank     func() F
}

func (k Kind[F]) blank() F {
	if k.Blank == nil {
		var zero F
		return zero
	}
	return k.Blank()
}

// Controller runs the commands of one mounted view. All four operations
// share one submitting flag: a call made while another is in flight returns
// ErrInFlight and does nothing.
type Controller[T Record, F Form] struct {
	kind    Kind[F]
	store   backend.Store
	session *session.Session
	confirm backend.Confirmer
	lookup  func(id string) (T, bool)
	log     *zap.Logger

	mu         sync.Mutex
	draft      F
	edit       F
	editingID  string
	createdID  string
	submitting bool
	err        error
	gen        uint64
	mounted    bool
	onChange   func()
}

// Deps are the collaborators of a Controller.
type Deps[T Record] struct {
	Store   backend.Store
	Session *session.Session
	Confirm backend.Confirmer
	// Lookup finds a record in the view's current snapshot.
	Lookup func(id string) (T, bool)
	Logger *zap.Logger
}

func New[T Record, F Form](kind Kind[F], deps Deps[T]) *Controller[T, F] {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	confirm := deps.Confirm
	if confirm == nil {
		confirm = backend.AlwaysConfirm
	}
	return &Controller[T, F]{
		kind:    kind,
		store:   deps.Store,
		session: deps.Session,
		confirm: confirm,
		lookup:  deps.Lookup,
		log:     log.With(zap.String("kind", kind.Name), zap.String("path", kind.Path)),
		draft:   kind.blank(),
		edit:    kind.blank(),
	}
}

func (c *Controller[T, F]) Kind() Kind[F] { return c.kind }

// SetOnChange sets a hook fired after every state change, outside the lock.
func (c *Controller[T, F]) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetConfirmer replaces the delete confirmation prompt.
func (c *Controller[T, F]) SetConfirmer(confirm backend.Confirmer) {
	c.mu.Lock()
	c.confirm = confirm
	c.mu.Unlock()
}

// Mount starts a fresh view lifetime with default state.
func (c *Controller[T, F]) Mount() {
	c.mu.Lock()
	c.gen++
	c.mounted = true
	c.draft = c.kind.blank()
	c.edit = c.kind.blank()
	c.editingID = ""
	c.submitting = false
	c.err = nil
	c.mu.Unlock()
}

// Unmount ends the view lifetime. Calls still in flight run to completion
// but their results are dropped.
func (c *Controller[T, F]) Unmount() {
	c.mu.Lock()
	c.gen++
	c.mounted = false
	c.mu.Unlock()
}

func (c *Controller[T, F]) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

func (c *Controller[T, F]) Draft() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller[T, F]) SetDraft(f F) {
	c.mu.Lock()
	c.draft = f
	c.mu.Unlock()
}

func (c *Controller[T, F]) EditForm() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit
}

func (c *Controller[T, F]) SetEditForm(f F) {
	c.mu.Lock()
	c.edit = f
	c.mu.Unlock()
}

// CreatedID is the id of the record the last successful Create wrote.
func (c *Controller[T, F]) CreatedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createdID
}

// EditingID is the record in edit mode, or "".
func (c *Controller[T, F]) EditingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// BeginEdit puts id in edit mode, replacing any previous selection.
func (c *Controller[T, F]) BeginEdit(id string, f F) {
	c.mu.Lock()
	c.editingID = id
	c.edit = f
	c.err = nil
	fn := c.onChange
	c.mu.Unlock()
	notify(fn)
}

func (c *Controller[T, F]) CancelEdit() {
	c.mu.Lock()
	c.editingID = ""
	c.edit = c.kind.blank()
	fn := c.onChange
	c.mu.Unlock()
	notify(fn)
}

func (c *Controller[T, F]) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Err is the view-local error of the last operation.
func (c *Controller[T, F]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ErrMessage renders Err for display.
func (c *Controller[T, F]) ErrMessage() string {
	return Message(c.kind.Name, c.Err())
}

// CanModify is the display rule for edit and delete controls. The store's
// own access rules remain the real enforcement.
func (c *Controller[T, F]) CanModify(r T) bool {
	snap := c.session.Snapshot()
	if c.kind.Singleton != "" {
		return snap.Authenticated()
	}
	return snap.Owns(r.Creator())
}

// begin takes the submitting flag. Precondition failures are recorded as
// the view error without a remote call.
func (c *Controller[T, F]) begin(check func(session.Snapshot) error) (uint64, session.Snapshot, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return 0, session.Snapshot{}, ErrInFlight
	}
	c.err = nil
	snap := c.session.Snapshot()
	if err := check(snap); err != nil {
		c.err = err
		fn := c.onChange
		c.mu.Unlock()
		notify(fn)
		return 0, snap, err
	}
	c.submitting = true
	gen := c.gen
	fn := c.onChange
	c.mu.Unlock()
	notify(fn)
	return gen, snap, nil
}

// finish releases the submitting flag and applies the outcome, unless the
// view was unmounted meanwhile.
func (c *Controller[T, F]) finish(gen uint64, err error, onSuccess func()) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("dropping result for unmounted view", zap.Error(err))
		return err
	}
	c.submitting = false
	if err != nil {
		c.err = err
	} else if onSuccess != nil {
		onSuccess()
	}
	fn := c.onChange
	c.mu.Unlock()
	notify(fn)
	return err
}

func (c *Controller[T, F]) writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	c.log.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrWrite, err)
}

// Create writes the draft as a new record and clears the draft on success.
func (c *Controller[T, F]) Create(ctx context.Context) error {
	var draft F
	gen, snap, err := c.begin(func(snap session.Snapshot) error {
		if !snap.Authenticated() {
			return ErrNotAuthenticated
		}
		draft = c.draft
		return draft.Validate()
	})
	if err != nil {
		return err
	}

	author := snap.Author()
	id := c.kind.Singleton
	if id != "" {
		err = c.store.UpsertMerge(ctx, c.kind.Path, id, draft.CreateFields(author))
	} else {
		id, err = c.store.Append(ctx, c.kind.Path, draft.CreateFields(author))
		if err == nil {
			c.log.Info("created", zap.String("id", id), zap.String("uid", author.UserID))
		}
	}
	return c.finish(gen, c.writeErr("create", err), func() {
		c.draft = c.kind.blank()
		c.createdID = id
	})
}

// Update sends the edit form's fields for the record in edit mode.
func (c *Controller[T, F]) Update(ctx context.Context) error {
	var (
		edit F
		id   string
	)
	gen, snap, err := c.begin(func(snap session.Snapshot) error {
		if c.editingID == "" {
			return ErrNotEditing
		}
		if !snap.Authenticated() {
			return ErrNotAuthenticated
		}
		edit, id = c.edit, c.editingID
		return edit.Validate()
	})
	if err != nil {
		return err
	}

	fields := edit.UpdateFields(snap.Author())
	if c.kind.Singleton != "" {
		err = c.store.UpsertMerge(ctx, c.kind.Path, c.kind.Singleton, fields)
	} else {
		err = c.store.UpdateFields(ctx, c.kind.Path, id, fields)
	}
	return c.finish(gen, c.writeErr("update", err), func() {
		if c.editingID == id {
			c.editingID = ""
			c.edit = c.kind.blank()
		}
	})
}

// Delete removes id after the ownership check and a confirmation. Nothing
// is removed locally; the next snapshot drops the record.
func (c *Controller[T, F]) Delete(ctx context.Context, id string) error {
	gen, _, err := c.begin(func(snap session.Snapshot) error {
		if c.kind.Singleton != "" {
			return ErrImmutable
		}
		if !snap.Authenticated() {
			return ErrPermissionDenied
		}
		rec, ok := c.find(id)
		if !ok {
			return ErrNotFound
		}
		if !snap.Owns(rec.Creator()) {
			return ErrPermissionDenied
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	confirm := c.confirm
	c.mu.Unlock()
	if !confirm.Confirm(fmt.Sprintf("Delete this %s?", c.kind.Name)) {
		c.finish(gen, nil, nil)
		return ErrDeclined
	}

	err = c.store.Remove(ctx, c.kind.Path, id)
	if err == nil {
		c.log.Info("deleted", zap.String("id", id))
	}
	return c.finish(gen, c.writeErr("delete", err), func() {
		if c.editingID == id {
			c.editingID = ""
			c.edit = c.kind.blank()
		}
	})
}

func (c *Controller[T, F]) find(id string) (T, bool) {
	if c.lookup == nil {
		var zero T
		return zero, false
	}
	return c.lookup(id)
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

// Message renders an operation error as inline text.
func Message(noun string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "You need to be signed in."
	case errors.Is(err, ErrPermissionDenied):
		return fmt.Sprintf("You can only change a %s you created.", noun)
	case errors.Is(err, ErrEmptyText):
		return "Please write something first."
	case errors.Is(err, ErrNotEditing):
		return fmt.Sprintf("Pick a %s to edit first.", noun)
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("That %s no longer exists.", noun)
	case errors.Is(err, ErrImmutable):
		return fmt.Sprintf("The %s cannot be deleted.", noun)
	case errors.Is(err, ErrWrite):
		return fmt.Sprintf("Could not save the %s. Please try again.", noun)
	default:
		return err.Error()
	}
}
