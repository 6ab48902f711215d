// Package app provides the high-level journey operations shared by the
// command line, the MCP server and the terminal UI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/session"
)

var ErrNotSignedIn = errors.New("app: not signed in")

// DefaultTimeout bounds the wait for sign-in and the first snapshot.
const DefaultTimeout = 10 * time.Second

// Service runs one operation at a time against a started Journey, mounting
// the view each operation needs.
type Service struct {
	Journey *journey.Journey
	Timeout time.Duration

	mu sync.Mutex
}

func (s *Service) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *Service) use(ctx context.Context, v router.View) error {
	if s.Journey == nil {
		return errors.New("app: no journey configured")
	}
	if err := s.Journey.Select(v); err != nil {
		return err
	}
	if err := s.Journey.WaitReady(ctx, s.timeout()); err != nil {
		return fmt.Errorf("app: waiting for %s: %w", v.Title(), err)
	}
	if !s.Journey.Session().Snapshot().Authenticated() {
		return ErrNotSignedIn
	}
	return nil
}

// synced waits for the mounted view to show a write. The write has already
// succeeded, so a timeout only means the caller gets its own copy.
func (s *Service) synced(ctx context.Context, done func() bool) bool {
	return s.Journey.WaitFor(ctx, s.timeout(), done) == nil
}

// Whoami returns the current session.
func (s *Service) Whoami(ctx context.Context) (session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, s.Journey.Mounted()); err != nil && !errors.Is(err, ErrNotSignedIn) {
		return session.Snapshot{}, err
	}
	return s.Journey.Session().Snapshot(), nil
}

// SetName stores the display name of the signed-in user.
func (s *Service) SetName(ctx context.Context, name string) (session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, s.Journey.Mounted()); err != nil {
		return session.Snapshot{}, err
	}
	if err := s.Journey.SubmitName(name); err != nil {
		return session.Snapshot{}, err
	}
	return s.Journey.Session().Snapshot(), nil
}

// Moments lists moments, newest first.
func (s *Service) Moments(ctx context.Context) ([]record.Moment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.Journey.Moments()
	if err := s.use(ctx, router.Moments); err != nil {
		return nil, err
	}
	if err := v.Binder.Err(); err != nil {
		return nil, err
	}
	return v.Records(), nil
}

// AddMoment creates a moment from f and returns it as the store saved it.
func (s *Service) AddMoment(ctx context.Context, f record.MomentForm) (record.Moment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, router.Moments); err != nil {
		return record.Moment{}, err
	}
	v := s.Journey.Moments()
	v.Commands.SetDraft(f)
	if err := v.Commands.Create(ctx); err != nil {
		return record.Moment{}, err
	}
	id := v.Commands.CreatedID()
	var m record.Moment
	if s.synced(ctx, func() (ok bool) { m, ok = v.Get(id); return ok }) {
		return m, nil
	}
	author := s.Journey.Session().Snapshot().Author()
	return record.Moment{
		ID:          id,
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Type:        record.ParseMomentType(string(f.Type)),
		CreatorID:   author.UserID,
		CreatorName: author.Name(),
	}, nil
}

// EditMoment applies edit to the form seeded from moment id and saves it.
func (s *Service) EditMoment(ctx context.Context, id string, edit func(*record.MomentForm)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, router.Moments); err != nil {
		return err
	}
	v := s.Journey.Moments()
	m, ok := v.Get(id)
	if !ok {
		return crud.ErrNotFound
	}
	if !v.Commands.CanModify(m) {
		return crud.ErrPermissionDenied
	}
	f := record.FormFromMoment(m)
	edit(&f)
	v.Commands.BeginEdit(id, f)
	return v.Commands.Update(ctx)
}

// Journal lists journal entries, newest first.
func (s *Service) Journal(ctx context.Context) ([]record.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.Journey.Journal()
	if err := s.use(ctx, router.Journal); err != nil {
		return nil, err
	}
	if err := v.Binder.Err(); err != nil {
		return nil, err
	}
	return v.Records(), nil
}

// AddJournalEntry writes text as a new entry and returns it as the store
// saved it.
func (s *Service) AddJournalEntry(ctx context.Context, text string) (record.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, router.Journal); err != nil {
		return record.JournalEntry{}, err
	}
	v := s.Journey.Journal()
	v.Commands.SetDraft(record.JournalForm{Text: text})
	if err := v.Commands.Create(ctx); err != nil {
		return record.JournalEntry{}, err
	}
	id := v.Commands.CreatedID()
	var e record.JournalEntry
	if s.synced(ctx, func() (ok bool) { e, ok = v.Get(id); return ok }) {
		return e, nil
	}
	author := s.Journey.Session().Snapshot().Author()
	return record.JournalEntry{
		ID:          id,
		Text:        strings.TrimSpace(text),
		CreatorID:   author.UserID,
		CreatorName: author.Name(),
	}, nil
}

func (s *Service) EditJournalEntry(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, router.Journal); err != nil {
		return err
	}
	v := s.Journey.Journal()
	e, ok := v.Get(id)
	if !ok {
		return crud.ErrNotFound
	}
	if !v.Commands.CanModify(e) {
		return crud.ErrPermissionDenied
	}
	v.Commands.BeginEdit(id, record.JournalForm{Text: text})
	return v.Commands.Update(ctx)
}

// Purpose returns the purpose statement, empty when never written.
func (s *Service) Purpose(ctx context.Context) (record.Purpose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.Journey.Purpose()
	if err := s.use(ctx, router.Purpose); err != nil {
		return record.Purpose{}, err
	}
	if err := v.Binder.Err(); err != nil {
		return record.Purpose{}, err
	}
	p, _ := v.Get(backend.PurposeDocument)
	return p, nil
}

// SetPurpose upserts the purpose statement and returns it as the store
// saved it. Blank text clears it.
func (s *Service) SetPurpose(ctx context.Context, text string) (record.Purpose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, router.Purpose); err != nil {
		return record.Purpose{}, err
	}
	v := s.Journey.Purpose()
	v.Commands.BeginEdit(backend.PurposeDocument, record.PurposeForm{Text: text})
	if err := v.Commands.Update(ctx); err != nil {
		return record.Purpose{}, err
	}
	uid := s.Journey.Session().Snapshot().UserID
	want := strings.TrimSpace(text)
	var p record.Purpose
	if s.synced(ctx, func() bool {
		var ok bool
		p, ok = v.Get(backend.PurposeDocument)
		return ok && p.Text == want && p.LastUpdatedBy == uid
	}) {
		return p, nil
	}
	return record.Purpose{ID: backend.PurposeDocument, Text: want, LastUpdatedBy: uid}, nil
}

// Delete removes record id from view after confirmation.
func (s *Service) Delete(ctx context.Context, v router.View, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.use(ctx, v); err != nil && !errors.Is(err, ErrNotSignedIn) {
		return err
	}
	switch v {
	case router.Moments:
		return s.Journey.Moments().Commands.Delete(ctx, id)
	case router.Journal:
		return s.Journey.Journal().Commands.Delete(ctx, id)
	default:
		return s.Journey.Purpose().Commands.Delete(ctx, id)
	}
}
