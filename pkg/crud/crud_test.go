package crud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/backend/backendtest"
	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/session"
)

const (
	momentsPath = "artifacts/app/public/data/journey_moments"
	journalPath = "artifacts/app/public/data/journal_entries"
	purposePath = "artifacts/app/public/data/our_purpose"
)

type fixture struct {
	store   *backendtest.Store
	auth    *backendtest.Auth
	session *session.Session
	confirm *backendtest.Confirm
	stop    func()
}

func newFixture(t *testing.T, uid, name string) *fixture {
	t.Helper()
	f := &fixture{
		store:   backendtest.NewStore(),
		auth:    backendtest.NewAuth(uid),
		session: session.New(),
		confirm: &backendtest.Confirm{Answer: true},
	}
	if uid != "" {
		kv := backendtest.NewKV()
		if name != "" {
			require.NoError(t, kv.Set(session.NameKey(uid), name))
		}
		f.stop = (&session.Bootstrap{Auth: f.auth, KV: kv}).Run(context.Background(), f.session)
		t.Cleanup(f.stop)
	}
	return f
}

func journal(f *fixture) *crud.Controller[record.JournalEntry, record.JournalForm] {
	c := crud.New[record.JournalEntry, record.JournalForm](
		crud.Kind[record.JournalForm]{Name: "journal entry", Path: journalPath},
		crud.Deps[record.JournalEntry]{
			Store:   f.store,
			Session: f.session,
			Confirm: f.confirm,
			Lookup: func(id string) (record.JournalEntry, bool) {
				for _, e := range entries(f) {
					if e.ID == id {
						return e, true
					}
				}
				return record.JournalEntry{}, false
			},
		})
	c.Mount()
	return c
}

func entries(f *fixture) []record.JournalEntry {
	var out []record.JournalEntry
	unsub, _ := f.store.Subscribe(context.Background(),
		backend.Query{Path: journalPath, OrderBy: "createdAt"},
		func(docs []backend.Document) {
			out = out[:0]
			for _, d := range docs {
				if e, err := record.DecodeJournalEntry(d); err == nil {
					out = append(out, e)
				}
			}
		}, func(error) {})
	unsub()
	return out
}

func moments(f *fixture) *crud.Controller[record.Moment, record.MomentForm] {
	c := crud.New[record.Moment, record.MomentForm](
		crud.Kind[record.MomentForm]{Name: "moment", Path: momentsPath, Blank: record.NewMomentForm},
		crud.Deps[record.Moment]{Store: f.store, Session: f.session, Confirm: f.confirm},
	)
	c.Mount()
	return c
}

func purpose(f *fixture) *crud.Controller[record.Purpose, record.PurposeForm] {
	c := crud.New[record.Purpose, record.PurposeForm](
		crud.Kind[record.PurposeForm]{Name: "purpose", Path: purposePath, Singleton: backend.PurposeDocument},
		crud.Deps[record.Purpose]{Store: f.store, Session: f.session, Confirm: f.confirm},
	)
	c.Mount()
	return c
}

func TestCreateRequiresSession(t *testing.T) {
	f := newFixture(t, "", "")
	c := moments(f)
	c.SetDraft(record.MomentForm{Title: "First date", Type: record.MomentStar})

	err := c.Create(context.Background())
	assert.ErrorIs(t, err, crud.ErrNotAuthenticated)
	assert.Empty(t, f.store.Calls())
	assert.Equal(t, "You need to be signed in.", c.ErrMessage())
	assert.False(t, c.Submitting())
}

func TestCreateMoment(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := moments(f)
	c.SetDraft(record.MomentForm{Title: "  First date ", Description: "pizza", Type: "bogus"})
	assert.Empty(t, c.CreatedID())

	require.NoError(t, c.Create(context.Background()))

	calls := f.store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "append", calls[0].Op)
	assert.Equal(t, momentsPath, calls[0].Path)
	fields := calls[0].Fields
	assert.Equal(t, "First date", fields["title"])
	assert.Equal(t, "star", fields["type"])
	assert.Equal(t, "u1", fields["creatorId"])
	assert.Equal(t, "Nico", fields["creatorName"])
	assert.True(t, backend.IsServerTimestamp(fields["createdAt"]))

	assert.Equal(t, record.NewMomentForm(), c.Draft())
	assert.NoError(t, c.Err())
	assert.Equal(t, "doc001", c.CreatedID())
}

func TestCreateUsesAnonymousName(t *testing.T) {
	f := newFixture(t, "u1", "")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "hello"})
	require.NoError(t, c.Create(context.Background()))
	assert.Equal(t, "Anonymous", f.store.Calls()[0].Fields["creatorName"])
}

func TestWhitespaceIsRejectedWithoutCall(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: " \n\t "})

	err := c.Create(context.Background())
	assert.ErrorIs(t, err, crud.ErrEmptyText)
	assert.Empty(t, f.store.Calls())
	assert.Equal(t, " \n\t ", c.Draft().Text)
	assert.Equal(t, "Please write something first.", c.ErrMessage())
}

func TestWriteFailureKeepsDraft(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	f.store.WriteErr = errors.New("quota")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "hello"})

	err := c.Create(context.Background())
	assert.ErrorIs(t, err, crud.ErrWrite)
	assert.Equal(t, "hello", c.Draft().Text)
	assert.False(t, c.Submitting())
	assert.Equal(t, "Could not save the journal entry. Please try again.", c.ErrMessage())
}

func TestRapidCreateIssuesOneAppend(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	f.store.Gate = make(chan struct{})
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "hello"})

	done := make(chan error, 1)
	go func() { done <- c.Create(context.Background()) }()

	require.Eventually(t, c.Submitting, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Create(context.Background()), crud.ErrInFlight)
	assert.ErrorIs(t, c.Delete(context.Background(), "any"), crud.ErrInFlight)

	close(f.store.Gate)
	require.NoError(t, <-done)
	assert.Len(t, f.store.Calls(), 1)
	assert.False(t, c.Submitting())
}

func TestUpdateEditsOwnRecord(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "hello"})
	require.NoError(t, c.Create(context.Background()))
	e := entries(f)[0]

	assert.ErrorIs(t, c.Update(context.Background()), crud.ErrNotEditing)

	c.BeginEdit(e.ID, record.FormFromJournalEntry(e))
	assert.Equal(t, e.ID, c.EditingID())
	c.SetEditForm(record.JournalForm{Text: "hello again"})
	require.NoError(t, c.Update(context.Background()))

	assert.Empty(t, c.EditingID())
	calls := f.store.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "update", last.Op)
	assert.Equal(t, map[string]any{"text": "hello again"}, last.Fields)
	assert.Equal(t, "hello again", entries(f)[0].Text)
	assert.Equal(t, "u1", entries(f)[0].CreatorID)
}

func TestUpdateFailureKeepsEditMode(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "hello"})
	require.NoError(t, c.Create(context.Background()))
	e := entries(f)[0]

	c.BeginEdit(e.ID, record.FormFromJournalEntry(e))
	c.SetEditForm(record.JournalForm{Text: "hello again"})
	f.store.WriteErr = errors.New("offline")

	assert.ErrorIs(t, c.Update(context.Background()), crud.ErrWrite)
	assert.Equal(t, e.ID, c.EditingID())
	assert.Equal(t, "hello again", c.EditForm().Text)
	assert.False(t, c.Submitting())
	assert.Equal(t, "Could not save the journal entry. Please try again.", c.ErrMessage())
	assert.Equal(t, "hello", entries(f)[0].Text)
}

func TestDeleteByNonOwnerIsDenied(t *testing.T) {
	f := newFixture(t, "userB", "Bo")
	f.store.Seed(journalPath, "e1", map[string]any{
		"text": "from A", "createdAt": "2024-01-01T00:00:00Z", "creatorId": "userA", "creatorName": "Ana",
	})
	c := journal(f)

	e := entries(f)[0]
	assert.False(t, c.CanModify(e))

	err := c.Delete(context.Background(), "e1")
	assert.ErrorIs(t, err, crud.ErrPermissionDenied)
	assert.Empty(t, f.store.Calls())
	assert.Empty(t, f.confirm.Asked())
	assert.Equal(t, "You can only change a journal entry you created.", c.ErrMessage())
}

func TestDeleteUnauthenticatedIsDenied(t *testing.T) {
	f := newFixture(t, "", "")
	c := journal(f)
	assert.ErrorIs(t, c.Delete(context.Background(), "e1"), crud.ErrPermissionDenied)
	assert.Empty(t, f.store.Calls())
}

func TestDeleteOwnRecordAfterConfirm(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "bye"})
	require.NoError(t, c.Create(context.Background()))
	id := entries(f)[0].ID

	require.NoError(t, c.Delete(context.Background(), id))
	assert.Equal(t, []string{"Delete this journal entry?"}, f.confirm.Asked())
	assert.Empty(t, entries(f))
	assert.ErrorIs(t, c.Delete(context.Background(), id), crud.ErrNotFound)
}

func TestDeclinedDeleteDoesNothing(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "keep"})
	require.NoError(t, c.Create(context.Background()))
	id := entries(f)[0].ID

	f.confirm.Answer = false
	assert.ErrorIs(t, c.Delete(context.Background(), id), crud.ErrDeclined)
	assert.Len(t, entries(f), 1)
	assert.Len(t, f.store.Calls(), 1)
	assert.False(t, c.Submitting())
	assert.NoError(t, c.Err())
}

func TestDeleteFailureChangesNothing(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "keep"})
	require.NoError(t, c.Create(context.Background()))
	e := entries(f)[0]
	c.BeginEdit(e.ID, record.FormFromJournalEntry(e))

	f.store.WriteErr = errors.New("offline")
	assert.ErrorIs(t, c.Delete(context.Background(), e.ID), crud.ErrWrite)
	assert.Equal(t, []string{"Delete this journal entry?"}, f.confirm.Asked())
	require.Len(t, entries(f), 1)
	assert.Equal(t, e.ID, entries(f)[0].ID)
	assert.Equal(t, e.ID, c.EditingID())
	assert.False(t, c.Submitting())
	assert.Equal(t, "Could not save the journal entry. Please try again.", c.ErrMessage())
}

func TestPurposeUpsertsSingleton(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	c := purpose(f)
	c.SetDraft(record.PurposeForm{Text: "Grow together"})
	require.NoError(t, c.Create(context.Background()))

	c.BeginEdit(backend.PurposeDocument, record.PurposeForm{Text: "Grow together, kindly"})
	require.NoError(t, c.Update(context.Background()))

	calls := f.store.Calls()
	require.Len(t, calls, 2)
	for _, call := range calls {
		assert.Equal(t, "upsert", call.Op)
		assert.Equal(t, backend.PurposeDocument, call.ID)
		assert.Equal(t, "u1", call.Fields["lastUpdatedBy"])
	}
	assert.ErrorIs(t, c.Delete(context.Background(), backend.PurposeDocument), crud.ErrImmutable)
	assert.True(t, c.CanModify(record.Purpose{}))
}

func TestResultAfterUnmountIsDropped(t *testing.T) {
	f := newFixture(t, "u1", "Nico")
	f.store.Gate = make(chan struct{})
	f.store.WriteErr = errors.New("late failure")
	c := journal(f)
	c.SetDraft(record.JournalForm{Text: "hello"})

	changes := 0
	done := make(chan error, 1)
	go func() { done <- c.Create(context.Background()) }()
	require.Eventually(t, c.Submitting, time.Second, time.Millisecond)

	c.Unmount()
	c.SetOnChange(func() { changes++ })
	close(f.store.Gate)
	assert.Error(t, <-done)

	assert.NoError(t, c.Err())
	assert.Equal(t, 0, changes)

	c.Mount()
	assert.False(t, c.Submitting())
	assert.Empty(t, c.Draft().Text)
}

func TestMessage(t *testing.T) {
	assert.Empty(t, crud.Message("moment", nil))
	assert.Equal(t, "That moment no longer exists.", crud.Message("moment", crud.ErrNotFound))
	assert.Equal(t, "boom", crud.Message("moment", errors.New("boom")))
}
