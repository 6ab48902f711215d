package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/backend/backendtest"
	"tableflip.dev/journey/pkg/config"
	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
)

var paths = backend.Paths{AppID: "app"}

func newService(t *testing.T, auth *backendtest.Auth, store *backendtest.Store) *Service {
	t.Helper()
	j := journey.New(journey.Deps{
		Auth:    auth,
		Store:   store,
		KV:      backendtest.NewKV(),
		Confirm: backend.AlwaysConfirm,
		Paths:   paths,
	})
	require.NoError(t, j.Start(context.Background()))
	t.Cleanup(j.Close)
	return &Service{Journey: j, Timeout: time.Second}
}

func TestMomentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := backendtest.NewStore()
	svc := newService(t, backendtest.NewAuth("u1"), store)

	_, err := svc.SetName(ctx, "Nico")
	require.NoError(t, err)

	added, err := svc.AddMoment(ctx, record.MomentForm{Title: "First date", Type: record.MomentMilestone})
	require.NoError(t, err)
	assert.Equal(t, "First date", added.Title)
	assert.Equal(t, "u1", added.CreatorID)
	moments, err := svc.Moments(ctx)
	require.NoError(t, err)
	require.Len(t, moments, 1)
	assert.Equal(t, added, moments[0])
	assert.Equal(t, "Nico", moments[0].CreatorName)

	id := moments[0].ID
	require.NoError(t, svc.EditMoment(ctx, id, func(f *record.MomentForm) { f.Description = "pizza" }))
	moments, err = svc.Moments(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pizza", moments[0].Description)
	assert.Equal(t, record.MomentMilestone, moments[0].Type)

	require.NoError(t, svc.Delete(ctx, router.Moments, id))
	moments, err = svc.Moments(ctx)
	require.NoError(t, err)
	assert.Empty(t, moments)
}

func TestEditOthersRecordIsDenied(t *testing.T) {
	ctx := context.Background()
	store := backendtest.NewStore()
	store.Seed(paths.Journal(), "e1", map[string]any{
		"text": "from A", "createdAt": "2024-01-01T00:00:00Z", "creatorId": "userA",
	})
	svc := newService(t, backendtest.NewAuth("userB"), store)

	assert.ErrorIs(t, svc.EditJournalEntry(ctx, "e1", "mine now"), crud.ErrPermissionDenied)
	assert.ErrorIs(t, svc.Delete(ctx, router.Journal, "e1"), crud.ErrPermissionDenied)
	assert.ErrorIs(t, svc.EditJournalEntry(ctx, "nope", "x"), crud.ErrNotFound)
	assert.Empty(t, store.Calls())
}

func TestPurpose(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, backendtest.NewAuth("u1"), backendtest.NewStore())

	p, err := svc.Purpose(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Text)

	set, err := svc.SetPurpose(ctx, "Grow together")
	require.NoError(t, err)
	assert.Equal(t, "Grow together", set.Text)
	p, err = svc.Purpose(ctx)
	require.NoError(t, err)
	assert.Equal(t, set, p)
	assert.Equal(t, "u1", p.LastUpdatedBy)

	set, err = svc.SetPurpose(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, set.Text)
	p, err = svc.Purpose(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Text)
}

func TestSignedOutOperations(t *testing.T) {
	ctx := context.Background()
	auth := backendtest.NewAuth("u1")
	auth.AnonErr = assert.AnError
	svc := newService(t, auth, backendtest.NewStore())

	_, err := svc.Journal(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = svc.AddJournalEntry(ctx, "hi")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	snap, err := svc.Whoami(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Authenticated())
}

func TestOpenUsesLocalStore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Path:                t.TempDir(),
		AppID:               "test-app",
		FallbackToAnonymous: true,
	}
	a, err := Open(ctx, cfg, Options{View: router.Journal})
	require.NoError(t, err)
	defer a.Close()
	a.Timeout = 5 * time.Second

	// The store delivers snapshots after a short delay; the returned entry
	// is the one it saved.
	e, err := a.AddJournalEntry(ctx, "hello from disk")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "hello from disk", e.Text)
	assert.False(t, e.CreatedAt.IsZero())
	entries, err := a.Journal(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)

	uid := a.Auth.Current().UID
	assert.NotEmpty(t, uid)
}
