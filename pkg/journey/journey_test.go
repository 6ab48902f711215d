package journey_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/backend/backendtest"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/session"
)

var paths = backend.Paths{AppID: "app"}

func start(t *testing.T, store *backendtest.Store, auth *backendtest.Auth) *journey.Journey {
	t.Helper()
	j := journey.New(journey.Deps{
		Auth:    auth,
		Store:   store,
		KV:      backendtest.NewKV(),
		Confirm: backend.AlwaysConfirm,
		Paths:   paths,
	})
	require.NoError(t, j.Start(context.Background()))
	require.NoError(t, j.WaitReady(context.Background(), time.Second))
	t.Cleanup(j.Close)
	return j
}

func TestStartsOnMomentsView(t *testing.T) {
	store := backendtest.NewStore()
	store.Seed(paths.Moments(), "m1", map[string]any{
		"title": "First date", "type": "cloud", "createdAt": "2024-01-01T00:00:00Z", "creatorId": "u1",
	})
	j := start(t, store, backendtest.NewAuth("u1"))

	assert.Equal(t, router.Moments, j.Mounted())
	assert.True(t, j.Session().Snapshot().NeedsName())
	moments := j.Moments().Records()
	require.Len(t, moments, 1)
	assert.Equal(t, record.MomentCloud, moments[0].Type)
	assert.Equal(t, 1, store.Active())
}

func TestPurposeNeverWrittenIsEmpty(t *testing.T) {
	store := backendtest.NewStore()
	j := start(t, store, backendtest.NewAuth("u1"))

	require.NoError(t, j.Select(router.Purpose))
	require.NoError(t, j.WaitReady(context.Background(), time.Second))
	assert.Equal(t, "", j.PurposeText())
	assert.Empty(t, j.Purpose().ErrMessage())

	c := j.Purpose().Commands
	c.SetDraft(record.PurposeForm{Text: "Grow together"})
	require.NoError(t, c.Create(context.Background()))
	assert.Equal(t, "Grow together", j.PurposeText())
}

func TestSelectMovesSubscription(t *testing.T) {
	store := backendtest.NewStore()
	j := start(t, store, backendtest.NewAuth("u1"))

	require.NoError(t, j.Select(router.Journal))
	assert.Equal(t, router.Journal, j.Mounted())
	assert.Equal(t, 1, store.Active())
	assert.Equal(t, 2, store.Opened())
	assert.False(t, j.Moments().Binder.Active())
	assert.True(t, j.Journal().Binder.Active())

	// Selecting the current view again is a no-op.
	require.NoError(t, j.Select(router.Journal))
	assert.Equal(t, 2, store.Opened())
}

func TestSignOutClearsSnapshot(t *testing.T) {
	store := backendtest.NewStore()
	store.Seed(paths.Journal(), "e1", map[string]any{
		"text": "ours", "createdAt": "2024-01-01T00:00:00Z", "creatorId": "u1",
	})
	auth := backendtest.NewAuth("u1")
	j := start(t, store, auth)
	require.NoError(t, j.Select(router.Journal))
	require.Len(t, j.Journal().Records(), 1)

	require.NoError(t, j.SignOut(context.Background()))
	assert.Equal(t, session.StateUnauthenticated, j.Session().Snapshot().State)
	assert.Empty(t, j.Journal().Records())
	assert.Equal(t, 0, store.Active())

	auth.Set(&backend.Identity{UID: "u2"})
	assert.Len(t, j.Journal().Records(), 1)
	assert.Equal(t, 1, store.Active())
}

func TestUnauthenticatedStaysInert(t *testing.T) {
	store := backendtest.NewStore()
	auth := backendtest.NewAuth("u1")
	auth.AnonErr = assert.AnError
	j := start(t, store, auth)

	assert.Equal(t, session.StateUnauthenticated, j.Session().Snapshot().State)
	assert.Equal(t, 0, store.Opened())

	c := j.Moments().Commands
	c.SetDraft(record.MomentForm{Title: "x"})
	assert.Error(t, c.Create(context.Background()))
	assert.Empty(t, store.Calls())
}

func TestSubmitNameNotifies(t *testing.T) {
	j := start(t, backendtest.NewStore(), backendtest.NewAuth("u1"))
	changed := make(chan struct{}, 8)
	j.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, j.SubmitName("Nico"))
	assert.Equal(t, "Nico", j.Session().Snapshot().DisplayName)
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	store := backendtest.NewStore()
	auth := backendtest.NewAuth("u1")
	j := journey.New(journey.Deps{Auth: auth, Store: store, Paths: paths})
	require.NoError(t, j.Start(context.Background()))
	assert.Error(t, j.Start(context.Background()))

	j.Close()
	j.Close()
	assert.Equal(t, 0, store.Active())
	assert.Equal(t, 0, auth.Listeners())
	assert.Error(t, j.Select(router.Journal))
}
