package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/backend/backendtest"
	"tableflip.dev/journey/pkg/session"
)

func TestAnonymousSignInWithoutNameAsksForOne(t *testing.T) {
	auth := backendtest.NewAuth("u1")
	kv := backendtest.NewKV()
	s := session.New()
	require.True(t, s.Snapshot().Resolving())

	b := &session.Bootstrap{Auth: auth, KV: kv}
	stop := b.Run(context.Background(), s)
	defer stop()

	snap := s.Snapshot()
	assert.Equal(t, session.StateAuthenticatedNoName, snap.State)
	assert.True(t, snap.NeedsName())
	assert.Equal(t, "u1", snap.UserID)

	require.NoError(t, b.SubmitName(s, "  Nico "))
	snap = s.Snapshot()
	assert.Equal(t, session.StateAuthenticatedNamed, snap.State)
	assert.Equal(t, "Nico", snap.DisplayName)

	stored, ok, err := kv.Get("user_name_u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Nico", stored)
}

func TestStoredNameIsRestored(t *testing.T) {
	auth := backendtest.NewAuth("u1")
	kv := backendtest.NewKV()
	require.NoError(t, kv.Set(session.NameKey("u1"), "Ana"))

	s := session.New()
	stop := (&session.Bootstrap{Auth: auth, KV: kv}).Run(context.Background(), s)
	defer stop()

	snap := s.Snapshot()
	assert.Equal(t, session.StateAuthenticatedNamed, snap.State)
	assert.Equal(t, "Ana", snap.DisplayName)
	assert.Equal(t, "Ana", snap.Author().Name())
}

func TestNameLookupErrorTreatedAsMissing(t *testing.T) {
	auth := backendtest.NewAuth("u1")
	kv := backendtest.NewKV()
	kv.GetErr = errors.New("disk gone")

	s := session.New()
	stop := (&session.Bootstrap{Auth: auth, KV: kv}).Run(context.Background(), s)
	defer stop()

	assert.True(t, s.Snapshot().NeedsName())
}

func TestTokenSignIn(t *testing.T) {
	auth := backendtest.NewAuth("anon")
	auth.Tokens["tok"] = "u9"

	s := session.New()
	stop := (&session.Bootstrap{Auth: auth, Token: "tok"}).Run(context.Background(), s)
	defer stop()

	assert.Equal(t, "u9", s.Snapshot().UserID)
	assert.Equal(t, 1, auth.TokenCalls())
	assert.Equal(t, 0, auth.AnonCalls())
}

func TestTokenFailureFallsBackOnce(t *testing.T) {
	auth := backendtest.NewAuth("anon")

	s := session.New()
	stop := (&session.Bootstrap{Auth: auth, Token: "bad", FallbackToAnonymous: true}).Run(context.Background(), s)
	defer stop()

	assert.Equal(t, "anon", s.Snapshot().UserID)
	assert.Equal(t, 1, auth.TokenCalls())
	assert.Equal(t, 1, auth.AnonCalls())
}

func TestTokenFailureWithoutFallback(t *testing.T) {
	auth := backendtest.NewAuth("anon")

	s := session.New()
	stop := (&session.Bootstrap{Auth: auth, Token: "bad"}).Run(context.Background(), s)
	defer stop()

	assert.Equal(t, session.StateUnauthenticated, s.Snapshot().State)
	assert.Equal(t, 0, auth.AnonCalls())
}

func TestFailedSignInIsNotRetried(t *testing.T) {
	auth := backendtest.NewAuth("anon")
	auth.AnonErr = errors.New("offline")

	s := session.New()
	stop := (&session.Bootstrap{Auth: auth}).Run(context.Background(), s)
	defer stop()

	assert.Equal(t, session.StateUnauthenticated, s.Snapshot().State)
	assert.Equal(t, 1, auth.AnonCalls())
}

func TestSignOutClearsIdentity(t *testing.T) {
	auth := backendtest.NewAuth("u1")
	s := session.New()
	stop := (&session.Bootstrap{Auth: auth}).Run(context.Background(), s)
	defer stop()

	var seen []session.State
	unwatch := s.Watch(func(snap session.Snapshot) { seen = append(seen, snap.State) })
	defer unwatch()

	require.NoError(t, auth.SignOut(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, session.StateUnauthenticated, snap.State)
	assert.Empty(t, snap.UserID)
	assert.Equal(t, []session.State{session.StateUnauthenticated}, seen)
}

func TestSubmitNameRequiresSession(t *testing.T) {
	s := session.New()
	b := &session.Bootstrap{Auth: backendtest.NewAuth("u1"), KV: backendtest.NewKV()}

	assert.ErrorIs(t, b.SubmitName(s, "Nico"), session.ErrNotAuthenticated)

	stop := b.Run(context.Background(), s)
	defer stop()
	assert.ErrorIs(t, b.SubmitName(s, "   "), session.ErrEmptyName)
	assert.True(t, s.Snapshot().NeedsName())
}

func TestStopRemovesListener(t *testing.T) {
	auth := backendtest.NewAuth("u1")
	s := session.New()
	stop := (&session.Bootstrap{Auth: auth}).Run(context.Background(), s)
	require.Equal(t, 1, auth.Listeners())
	stop()
	stop()
	assert.Equal(t, 0, auth.Listeners())

	auth.Set(&backend.Identity{UID: "other"})
	assert.Equal(t, "u1", s.Snapshot().UserID)
}

func TestOwns(t *testing.T) {
	cases := map[string]struct {
		snap    session.Snapshot
		creator string
		want    bool
	}{
		"owner":           {session.Snapshot{State: session.StateAuthenticatedNamed, UserID: "a"}, "a", true},
		"other":           {session.Snapshot{State: session.StateAuthenticatedNamed, UserID: "a"}, "b", false},
		"signed out":      {session.Snapshot{State: session.StateUnauthenticated}, "", false},
		"no name is fine": {session.Snapshot{State: session.StateAuthenticatedNoName, UserID: "a"}, "a", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.snap.Owns(tc.creator))
		})
	}
}
