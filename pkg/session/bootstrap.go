package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
)

var (
	ErrNotAuthenticated = errors.New("session: not signed in")
	ErrEmptyName        = errors.New("session: display name is required")
)

// NameKey is the local KV key holding the display name of uid.
func NameKey(uid string) string {
	return "user_name_" + uid
}

// Bootstrap signs in once and keeps the Session in step with the auth
// provider. There is no retry: a failed sign-in leaves the session
// unauthenticated until the process restarts.
type Bootstrap struct {
	Auth backend.Auth
	KV   backend.KV
	// Token is an externally supplied session token. When empty the
	// bootstrap signs in anonymously.
	Token string
	// FallbackToAnonymous allows a single anonymous attempt after a failed
	// token sign-in.
	FallbackToAnonymous bool
	Logger              *zap.Logger
}

func (b *Bootstrap) log() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// Run registers the identity listener, then attempts sign-in. It returns the
// listener's unsubscribe handle; the listener stays registered for the life
// of the process otherwise.
func (b *Bootstrap) Run(ctx context.Context, s *Session) backend.Unsubscribe {
	stop := b.Auth.OnIdentityChange(func(id *backend.Identity) {
		if id == nil {
			b.log().Info("signed out")
			s.signedOut()
			return
		}
		name := b.lookupName(id.UID)
		b.log().Info("signed in", zap.String("uid", id.UID), zap.Bool("anonymous", id.Anonymous), zap.Bool("named", name != ""))
		s.signedIn(id.UID, name)
	})

	if err := b.signIn(ctx); err != nil {
		b.log().Error("sign-in failed", zap.Error(err))
		s.failed()
	}
	return stop
}

func (b *Bootstrap) signIn(ctx context.Context) error {
	token := strings.TrimSpace(b.Token)
	if token == "" {
		_, err := b.Auth.SignInAnonymous(ctx)
		return err
	}
	_, err := b.Auth.SignInWithToken(ctx, token)
	if err == nil || !b.FallbackToAnonymous {
		return err
	}
	b.log().Warn("token sign-in failed, trying anonymous", zap.Error(err))
	_, err = b.Auth.SignInAnonymous(ctx)
	return err
}

func (b *Bootstrap) lookupName(uid string) string {
	if b.KV == nil {
		return ""
	}
	name, ok, err := b.KV.Get(NameKey(uid))
	if err != nil {
		b.log().Warn("display name lookup failed", zap.String("uid", uid), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(name)
}

// SubmitName stores name for the signed-in user and moves the session to
// AuthenticatedNamed.
func (b *Bootstrap) SubmitName(s *Session, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	snap := s.Snapshot()
	if !snap.Authenticated() {
		return ErrNotAuthenticated
	}
	if b.KV != nil {
		if err := b.KV.Set(NameKey(snap.UserID), name); err != nil {
			return err
		}
	}
	if !s.named(snap.UserID, name) {
		return ErrNotAuthenticated
	}
	return nil
}
