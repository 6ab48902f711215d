// Package auth is a local auth provider offering anonymous and token
// sign-in with identity change listeners.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tableflip.dev/journey/pkg/backend"
)

var (
	ErrInvalidToken = errors.New("auth: invalid session token")
	ErrNoSecret     = errors.New("auth: token sign-in is not configured")
)

// AnonymousKey stores the device's anonymous user id in local KV.
const AnonymousKey = "auth_anonymous_uid"

// Claims is the payload of a session token.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Provider implements backend.Auth.
type Provider struct {
	kv     backend.KV
	secret []byte

	mu        sync.Mutex
	current   *backend.Identity
	listeners map[int]backend.IdentityListener
	next      int
}

var _ backend.Auth = (*Provider)(nil)

// New creates a provider. kv keeps the anonymous id across restarts; secret
// verifies HS256 session tokens and may be empty to disable token sign-in.
func New(kv backend.KV, secret string) *Provider {
	return &Provider{
		kv:        kv,
		secret:    []byte(secret),
		listeners: make(map[int]backend.IdentityListener),
	}
}

// Current returns the signed-in identity or nil.
func (p *Provider) Current() *backend.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Provider) SignInAnonymous(ctx context.Context) (*backend.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uid, err := p.anonymousUID()
	if err != nil {
		return nil, fmt.Errorf("auth: anonymous sign-in: %w", err)
	}
	id := &backend.Identity{UID: uid, Anonymous: true}
	p.set(id)
	return id, nil
}

func (p *Provider) anonymousUID() (string, error) {
	if p.kv == nil {
		return uuid.NewString(), nil
	}
	uid, ok, err := p.kv.Get(AnonymousKey)
	if err != nil {
		return "", err
	}
	if ok && strings.TrimSpace(uid) != "" {
		return uid, nil
	}
	uid = uuid.NewString()
	if err := p.kv.Set(AnonymousKey, uid); err != nil {
		return "", err
	}
	return uid, nil
}

func (p *Provider) SignInWithToken(ctx context.Context, token string) (*backend.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	id := &backend.Identity{UID: claims.Subject}
	if claims.Name != "" {
		id.Metadata = map[string]string{"name": claims.Name}
	}
	p.set(id)
	return id, nil
}

// SignOut clears the identity and notifies listeners with nil.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.set(nil)
	return nil
}

// OnIdentityChange registers fn. An already resolved identity is delivered
// immediately.
func (p *Provider) OnIdentityChange(fn backend.IdentityListener) backend.Unsubscribe {
	p.mu.Lock()
	key := p.next
	p.next++
	p.listeners[key] = fn
	current := p.current
	p.mu.Unlock()

	if current != nil {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, key)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) set(id *backend.Identity) {
	p.mu.Lock()
	p.current = id
	fns := make([]backend.IdentityListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

// IssueToken signs a session token for uid, for handing to the other
// person's device.
func IssueToken(secret, uid, name string, claims jwt.RegisteredClaims) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	claims.Subject = uid
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: name, RegisteredClaims: claims})
	return t.SignedString([]byte(secret))
}
