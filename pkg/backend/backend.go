// Package backend describes the managed services journey is a client of: an
// auth provider, a realtime document store, local key-value persistence and a
// blocking confirmation prompt. Concrete implementations live in pkg/auth and
// pkg/store; the core packages only depend on these contracts.
package backend

import (
	"context"
	"fmt"
)

// Identity is a signed-in user as reported by the auth provider.
type Identity struct {
	UID       string
	Anonymous bool
	// Metadata carries provider specific claims (for example a display name
	// embedded in a session token).
	Metadata map[string]string
}

// IdentityListener is fired with the current identity, or nil after sign-out.
type IdentityListener func(id *Identity)

// Unsubscribe stops a listener or subscription. Implementations must make it
// safe to call more than once.
type Unsubscribe func()

// Auth is the subset of the auth provider journey relies on.
type Auth interface {
	SignInAnonymous(ctx context.Context) (*Identity, error)
	SignInWithToken(ctx context.Context, token string) (*Identity, error)
	OnIdentityChange(fn IdentityListener) Unsubscribe
}

// Direction orders a query.
type Direction int

const (
	Desc Direction = iota
	Asc
)

func (d Direction) String() string {
	if d == Asc {
		return "asc"
	}
	return "desc"
}

// Query selects every document of one collection in a given order.
type Query struct {
	Path      string
	OrderBy   string
	Direction Direction
}

// Document is one stored record. Fields holds the decoded JSON body.
type Document struct {
	ID     string
	Fields map[string]any
}

type serverTimestamp struct{}

func (serverTimestamp) String() string { return "<server timestamp>" }

// ServerTimestamp is a field value placeholder that the store replaces with
// its own clock when the write is applied.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// SnapshotFunc receives the full ordered result set of a subscription.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives subscription failures.
type ErrorFunc func(err error)

// Store is the realtime document store.
type Store interface {
	Subscribe(ctx context.Context, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)
	Append(ctx context.Context, path string, fields map[string]any) (string, error)
	UpdateFields(ctx context.Context, path, id string, fields map[string]any) error
	Remove(ctx context.Context, path, id string) error
	UpsertMerge(ctx context.Context, path, id string, fields map[string]any) error
}

// KV is local persistent key-value storage.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Confirmer asks a blocking yes/no question.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) bool

func (f ConfirmFunc) Confirm(question string) bool { return f(question) }

// AlwaysConfirm answers yes to every question.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

const (
	MomentsCollection = "journey_moments"
	JournalCollection = "journal_entries"
	PurposeCollection = "our_purpose"
	PurposeDocument   = "sharedPurpose"
)

// Paths builds collection paths namespaced under an application id, in the
// layout existing deployments already use.
type Paths struct {
	AppID string
}

func (p Paths) root() string {
	return fmt.Sprintf("artifacts/%s/public/data", p.AppID)
}

func (p Paths) Moments() string { return p.root() + "/" + MomentsCollection }

func (p Paths) Journal() string { return p.root() + "/" + JournalCollection }

func (p Paths) Purpose() string { return p.root() + "/" + PurposeCollection }
