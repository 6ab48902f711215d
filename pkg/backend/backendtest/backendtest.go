// Package backendtest provides in-memory Auth, Store and KV implementations
// for tests. Snapshots are delivered synchronously on the calling goroutine.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tableflip.dev/journey/pkg/backend"
)

// Call records one store operation.
type Call struct {
	Op     string
	Path   string
	ID     string
	Fields map[string]any
}

type subscription struct {
	query   backend.Query
	onSnap  backend.SnapshotFunc
	onError backend.ErrorFunc
}

// Store is an in-memory backend.Store.
type Store struct {
	mu      sync.Mutex
	docs    map[string]map[string]map[string]any
	subs    map[int]*subscription
	nextSub int
	nextID  int
	tick    int
	calls   []Call

	// SubscribeErr fails every Subscribe call.
	SubscribeErr error
	// WriteErr fails every write.
	WriteErr error
	// Gate, when set, holds every write until a value is received.
	Gate chan struct{}
	// Base is the clock start used for server timestamps.
	Base time.Time

	opened int
	closed int
}

func NewStore() *Store {
	return &Store{
		docs: make(map[string]map[string]map[string]any),
		subs: make(map[int]*subscription),
		Base: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Seed stores a document without recording a call or notifying.
func (s *Store) Seed(path, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(path)[id] = s.resolve(fields)
}

func (s *Store) collection(path string) map[string]map[string]any {
	c, ok := s.docs[path]
	if !ok {
		c = make(map[string]map[string]any)
		s.docs[path] = c
	}
	return c
}

func (s *Store) resolve(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if backend.IsServerTimestamp(v) {
			s.tick++
			v = s.Base.Add(time.Duration(s.tick) * time.Second).Format(time.RFC3339Nano)
		}
		out[k] = v
	}
	return out
}

func (s *Store) snapshotLocked(q backend.Query) []backend.Document {
	docs := make([]backend.Document, 0, len(s.docs[q.Path]))
	for id, fields := range s.docs[q.Path] {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		docs = append(docs, backend.Document{ID: id, Fields: copied})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := docs[i].Fields[q.OrderBy].(string)
		b, _ := docs[j].Fields[q.OrderBy].(string)
		if a == b {
			return docs[i].ID < docs[j].ID
		}
		if q.Direction == backend.Asc {
			return a < b
		}
		return a > b
	})
	return docs
}

func (s *Store) Subscribe(_ context.Context, q backend.Query, onSnap backend.SnapshotFunc, onError backend.ErrorFunc) (backend.Unsubscribe, error) {
	s.mu.Lock()
	if s.SubscribeErr != nil {
		err := s.SubscribeErr
		s.mu.Unlock()
		return nil, err
	}
	key := s.nextSub
	s.nextSub++
	s.subs[key] = &subscription{query: q, onSnap: onSnap, onError: onError}
	s.opened++
	snap := s.snapshotLocked(q)
	s.mu.Unlock()

	onSnap(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, key)
			s.closed++
			s.mu.Unlock()
		})
	}, nil
}

// Fail reports err to every subscription on path.
func (s *Store) Fail(path string, err error) {
	s.mu.Lock()
	var fns []backend.ErrorFunc
	for _, sub := range s.subs {
		if sub.query.Path == path {
			fns = append(fns, sub.onError)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

// Push delivers the current snapshot of path to its subscribers.
func (s *Store) Push(path string) {
	type delivery struct {
		fn   backend.SnapshotFunc
		docs []backend.Document
	}
	s.mu.Lock()
	var out []delivery
	for _, sub := range s.subs {
		if sub.query.Path == path {
			out = append(out, delivery{fn: sub.onSnap, docs: s.snapshotLocked(sub.query)})
		}
	}
	s.mu.Unlock()
	for _, d := range out {
		d.fn(d.docs)
	}
}

func (s *Store) write(c Call, apply func() error) error {
	if s.Gate != nil {
		<-s.Gate
	}
	s.mu.Lock()
	s.calls = append(s.calls, c)
	if s.WriteErr != nil {
		err := s.WriteErr
		s.mu.Unlock()
		return err
	}
	err := apply()
	s.mu.Unlock()
	if err == nil {
		s.Push(c.Path)
	}
	return err
}

func (s *Store) Append(_ context.Context, path string, fields map[string]any) (string, error) {
	var id string
	err := s.write(Call{Op: "append", Path: path, Fields: fields}, func() error {
		s.nextID++
		id = fmt.Sprintf("doc%03d", s.nextID)
		s.collection(path)[id] = s.resolve(fields)
		return nil
	})
	return id, err
}

// ErrMissing is returned when updating or removing an unknown document.
var ErrMissing = errors.New("backendtest: no such document")

func (s *Store) UpdateFields(_ context.Context, path, id string, fields map[string]any) error {
	return s.write(Call{Op: "update", Path: path, ID: id, Fields: fields}, func() error {
		doc, ok := s.collection(path)[id]
		if !ok {
			return ErrMissing
		}
		for k, v := range s.resolve(fields) {
			doc[k] = v
		}
		return nil
	})
}

func (s *Store) Remove(_ context.Context, path, id string) error {
	return s.write(Call{Op: "remove", Path: path, ID: id}, func() error {
		if _, ok := s.collection(path)[id]; !ok {
			return ErrMissing
		}
		delete(s.collection(path), id)
		return nil
	})
}

func (s *Store) UpsertMerge(_ context.Context, path, id string, fields map[string]any) error {
	return s.write(Call{Op: "upsert", Path: path, ID: id, Fields: fields}, func() error {
		c := s.collection(path)
		doc, ok := c[id]
		if !ok {
			doc = make(map[string]any)
			c[id] = doc
		}
		for k, v := range s.resolve(fields) {
			doc[k] = v
		}
		return nil
	})
}

// Calls returns every write recorded so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Opened and Closed count subscriptions.
func (s *Store) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Store) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Active is the number of open subscriptions.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Auth is an in-memory backend.Auth.
type Auth struct {
	mu        sync.Mutex
	listeners map[int]backend.IdentityListener
	next      int
	current   *backend.Identity

	// AnonymousUID is handed out by SignInAnonymous.
	AnonymousUID string
	// Tokens maps accepted tokens to uids.
	Tokens   map[string]string
	AnonErr  error
	TokenErr error

	anonCalls  int
	tokenCalls int
}

func NewAuth(anonymousUID string) *Auth {
	return &Auth{
		listeners:    make(map[int]backend.IdentityListener),
		AnonymousUID: anonymousUID,
		Tokens:       make(map[string]string),
	}
}

// ErrRejected is returned for unknown tokens.
var ErrRejected = errors.New("backendtest: token rejected")

func (a *Auth) SignInAnonymous(context.Context) (*backend.Identity, error) {
	a.mu.Lock()
	a.anonCalls++
	if a.AnonErr != nil {
		err := a.AnonErr
		a.mu.Unlock()
		return nil, err
	}
	a.mu.Unlock()
	id := &backend.Identity{UID: a.AnonymousUID, Anonymous: true}
	a.Set(id)
	return id, nil
}

func (a *Auth) SignInWithToken(_ context.Context, token string) (*backend.Identity, error) {
	a.mu.Lock()
	a.tokenCalls++
	uid, ok := a.Tokens[token]
	err := a.TokenErr
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRejected
	}
	id := &backend.Identity{UID: uid}
	a.Set(id)
	return id, nil
}

func (a *Auth) SignOut(context.Context) error {
	a.Set(nil)
	return nil
}

func (a *Auth) OnIdentityChange(fn backend.IdentityListener) backend.Unsubscribe {
	a.mu.Lock()
	key := a.next
	a.next++
	a.listeners[key] = fn
	current := a.current
	a.mu.Unlock()
	if current != nil {
		fn(current)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, key)
			a.mu.Unlock()
		})
	}
}

// Set changes the current identity and fires every listener.
func (a *Auth) Set(id *backend.Identity) {
	a.mu.Lock()
	a.current = id
	fns := make([]backend.IdentityListener, 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func (a *Auth) AnonCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.anonCalls
}

func (a *Auth) TokenCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenCalls
}

func (a *Auth) Listeners() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

// KV is an in-memory backend.KV.
type KV struct {
	mu     sync.Mutex
	values map[string]string
	GetErr error
}

func NewKV() *KV {
	return &KV{values: make(map[string]string)}
}

func (k *KV) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.GetErr != nil {
		return "", false, k.GetErr
	}
	v, ok := k.values[key]
	return v, ok, nil
}

func (k *KV) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.values[key] = value
	return nil
}

// Confirm answers every question with Answer and counts the questions.
type Confirm struct {
	mu     sync.Mutex
	Answer bool
	asked  []string
}

func (c *Confirm) Confirm(question string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked = append(c.asked, question)
	return c.Answer
}

func (c *Confirm) Asked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.asked...)
}
