// Package store is a local stand-in for the managed realtime document store:
// documents are JSON files managed by diskv, and live queries are driven by
// filesystem notifications.
package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/backend"
)

// ErrNotFound is returned for writes and reads of a missing document.
var ErrNotFound = errors.New("store: document not found")

// Documents implements backend.Store on the local filesystem.
type Documents struct {
	d        *diskv.Diskv
	basePath string
	log      *zap.Logger

	// mu serialises read-modify-write cycles within this process.
	mu  sync.Mutex
	now func() time.Time
}

var _ backend.Store = (*Documents)(nil)

// Open creates a document store rooted at basePath.
func Open(basePath string, log *zap.Logger) (*Documents, error) {
	if basePath == "" {
		return nil, errors.New("store: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Documents{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			// Other processes write the same files; nothing is cached.
			CacheSizeMax: 0,
		}),
		basePath: basePath,
		log:      log.Named("store"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// BasePath is the directory holding every collection.
func (p *Documents) BasePath() string { return p.basePath }

func (p *Documents) read(key string) (backend.Document, error) {
	rc, err := p.d.ReadStream(key, true)
	if err != nil {
		return backend.Document{}, err
	}
	defer rc.Close()
	val, err := io.ReadAll(rc)
	if err != nil {
		return backend.Document{}, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(val, &fields); err != nil {
		return backend.Document{}, err
	}
	pk := keyToPathTransform(key)
	return backend.Document{ID: pk.FileName, Fields: fields}, nil
}

func (p *Documents) write(key string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return p.d.Write(key, data)
}

// resolve replaces server timestamp placeholders with the store clock.
func (p *Documents) resolve(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	now := p.now()
	for k, v := range fields {
		if backend.IsServerTimestamp(v) {
			out[k] = formatTime(now)
			continue
		}
		out[k] = v
	}
	return out
}

// Get reads one document.
func (p *Documents) Get(_ context.Context, path, id string) (backend.Document, error) {
	key := toKey(path, id)
	if !p.d.Has(key) {
		return backend.Document{}, ErrNotFound
	}
	return p.read(key)
}

// List returns every document of q.Path in q's order.
func (p *Documents) List(ctx context.Context, q backend.Query) []backend.Document {
	ck := toCollection(q.Path)
	all := make([]backend.Document, 0)
	for key := range p.d.Keys(ctx.Done()) {
		if pk := keyToPathTransform(key); len(pk.Path) == 0 || pk.Path[0] != ck {
			continue
		}
		doc, err := p.read(key)
		if err != nil {
			p.log.Warn("read document", zap.String("key", key), zap.Error(err))
			continue
		}
		all = append(all, doc)
	}
	sortDocuments(all, q.OrderBy, q.Direction)
	return all
}

// Append stores a new document under a generated id.
func (p *Documents) Append(_ context.Context, path string, fields map[string]any) (string, error) {
	id := newID()
	if err := p.write(toKey(path, id), p.resolve(fields)); err != nil {
		return "", fmt.Errorf("store: append %s: %w", path, err)
	}
	return id, nil
}

// UpdateFields changes only the given fields of an existing document.
func (p *Documents) UpdateFields(ctx context.Context, path, id string, fields map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.Get(ctx, path, id)
	if err != nil {
		return err
	}
	for k, v := range p.resolve(fields) {
		doc.Fields[k] = v
	}
	if err := p.write(toKey(path, id), doc.Fields); err != nil {
		return fmt.Errorf("store: update %s/%s: %w", path, id, err)
	}
	return nil
}

// Remove erases a document.
func (p *Documents) Remove(_ context.Context, path, id string) error {
	key := toKey(path, id)
	if !p.d.Has(key) {
		return ErrNotFound
	}
	return p.d.Erase(key)
}

// UpsertMerge merges fields into the document, creating it if needed.
func (p *Documents) UpsertMerge(ctx context.Context, path, id string, fields map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.Get(ctx, path, id)
	if errors.Is(err, ErrNotFound) {
		doc = backend.Document{ID: id, Fields: map[string]any{}}
	} else if err != nil {
		return err
	}
	for k, v := range p.resolve(fields) {
		doc.Fields[k] = v
	}
	if err := p.write(toKey(path, id), doc.Fields); err != nil {
		return fmt.Errorf("store: upsert %s/%s: %w", path, id, err)
	}
	return nil
}

// ensureCollection creates the directory of a collection so it can be
// watched before its first document exists.
func (p *Documents) ensureCollection(path string) error {
	return os.MkdirAll(filepath.Join(p.basePath, toCollection(path)), 0o755)
}

func sortDocuments(docs []backend.Document, field string, dir backend.Direction) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Fields[field], docs[j].Fields[field])
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if dir == backend.Desc {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders missing values first, then times, numbers and
// strings.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if at, err := time.Parse(time.RFC3339, as); err == nil {
		if bt, err := time.Parse(time.RFC3339, bs); err == nil {
			return at.Compare(bt)
		}
	}
	if af, err := strconv.ParseFloat(as, 64); err == nil {
		if bf, err := strconv.ParseFloat(bs, 64); err == nil {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(as, bs)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func keyToPathTransform(s string) *diskv.PathKey {
	i := strings.LastIndex(s, "-")
	if i < 0 {
		return &diskv.PathKey{Path: []string{}, FileName: s}
	}
	return &diskv.PathKey{
		Path:     []string{s[:i]},
		FileName: s[i+1:],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}

// toKey makes `hex(collection)-id`
func toKey(path, id string) string {
	return fmt.Sprintf("%s-%s", toCollection(path), id)
}

func toCollection(s string) string {
	return hex.EncodeToString([]byte(s))
}

func fromCollection(s string) string {
	collection, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(collection)
}
