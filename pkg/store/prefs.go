package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/journey/pkg/backend"
)

// prefsTTL bounds how long a value written by another process can stay hidden.
const prefsTTL = time.Minute

// Prefs is local key-value persistence on disk, one file per key, read
// through an in-memory cache.
type Prefs struct {
	d *diskv.Diskv
	c *cache.Cache
}

var _ backend.KV = (*Prefs)(nil)

func OpenPrefs(basePath string) (*Prefs, error) {
	if basePath == "" {
		return nil, errors.New("store: prefs path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure prefs path: %w", err)
	}
	return &Prefs{
		d: diskv.New(diskv.Options{
			BasePath:  basePath,
			Transform: func(string) []string { return []string{} },
		}),
		c: cache.New(prefsTTL, 2*prefsTTL),
	}, nil
}

func prefKey(key string) string {
	return url.PathEscape(key)
}

func (p *Prefs) Get(key string) (string, bool, error) {
	k := prefKey(key)
	if x, found := p.c.Get(k); found {
		return x.(string), true, nil
	}
	if !p.d.Has(k) {
		return "", false, nil
	}
	val, err := p.d.Read(k)
	if err != nil {
		return "", false, err
	}
	p.c.SetDefault(k, string(val))
	return string(val), true, nil
}

func (p *Prefs) Set(key, value string) error {
	k := prefKey(key)
	if err := p.d.Write(k, []byte(value)); err != nil {
		p.c.Delete(k)
		return err
	}
	p.c.SetDefault(k, value)
	return nil
}

// MemoryKV keeps values for the life of the process only.
type MemoryKV struct {
	c *cache.Cache
}

var _ backend.KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	if x, found := m.c.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.c.Set(key, value, cache.NoExpiration)
	return nil
}
