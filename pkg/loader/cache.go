package loader

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds a shared load once it no longer follows the context
// of the caller that started it.
const loadTimeout = 2 * time.Minute

// Scope holds the memoized loads of one ingestion. Every Cache used with a
// context carrying the same Scope shares its entries; the entries are
// released with the Scope.
type Scope struct {
	mu    sync.RWMutex
	items map[string]any
	group singleflight.Group
}

func NewScope() *Scope {
	return &Scope{items: make(map[string]any)}
}

func (s *Scope) lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *Scope) store(key string, v any) {
	s.mu.Lock()
	s.items[key] = v
	s.mu.Unlock()
}

type scopeKey struct{}

// WithScope returns a context whose Cache lookups go through s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

func scopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

var cacheIDs atomic.Uint64

// Cache memoizes loads by key within the Scope of the calling context.
// Concurrent loads of the same key share a single call; failed loads are
// not cached. Without a Scope every Get loads.
type Cache[T any] struct {
	id string
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{id: strconv.FormatUint(cacheIDs.Add(1), 10)}
}

// Get returns the value for key or calls load to produce it. A shared load
// outlives the caller that started it, so a cancelled caller only fails
// itself.
func (c *Cache[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	s := scopeFrom(ctx)
	if s == nil {
		return load(ctx)
	}

	k := c.id + "\x00" + key
	if v, ok := s.lookup(k); ok {
		return v.(T), nil
	}

	ch := s.group.DoChan(k, func() (any, error) {
		if v, ok := s.lookup(k); ok {
			return v, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		s.store(k, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
