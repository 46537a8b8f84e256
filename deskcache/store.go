package deskcache

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/introlix/deskflow/core"
)

// Options configures a Store.
type Options struct {
	// TTL bounds how long a snapshot stays in the cache without a Put.
	TTL time.Duration

	// CleanupInterval controls how often expired snapshots are purged.
	CleanupInterval time.Duration
}

// Store is a volatile core.DeskStore backed by a TTL cache. Each returned
// desk is cloned to prevent external mutation of cached state.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// New constructs a Store with a 5 minute TTL unless overridden.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{
		TTL:             5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{cache: cache.New(opts.TTL, opts.CleanupInterval)}
}

// Get returns a clone of the cached snapshot, if one is present.
func (s *Store) Get(deskID string) (*core.Desk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x, found := s.cache.Get(deskID); found {
		return x.(*core.Desk).Clone(), true
	}
	return nil, false
}

// Put stores a clone of the snapshot, resetting its TTL. A Put from a
// refetch overwrites any optimistic messages appended since the last one.
func (s *Store) Put(desk *core.Desk) {
	if desk == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(desk.ID, desk.Clone(), cache.DefaultExpiration)
}

// AppendMessage adds an optimistic message to a cached snapshot so the
// conversation reflects a submitted turn before the backend echoes it.
func (s *Store) AppendMessage(deskID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, found := s.cache.Get(deskID)
	if !found {
		return core.ErrDeskNotFound
	}
	desk := x.(*core.Desk).Clone()
	desk.Messages = append(desk.Messages, msg)
	s.cache.Set(deskID, desk, cache.DefaultExpiration)
	return nil
}

// Invalidate drops a snapshot so the next read goes to the backend.
func (s *Store) Invalidate(deskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(deskID)
}

// Len reports how many snapshots are currently cached.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.ItemCount()
}
