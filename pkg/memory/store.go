package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/marten/pkg/model"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultTTL             = time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// entry is the slot of one session id. mu serializes every AnalyzeQuery call
// for the id so a read-modify-write of the session is atomic. refs counts
// the callers holding or waiting for mu and is guarded by Store.mu.
type entry struct {
	mu       sync.Mutex
	session  *model.ResearchSession
	refs     int
	lastUsed time.Time
}

// Store keeps one research slot per session id. Slots live in a map guarded
// by mu; go-cache only tracks idle slots and evicts them after the TTL. A
// slot with refs > 0 is never evicted.
type Store struct {
	mu      sync.Mutex
	entries map[model.SessionID]*entry
	idle    *cache.Cache
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for session timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cleanup := defaultCleanupInterval
	if ttl < cleanup {
		cleanup = ttl
	}

	s := &Store{
		entries: make(map[model.SessionID]*entry),
		idle:    cache.New(ttl, cleanup),
		ttl:     ttl,
		now:     time.Now,
	}
	s.idle.OnEvicted(s.evict)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// evict runs from the go-cache janitor without its lock held
func (s *Store) evict(key string, v any) {
	e, ok := v.(*entry)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := model.SessionID(key)
	if cur, ok := s.entries[id]; ok && cur == e && e.refs == 0 {
		delete(s.entries, id)
	}
}

func (s *Store) hold(id model.SessionID) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if ok && e.refs == 0 && time.Since(e.lastUsed) > s.ttl {
		// expired but not swept yet
		ok = false
	}
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	e.refs++
	return e
}

func (s *Store) release(id model.SessionID, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	e.lastUsed = time.Now()
	if e.refs > 0 {
		return
	}
	if cur, ok := s.entries[id]; ok && cur == e {
		s.idle.Set(string(id), e, cache.DefaultExpiration)
	}
}

// Acquire locks the slot of id and returns a handle to it. The caller owns
// the slot until Release is called; other callers for the same id block,
// however long the owner holds it.
func (s *Store) Acquire(id model.SessionID) *Memory {
	if id == "" {
		id = model.DefaultSessionID
	}
	e := s.hold(id)
	e.mu.Lock()
	return &Memory{store: s, id: id, entry: e}
}

// Status describes the slot of one session id
type Status struct {
	Active    bool   `json:"active"`
	Subject   string `json:"product,omitempty"`
	Category  string `json:"category,omitempty"`
	Exchanges int    `json:"exchanges"`
}

func (x Status) String() string {
	if !x.Active {
		return "No active session"
	}
	return fmt.Sprintf("Active session: %s (%d exchanges)", x.Subject, x.Exchanges)
}

func (s *Store) Status(id model.SessionID) Status {
	mem := s.Acquire(id)
	defer mem.Release()
	return mem.Status()
}

// Clear removes the research session of id
func (s *Store) Clear(id model.SessionID) {
	mem := s.Acquire(id)
	defer mem.Release()
	mem.ClearSession()
}

// Len returns the number of live slots, including empty ones
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
