package stores

import (
	"context"
	"sync"
	"time"

	"github.com/liut/beeview/pkg/models/aigc"
)

// memoryMaxSessions caps the sessions held by one process.
const memoryMaxSessions = 10000

type memoryEntry struct {
	state   *State
	history aigc.HistoryItems
	expires time.Time
}

type memorySessions struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	limit   int
	now     func() time.Time
}

// NewMemorySessions returns a process-local Sessions. Entries live as long as
// the redis ones and the oldest are evicted past a fixed count.
func NewMemorySessions() Sessions {
	return newMemorySessions(sessionLifetime, memoryMaxSessions, time.Now)
}

func newMemorySessions(ttl time.Duration, limit int, now func() time.Time) *memorySessions {
	return &memorySessions{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		limit:   limit,
		now:     now,
	}
}

// live returns the unexpired entry of id, dropping a stale one. Caller holds mu.
func (s *memorySessions) live(id string) *memoryEntry {
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, id)
		return nil
	}
	return e
}

// touch returns the entry of id, created if needed, with a renewed lifetime.
// Caller holds mu.
func (s *memorySessions) touch(id string) *memoryEntry {
	e := s.live(id)
	if e == nil {
		s.evict()
		e = &memoryEntry{}
		s.entries[id] = e
	}
	e.expires = s.now().Add(s.ttl)
	return e
}

// evict makes room for one more entry: expired entries first, then the one
// closest to expiry. Caller holds mu.
func (s *memorySessions) evict() {
	if len(s.entries) < s.limit {
		return
	}
	now := s.now()
	var oldestID string
	var oldest time.Time
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
			continue
		}
		if len(oldestID) == 0 || e.expires.Before(oldest) {
			oldestID, oldest = id, e.expires
		}
	}
	if len(s.entries) >= s.limit && len(oldestID) > 0 {
		logger().Debugw("evict memory session", "sid", oldestID)
		delete(s.entries, oldestID)
	}
}

func (s *memorySessions) Load(ctx context.Context, id string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(id); e != nil && e.state != nil {
		st := *e.state
		return &st, nil
	}
	return NewState(id), nil
}

func (s *memorySessions) Save(ctx context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.touch(st.ID).state = &cp
	return nil
}

func (s *memorySessions) History(id string) History {
	return &memoryHistory{s: s, id: id}
}

type memoryHistory struct {
	s  *memorySessions
	id string
}

func (h *memoryHistory) AddHistory(ctx context.Context, item *aigc.HistoryItem) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	e := h.s.touch(h.id)
	e.history = append(e.history, *item).Recently(historyMaxLength)
	return nil
}

func (h *memoryHistory) ListHistory(ctx context.Context) (aigc.HistoryItems, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if e := h.s.live(h.id); e != nil {
		return append(aigc.HistoryItems(nil), e.history...), nil
	}
	return nil, nil
}

func (h *memoryHistory) ClearHistory(ctx context.Context) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if e := h.s.live(h.id); e != nil {
		e.history = nil
	}
	return nil
}
