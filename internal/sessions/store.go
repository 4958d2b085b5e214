// Package sessions keeps one conversation per caller-supplied key, bounded by
// an idle TTL and a maximum count.
package sessions

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/loanbot/internal/domain"
	"github.com/ashureev/loanbot/internal/observability"
)

// Conversation is the per-key state machine the store hands out.
type Conversation interface {
	ProcessMessage(ctx context.Context, utterance string) domain.Reply
	State() domain.Session
	Reset()
}

// Factory builds a fresh conversation for a new key.
type Factory func(key string) Conversation

// Config tunes a Store.
type Config struct {
	TTL         time.Duration
	MaxSessions int
	Factory     Factory
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store maps session keys to conversations. Front of the list is the most
// recently used entry.
type Store struct {
	mu sync.Mutex

	ttl         time.Duration
	maxSessions int
	factory     Factory
	now         func() time.Time

	lru *list.List
	m   map[string]*list.Element
}

type entry struct {
	key      string
	lastUsed time.Time

	// turn serializes access to conv.
	turn sync.Mutex
	conv Conversation
}

// NewStore creates a Store. Factory is required.
func NewStore(cfg Config) *Store {
	if cfg.Factory == nil {
		panic("sessions: nil Factory")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	maxS := cfg.MaxSessions
	if maxS <= 0 {
		maxS = 10000
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		ttl:         ttl,
		maxSessions: maxS,
		factory:     cfg.Factory,
		now:         now,
		lru:         list.New(),
		m:           map[string]*list.Element{},
	}
}

// NewKey returns a fresh, time-ordered session key.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Do runs fn with exclusive access to the conversation for key, creating it
// if needed. Calls for the same key run one at a time; different keys never
// block each other.
func (st *Store) Do(key string, fn func(Conversation)) {
	e := st.acquire(key, true)
	e.turn.Lock()
	defer e.turn.Unlock()
	fn(e.conv)
}

// View is like Do but does not create a missing conversation. It reports
// whether one existed.
func (st *Store) View(key string, fn func(Conversation)) bool {
	e := st.acquire(key, false)
	if e == nil {
		return false
	}
	e.turn.Lock()
	defer e.turn.Unlock()
	fn(e.conv)
	return true
}

// Delete drops the conversation for key and reports whether it existed.
func (st *Store) Delete(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	e := st.m[key]
	if e == nil {
		return false
	}
	st.deleteElemLocked(e)
	st.publishLocked()
	return true
}

// Len returns the number of live conversations.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lru.Len()
}

// Sweep evicts idle conversations and returns how many were dropped.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	n := st.evictExpiredLocked(st.now())
	st.publishLocked()
	return n
}

func (st *Store) acquire(key string, create bool) *entry {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)
	defer st.publishLocked()

	if el := st.m[key]; el != nil {
		e := el.Value.(*entry)
		e.lastUsed = now
		st.lru.MoveToFront(el)
		return e
	}
	if !create {
		return nil
	}

	e := &entry{key: key, lastUsed: now, conv: st.factory(key)}
	st.m[key] = st.lru.PushFront(e)
	st.evictOverLimitLocked()
	return e
}

func (st *Store) evictExpiredLocked(now time.Time) int {
	n := 0
	for el := st.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.Sub(el.Value.(*entry).lastUsed) <= st.ttl {
			break
		}
		st.deleteElemLocked(el)
		n++
		el = prev
	}
	return n
}

func (st *Store) evictOverLimitLocked() {
	for st.lru.Len() > st.maxSessions {
		el := st.lru.Back()
		if el == nil {
			return
		}
		slog.Debug("Evicting least recently used conversation", "session_key", el.Value.(*entry).key)
		st.deleteElemLocked(el)
	}
}

func (st *Store) deleteElemLocked(el *list.Element) {
	delete(st.m, el.Value.(*entry).key)
	st.lru.Remove(el)
}

func (st *Store) publishLocked() {
	observability.SessionsActive.Set(float64(st.lru.Len()))
}
