package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hallchat/internal/pkg/logx"
)

const (
	// DefaultCacheCapacity is the number of recent messages kept in memory.
	DefaultCacheCapacity = 1000

	// DefaultWriteTimeout bounds a single durable append.
	DefaultWriteTimeout = 3 * time.Second
)

// Repository is the durable side of the message log.
type Repository interface {
	// Append persists msg and sets msg.ID. It must return only once the write is durable.
	Append(ctx context.Context, msg *Message) error

	// Recent returns up to limit of the newest messages, oldest first.
	Recent(ctx context.Context, limit int) ([]Message, error)
}

// StoreError reports a failed or timed-out repository operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("message store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreOptions configures a Store. Zero values select the defaults.
type StoreOptions struct {
	Capacity     int
	WriteTimeout time.Duration
}

// Store is the message log: a Repository plus a bounded in-memory window of recent history.
//
// Appends are serialized by appendMu, which is held across the repository write, so cache
// order equals durable order. The cache itself is guarded by mu, which is only held for
// slice operations; readers never wait on repository I/O.
type Store struct {
	repo         Repository
	capacity     int
	writeTimeout time.Duration

	appendMu sync.Mutex

	mu sync.RWMutex
	// cache holds at most 2*capacity entries; the last capacity of them are live.
	cache []Message

	logger zerolog.Logger
}

// NewStore wraps repo.
func NewStore(repo Repository, opts StoreOptions) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCacheCapacity
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	return &Store{
		repo:         repo,
		capacity:     opts.Capacity,
		writeTimeout: opts.WriteTimeout,
		cache:        make([]Message, 0, opts.Capacity),
		logger:       logx.Component("MessageStore"),
	}
}

// Capacity returns the size of the in-memory window.
func (s *Store) Capacity() int {
	return s.capacity
}

// Append durably records msg and then adds it to the cache. On failure the cache is left
// untouched and a *StoreError is returned. On success msg.ID holds the storage id.
func (s *Store) Append(ctx context.Context, msg *Message) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	record := *msg
	if err := s.repo.Append(writeCtx, &record); err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	msg.ID = record.ID

	s.mu.Lock()
	s.cache = append(s.cache, record)
	if len(s.cache) >= 2*s.capacity {
		s.cache = append(make([]Message, 0, s.capacity), s.cache[len(s.cache)-s.capacity:]...)
	}
	s.mu.Unlock()

	return nil
}

// RecentHistory returns up to limit of the most recent messages, oldest first.
// The result is a copy and is never nil.
func (s *Store) RecentHistory(limit int) []Message {
	if limit <= 0 {
		return []Message{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	window := s.window()
	if limit < len(window) {
		window = window[len(window)-limit:]
	}
	return append(make([]Message, 0, len(window)), window...)
}

// Len returns the number of messages in the cache window.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.window())
}

// window must be called with mu held.
func (s *Store) window() []Message {
	if len(s.cache) > s.capacity {
		return s.cache[len(s.cache)-s.capacity:]
	}
	return s.cache
}

// LoadOnStartup replaces the cache with the newest messages from the repository and
// returns how many were loaded. A read failure is logged and leaves the cache empty.
func (s *Store) LoadOnStartup(ctx context.Context) int {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	msgs, err := s.repo.Recent(ctx, s.capacity)
	if err != nil {
		s.logger.Error().Err(&StoreError{Op: "load", Err: err}).Msg("Failed to load message history, starting with an empty cache")
		msgs = nil
	}
	if len(msgs) > s.capacity {
		msgs = msgs[len(msgs)-s.capacity:]
	}

	s.mu.Lock()
	s.cache = append(make([]Message, 0, s.capacity), msgs...)
	s.mu.Unlock()

	if err == nil {
		s.logger.Info().Int("loaded", len(msgs)).Msg("Message history loaded")
	}
	return len(msgs)
}

// MemoryRepository keeps the log in process memory. It backs development mode and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	msgs   []Message
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	r.msgs = append(r.msgs, *msg)
	return nil
}

func (r *MemoryRepository) Recent(ctx context.Context, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.msgs
	if limit >= 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...), nil
}
