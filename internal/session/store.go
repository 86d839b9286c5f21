package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/logging"
	"github.com/jonathan/persona-shift/internal/metrics"
)

// Store keeps sessions in memory and evicts those idle for longer than the TTL
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store. A positive ttl starts a background cleanup loop
// that runs until Stop is called.
func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logging.OrNop(logger),
		stopCh:   make(chan struct{}),
	}
	if ttl > 0 {
		go s.cleanupLoop(cleanupInterval(ttl))
	}
	return s
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Create registers a new session holding image
func (s *Store) Create(image generation.Image) *Session {
	sess := newSession(uuid.NewString(), image)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	return sess
}

// Get returns the session with id or ErrNotFound
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete cancels the session's run and removes it
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	sess.stop()
	metrics.ActiveSessions.Set(float64(n))
	s.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop ends the cleanup loop and cancels every in-flight run
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, sess := range s.sessions {
			sess.stop()
		}
	})
}

// evictIdle removes sessions idle for longer than the TTL. Sessions with a
// run in flight are never evicted.
func (s *Store) evictIdle(now time.Time) int {
	s.mu.Lock()
	var evicted []string
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.ttl {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if len(evicted) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		s.logger.Info("evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}
