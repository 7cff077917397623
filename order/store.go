package order

import (
	"context"
	"sync"
	"time"

	"nasi-kandar-bot/logger"
)

// Store keeps sessions in memory, one writer per chat at a time.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    sync.Map // chatID -> *sync.Mutex
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

func (s *Store) lockChat(chatID int64) func() {
	v, _ := s.locks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Update runs fn on a copy of the chat's session under the chat lock.
// The copy replaces the stored session only when fn returns nil.
func (s *Store) Update(chatID int64, fn func(*Session) error) error {
	unlock := s.lockChat(chatID)
	defer unlock()

	s.mu.RLock()
	cur, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if !ok {
		cur = newSession(chatID)
	}

	work := cur.Clone()
	if err := fn(work); err != nil {
		return err
	}
	work.UpdatedAt = s.now()

	s.mu.Lock()
	s.sessions[chatID] = work
	s.mu.Unlock()
	return nil
}

// snapshot returns a copy of the chat's session.
func (s *Store) snapshot(chatID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.sessions[chatID]
	if !ok {
		return nil, false
	}
	return cur.Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepIdle drops sessions untouched for longer than maxIdle. Abandoned orders start over.
func (s *Store) SweepIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.RLock()
	var stale []int64
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	dropped := 0
	for _, id := range stale {
		unlock := s.lockChat(id)
		s.mu.Lock()
		if sess, ok := s.sessions[id]; ok && sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			dropped++
		}
		s.mu.Unlock()
		unlock()
	}
	return dropped
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, maxIdle time.Duration, log *logger.Logger) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepIdle(maxIdle); n > 0 {
				log.Info(ctx, "idle sessions dropped", "count", n, "remaining", s.Len())
			}
		}
	}
}
