package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const ThrottleNoticeCooldown = 30 * time.Second

type chatLimiter struct {
	limiter    *rate.Limiter
	lastSeen   time.Time
	notifiedAt time.Time
}

// ChatThrottle limits how fast a single chat can drive the order flow.
type ChatThrottle struct {
	mu       sync.Mutex
	limiters map[int64]*chatLimiter
	limit    rate.Limit
	burst    int
}

func NewChatThrottle(perSecond float64, burst int) *ChatThrottle {
	if burst < 1 {
		burst = 1
	}
	return &ChatThrottle{
		limiters: make(map[int64]*chatLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether an event from chatID may proceed at now. When it may not,
// notify is true at most once per ThrottleNoticeCooldown so the chat gets a single warning.
func (t *ChatThrottle) Allow(chatID int64, now time.Time) (allowed, notify bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[chatID]
	if !ok {
		l = &chatLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[chatID] = l
	}
	l.lastSeen = now
	if l.limiter.AllowN(now, 1) {
		return true, false
	}
	if now.Sub(l.notifiedAt) >= ThrottleNoticeCooldown {
		l.notifiedAt = now
		return false, true
	}
	return false, false
}

// Sweep forgets chats idle for longer than idle and returns how many were dropped.
func (t *ChatThrottle) Sweep(idle time.Duration, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, l := range t.limiters {
		if now.Sub(l.lastSeen) > idle {
			delete(t.limiters, id)
			n++
		}
	}
	return n
}

func (t *ChatThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
