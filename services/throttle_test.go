package services

import (
	"testing"
	"time"
)

func TestChatThrottleBurstThenDeny(t *testing.T) {
	th := NewChatThrottle(1, 3)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if ok, _ := th.Allow(7, now); !ok {
			t.Fatalf("event %d within burst denied", i+1)
		}
	}
	ok, notify := th.Allow(7, now)
	if ok || !notify {
		t.Fatalf("first over-limit event: ok=%v notify=%v, want false/true", ok, notify)
	}
	ok, notify = th.Allow(7, now)
	if ok || notify {
		t.Fatalf("second over-limit event: ok=%v notify=%v, want false/false", ok, notify)
	}

	// Another chat is unaffected.
	if ok, _ := th.Allow(8, now); !ok {
		t.Error("independent chat throttled")
	}

	// Tokens refill at 1/s.
	if ok, _ := th.Allow(7, now.Add(1500*time.Millisecond)); !ok {
		t.Error("token should have refilled")
	}
}

func TestChatThrottleNoticeCooldown(t *testing.T) {
	th := NewChatThrottle(0.001, 1)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	th.Allow(1, now)

	tests := []struct {
		after      time.Duration
		wantNotify bool
	}{
		{0, true},
		{time.Second, false},
		{ThrottleNoticeCooldown - time.Second, false},
		{ThrottleNoticeCooldown, true},
	}
	for _, tt := range tests {
		_, notify := th.Allow(1, now.Add(tt.after))
		if notify != tt.wantNotify {
			t.Errorf("Allow at +%v notify = %v, want %v", tt.after, notify, tt.wantNotify)
		}
	}
}

func TestChatThrottleSweep(t *testing.T) {
	th := NewChatThrottle(5, 5)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	th.Allow(1, now)
	th.Allow(2, now.Add(time.Hour))

	if n := th.Sweep(30*time.Minute, now.Add(time.Hour)); n != 1 {
		t.Errorf("Sweep dropped %d, want 1", n)
	}
	if th.Len() != 1 {
		t.Errorf("Len = %d, want 1", th.Len())
	}
}
