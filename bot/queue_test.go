package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"nasi-kandar-bot/order"
	"nasi-kandar-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

func TestChatQueueKeepsSubmissionOrderPerChat(t *testing.T) {
	q := newChatQueue()
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 200; i++ {
		chatID := int64(i % 4)
		i := i
		q.submit(chatID, func() {
			mu.Lock()
			got[chatID] = append(got[chatID], i)
			mu.Unlock()
		})
	}
	q.wait()

	for chatID := int64(0); chatID < 4; chatID++ {
		seq := got[chatID]
		require.Len(t, seq, 50, "chat %d", chatID)
		for j := 1; j < len(seq); j++ {
			assert.Less(t, seq[j-1], seq[j], "chat %d ran out of order: %v", chatID, seq)
		}
	}
	assert.Empty(t, q.pending, "idle chats should release their worker")
}

func TestChatQueueLaterJobWaitsForEarlier(t *testing.T) {
	q := newChatQueue()
	release := make(chan struct{})
	var ran []string

	q.submit(42, func() {
		<-release
		ran = append(ran, "first")
	})
	q.submit(42, func() { ran = append(ran, "second") })
	close(release)
	q.wait()

	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestChatQueueRunsChatsInParallel(t *testing.T) {
	q := newChatQueue()
	otherRan := make(chan struct{})
	timedOut := false

	q.submit(1, func() {
		select {
		case <-otherRan:
		case <-time.After(5 * time.Second):
			timedOut = true
		}
	})
	q.submit(2, func() { close(otherRan) })
	q.wait()

	assert.False(t, timedOut, "chat 2 was blocked behind chat 1")
}

type recordingOutbox struct {
	mu     sync.Mutex
	bodies []string
}

func (o *recordingOutbox) Deliver(_ context.Context, a order.Action) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies = append(o.bodies, a.Body)
	return nil
}

// gatedHandler holds the first event until release is closed.
type gatedHandler struct {
	next    Handler
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	seen    []string
}

func (g *gatedHandler) Handle(ctx context.Context, ev order.Event) error {
	g.once.Do(func() { <-g.release })
	g.mu.Lock()
	g.seen = append(g.seen, ev.Body)
	g.mu.Unlock()
	return g.next.Handle(ctx, ev)
}

func TestEnqueueAppliesChatMessagesInArrivalOrder(t *testing.T) {
	b := &Bot{throttle: services.NewChatThrottle(100, 100), now: time.Now}
	out := &recordingOutbox{}
	dispatcher := order.NewDispatcher(order.NewStore(), order.NewMachine(order.Config{}), out)
	h := &gatedHandler{next: dispatcher, release: make(chan struct{})}

	q := newChatQueue()
	sem := semaphore.NewWeighted(4)
	chat := &tgbotapi.Chat{ID: 42}
	for _, text := range []string{"menu", "1", "🚚 Proceed to delivery"} {
		b.enqueue(context.Background(), q, sem, h, &tgbotapi.Message{Chat: chat, Text: text})
	}
	close(h.release)
	q.wait()

	assert.Equal(t, []string{"menu", "1", "🚚 Proceed to delivery"}, h.seen)
	require.NotEmpty(t, out.bodies)
	assert.Contains(t, out.bodies[len(out.bodies)-1], "Please type your delivery address")
}

func TestEnqueueDropsMessagesWithoutChat(t *testing.T) {
	b := &Bot{throttle: services.NewChatThrottle(100, 100), now: time.Now}
	q := newChatQueue()
	b.enqueue(context.Background(), q, semaphore.NewWeighted(1), nil, &tgbotapi.Message{Text: "menu"})
	b.enqueue(context.Background(), q, semaphore.NewWeighted(1), nil, nil)
	q.wait()
	assert.Empty(t, q.pending)
}
