package bot

import "sync"

// chatQueue runs jobs one at a time per chat, in the order they were submitted.
// Different chats run in parallel. A chat's worker exits once its backlog is empty
// and is started again by the next submit.
type chatQueue struct {
	mu      sync.Mutex
	pending map[int64][]func()
	wg      sync.WaitGroup
}

func newChatQueue() *chatQueue {
	return &chatQueue{pending: make(map[int64][]func())}
}

func (q *chatQueue) submit(chatID int64, job func()) {
	q.mu.Lock()
	backlog, running := q.pending[chatID]
	q.pending[chatID] = append(backlog, job)
	if !running {
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if !running {
		go q.drain(chatID)
	}
}

// drain owns chatID until its backlog is empty. The map entry stays present
// while the worker runs, which is how submit knows not to start another.
func (q *chatQueue) drain(chatID int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		backlog := q.pending[chatID]
		if len(backlog) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		job := backlog[0]
		backlog[0] = nil
		q.pending[chatID] = backlog[1:]
		q.mu.Unlock()

		job()
	}
}

// wait blocks until every submitted job has run.
func (q *chatQueue) wait() {
	q.wg.Wait()
}
