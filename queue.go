package mqttq

import (
	"context"
	"sync"
)

// inboundQueue is an unbounded FIFO of received messages. push never
// blocks, so the receiver is never held up by slow consumers.
type inboundQueue struct {
	mu    sync.Mutex
	items []Message

	// ready holds at most one wake-up; a consumer that takes an item and
	// sees more left passes the wake-up on.
	ready chan struct{}
}

func newInboundQueue() *inboundQueue {
	return &inboundQueue{ready: make(chan struct{}, 1)}
}

func (q *inboundQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *inboundQueue) push(msg Message) int {
	q.mu.Lock()
	q.items = append(q.items, msg)
	n := len(q.items)
	q.mu.Unlock()

	q.signal()
	return n
}

// tryPop removes the oldest message without blocking.
func (q *inboundQueue) tryPop() (Message, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return Message{}, false
	}

	msg := q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	left := len(q.items)
	if left == 0 {
		q.items = nil
	}
	q.mu.Unlock()

	if left > 0 {
		q.signal()
	}
	return msg, true
}

// pop blocks until a message is available or ctx is done.
func (q *inboundQueue) pop(ctx context.Context) (Message, error) {
	for {
		if msg, ok := q.tryPop(); ok {
			return msg, nil
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

func (q *inboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
