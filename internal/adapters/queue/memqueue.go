package queue

import (
	"sync"

	"github.com/ghalamif/AegisWatch/internal/domain"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

// MemQueue is a bounded in-memory queue that preserves FIFO ordering.
type MemQueue struct {
	mu   sync.Mutex
	data []*domain.Payload
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &MemQueue{
		data: make([]*domain.Payload, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(p *domain.Payload) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if p == nil || len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, p)
	return true
}

// DropOldest removes and returns the head of the queue, or nil when empty.
func (q *MemQueue) DropOldest() *domain.Payload {
	return q.Dequeue()
}

func (q *MemQueue) Peek() *domain.Payload {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	return q.data[0]
}

func (q *MemQueue) Dequeue() *domain.Payload {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	head := q.data[0]
	q.data[0] = nil
	q.data = q.data[1:]
	return head
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.PayloadQueue = (*MemQueue)(nil)
