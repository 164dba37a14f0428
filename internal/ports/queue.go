package ports

import "github.com/ghalamif/AegisWatch/internal/domain"

// PayloadQueue buffers payloads that could not be delivered yet.
type PayloadQueue interface {
	Enqueue(p *domain.Payload) bool
	DropOldest() *domain.Payload
	Peek() *domain.Payload
	Dequeue() *domain.Payload
	Len() int
}
