package domain

import "time"

// Payload is an encoded message ready for the transport.
type Payload struct {
	Topic     string
	Body      []byte
	QoS       byte
	Retained  bool
	CreatedAt time.Time
}

func (p *Payload) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Body)
}
