package ports

import "github.com/ghalamif/AegisWatch/internal/domain"

type Encoder interface {
	Encode(*domain.Sample) (*domain.Payload, error)
}
