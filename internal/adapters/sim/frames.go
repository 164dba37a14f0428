package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// Frames renders a diagonal gradient that shifts one step per frame.
type Frames struct {
	width, height int

	mu     sync.Mutex
	open   bool
	closed bool
	seq    uint64
}

func NewFrames(width, height int) *Frames {
	return &Frames{width: width, height: height}
}

func (f *Frames) Name() string { return "sim-camera" }

func (f *Frames) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.width <= 0 || f.height <= 0 {
		return fmt.Errorf("%w: invalid frame size %dx%d", domain.ErrHardwareFault, f.width, f.height)
	}
	if f.closed {
		return fmt.Errorf("%w: %s closed", domain.ErrHardwareFault, f.Name())
	}
	f.open = true
	return nil
}

func (f *Frames) Poll(ctx context.Context, timeout time.Duration) (*domain.Sample, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s not open", domain.ErrHardwareFault, f.Name())
	}
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	if ctx.Err() != nil {
		return nil, nil
	}

	shift := int(seq)
	pix := make([]byte, f.width*f.height*3)
	i := 0
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			pix[i] = byte((x + shift) * 255 / f.width)
			pix[i+1] = byte((y + shift) * 255 / f.height)
			pix[i+2] = byte((x + y + 2*shift) & 0xff)
			i += 3
		}
	}
	return domain.NewFrameSample(domain.Frame{
		Pixels:     pix,
		Width:      f.width,
		Height:     f.height,
		Format:     domain.PixelRGB24,
		CapturedAt: time.Now(),
		Seq:        seq,
	}), nil
}

func (f *Frames) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed = true
	return nil
}
