// Package camera captures raw frames from a libcamera pipeline through
// GStreamer. Frames are pulled on demand so the agent's pacer, not the
// sensor, decides the capture cadence.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const sinkName = "frames"

type Config struct {
	Width     int
	Height    int
	FrameRate float64
	Format    domain.PixelFormat
	// Pipeline replaces the default launch line. It must end in an appsink
	// named "frames".
	Pipeline string
}

var gstFormats = map[domain.PixelFormat]string{
	domain.PixelRGB24:  "RGB",
	domain.PixelBGR24:  "BGR",
	domain.PixelRGBA32: "RGBA",
	domain.PixelGray8:  "GRAY8",
	domain.PixelI420:   "I420",
}

// Launch returns the gst-launch description for cfg.
func (c Config) Launch() string {
	if c.Pipeline != "" {
		return c.Pipeline
	}
	format := gstFormats[c.Format]
	if format == "" {
		format = "RGB"
	}
	return fmt.Sprintf(
		"libcamerasrc ! video/x-raw,width=%d,height=%d,framerate=%d/1000 ! videoconvert ! "+
			"video/x-raw,format=%s,width=%d,height=%d ! appsink name=%s max-buffers=1 drop=true sync=false",
		c.Width, c.Height, int(c.FrameRate*1000), format, c.Width, c.Height, sinkName)
}

var initOnce sync.Once

type Source struct {
	cfg Config

	mu       sync.Mutex
	pipeline *gst.Pipeline
	sink     *app.Sink
	seq      uint64
}

func NewSource(cfg Config) *Source {
	if cfg.Format == "" {
		cfg.Format = domain.PixelRGB24
	}
	return &Source{cfg: cfg}
}

func (s *Source) Name() string { return "camera" }

func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline != nil {
		return nil
	}
	if _, ok := s.cfg.Format.FrameSize(s.cfg.Width, s.cfg.Height); !ok {
		return fmt.Errorf("%w: unsupported frame %s %dx%d",
			domain.ErrHardwareFault, s.cfg.Format, s.cfg.Width, s.cfg.Height)
	}

	initOnce.Do(func() { gst.Init(nil) })

	pipeline, err := gst.NewPipelineFromString(s.cfg.Launch())
	if err != nil {
		return fmt.Errorf("%w: build pipeline: %v", domain.ErrHardwareFault, err)
	}
	elem, err := pipeline.GetElementByName(sinkName)
	if err != nil || elem == nil {
		return fmt.Errorf("%w: appsink %q not found: %v", domain.ErrHardwareFault, sinkName, err)
	}
	sink := app.SinkFromElement(elem)
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		_ = pipeline.SetState(gst.StateNull)
		return fmt.Errorf("%w: start pipeline: %v", domain.ErrHardwareFault, err)
	}

	s.pipeline = pipeline
	s.sink = sink
	return nil
}

// Poll pulls the most recent frame, waiting at most timeout.
func (s *Source) Poll(ctx context.Context, timeout time.Duration) (*domain.Sample, error) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return nil, fmt.Errorf("%w: camera not open", domain.ErrHardwareFault)
	}
	if sink.IsEOS() {
		return nil, fmt.Errorf("%w: camera pipeline reached end of stream", domain.ErrHardwareFault)
	}

	sample := sink.TryPullSample(timeout)
	if ctx.Err() != nil {
		return nil, nil
	}
	if sample == nil {
		return nil, fmt.Errorf("%w: no frame within %v", domain.ErrCaptureFailed, timeout)
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("%w: sample without buffer", domain.ErrCaptureFailed)
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return nil, fmt.Errorf("%w: empty buffer", domain.ErrCaptureFailed)
	}
	// Rows arrive padded to 4 bytes when the width is not a multiple of 4.
	// Pack copies, so the buffer can be handed back to GStreamer right away.
	pixels, ok := s.cfg.Format.Pack(data, s.cfg.Width, s.cfg.Height)
	size := len(data)
	buffer.Unmap()
	if !ok {
		return nil, fmt.Errorf("%w: %d byte buffer does not fit %s %dx%d",
			domain.ErrCaptureFailed, size, s.cfg.Format, s.cfg.Width, s.cfg.Height)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return domain.NewFrameSample(domain.Frame{
		Pixels:     pixels,
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		Format:     s.cfg.Format,
		CapturedAt: time.Now(),
		Seq:        seq,
	}), nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil
	}
	err := s.pipeline.SetState(gst.StateNull)
	s.pipeline = nil
	s.sink = nil
	if err != nil {
		return fmt.Errorf("stop camera pipeline: %w", err)
	}
	return nil
}
