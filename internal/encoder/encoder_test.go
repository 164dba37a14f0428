package encoder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

func gradientRGB(w, h int) []byte {
	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix = append(pix, byte(x*255/(w-1)), byte(y*255/(h-1)), 128)
		}
	}
	return pix
}

func decodeFrame(t *testing.T, p *domain.Payload) (FrameRecord, image.Image) {
	t.Helper()
	var rec FrameRecord
	if err := json.Unmarshal(p.Body, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(rec.Image)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	return rec, img
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestAlertEncode(t *testing.T) {
	loc := time.FixedZone("AWST", 8*3600)
	enc := NewAlert(AlertConfig{Topic: "alerts/critical", Source: "pi-kitchen", Location: loc})
	at := time.Date(2025, 3, 4, 1, 2, 3, 0, time.UTC)

	p, err := enc.Encode(domain.NewDigitalSample(domain.DigitalEvent{Level: true, ObservedAt: at}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if p.Topic != "alerts/critical" {
		t.Fatalf("unexpected topic %q", p.Topic)
	}
	var rec AlertRecord
	if err := json.Unmarshal(p.Body, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Type != "critical" || rec.Source != "pi-kitchen" || rec.Message != DefaultAlertMessage {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Timestamp != "2025-03-04T09:02:03" {
		t.Fatalf("timestamp not in local layout: %q", rec.Timestamp)
	}
}

func TestAlertRejectsFrame(t *testing.T) {
	enc := NewAlert(AlertConfig{})
	_, err := enc.Encode(domain.NewFrameSample(domain.Frame{}))
	if !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	const w, h = 64, 48
	pix := gradientRGB(w, h)
	at := time.Date(2025, 3, 4, 1, 2, 3, 456789000, time.UTC)
	enc := NewFrame(FrameConfig{Topic: "camera/stream", Quality: 95})

	p, err := enc.Encode(domain.NewFrameSample(domain.Frame{
		Pixels: pix, Width: w, Height: h, Format: domain.PixelRGB24, CapturedAt: at,
	}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec, img := decodeFrame(t, p)
	if rec.Timestamp != "2025-03-04T01:02:03.456789Z" {
		t.Fatalf("unexpected timestamp %q", rec.Timestamp)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("decoded size %v", b)
	}

	var total uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			i := (y*w + x) * 3
			total += uint64(absDiff(r>>8, uint32(pix[i])))
			total += uint64(absDiff(g>>8, uint32(pix[i+1])))
			total += uint64(absDiff(b>>8, uint32(pix[i+2])))
		}
	}
	if mean := float64(total) / float64(w*h*3); mean > 6 {
		t.Fatalf("mean channel error %.2f exceeds tolerance", mean)
	}
}

func TestFrameBGRSwapsChannels(t *testing.T) {
	const w, h = 16, 16
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i] = 250 // blue in BGR
	}
	img, err := ToImage(&domain.Frame{Pixels: pix, Width: w, Height: h, Format: domain.PixelBGR24})
	if err != nil {
		t.Fatalf("to image: %v", err)
	}
	r, _, b, a := img.At(3, 3).RGBA()
	if r != 0 || b>>8 != 250 || a>>8 != 255 {
		t.Fatalf("unexpected pixel r=%d b=%d a=%d", r>>8, b>>8, a>>8)
	}
}

func TestFrameOtherFormats(t *testing.T) {
	const w, h = 8, 6
	enc := NewFrame(FrameConfig{})
	cases := []domain.PixelFormat{domain.PixelRGBA32, domain.PixelGray8, domain.PixelI420}
	for _, f := range cases {
		size, _ := f.FrameSize(w, h)
		s := domain.NewFrameSample(domain.Frame{Pixels: make([]byte, size), Width: w, Height: h, Format: f})
		p, err := enc.Encode(s)
		if err != nil {
			t.Fatalf("%s: encode: %v", f, err)
		}
		_, img := decodeFrame(t, p)
		if img.Bounds().Dx() != w {
			t.Fatalf("%s: unexpected width %d", f, img.Bounds().Dx())
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	const w, h = 64, 48
	s := domain.NewFrameSample(domain.Frame{Pixels: gradientRGB(w, h), Width: w, Height: h, Format: domain.PixelRGB24})

	enc := NewFrame(FrameConfig{MaxPayloadBytes: 200})
	if _, err := enc.Encode(s); !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for body, got %v", err)
	}

	enc = NewFrame(FrameConfig{MaxFrameBytes: 1024})
	if _, err := enc.Encode(s); !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for raw frame, got %v", err)
	}
}

func TestFrameUnsupported(t *testing.T) {
	enc := NewFrame(FrameConfig{})
	cases := map[string]domain.Frame{
		"short buffer":   {Pixels: make([]byte, 10), Width: 4, Height: 4, Format: domain.PixelRGB24},
		"unknown format": {Pixels: make([]byte, 48), Width: 4, Height: 4, Format: "NV12"},
		"zero size":      {Pixels: nil, Width: 0, Height: 0, Format: domain.PixelGray8},
	}
	for name, fr := range cases {
		if _, err := enc.Encode(domain.NewFrameSample(fr)); !errors.Is(err, domain.ErrUnsupported) {
			t.Fatalf("%s: expected ErrUnsupported, got %v", name, err)
		}
	}
	if _, err := enc.Encode(domain.NewDigitalSample(domain.DigitalEvent{Level: true})); !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("digital sample: expected ErrUnsupported, got %v", err)
	}
}

func TestFromImageRoundTrip(t *testing.T) {
	const w, h = 5, 3
	pix := gradientRGB(w, h)
	img, err := ToImage(&domain.Frame{Pixels: pix, Width: w, Height: h, Format: domain.PixelRGB24})
	if err != nil {
		t.Fatalf("to image: %v", err)
	}
	fr := FromImage(img)
	if !bytes.Equal(fr.Pixels, pix) {
		t.Fatalf("pixels changed through FromImage")
	}
}
