package domain

import "strings"

// PixelFormat names the memory layout of Frame.Pixels.
type PixelFormat string

const (
	PixelRGB24  PixelFormat = "RGB24"
	PixelBGR24  PixelFormat = "BGR24"
	PixelRGBA32 PixelFormat = "RGBA32"
	PixelGray8  PixelFormat = "GRAY8"
	PixelI420   PixelFormat = "I420"
)

// ParsePixelFormat accepts the canonical names plus the aliases used by
// libcamera and GStreamer caps.
func ParsePixelFormat(s string) (PixelFormat, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RGB24", "RGB", "RGB888":
		return PixelRGB24, true
	case "BGR24", "BGR", "BGR888":
		return PixelBGR24, true
	case "RGBA32", "RGBA", "RGBX", "XBGR8888":
		return PixelRGBA32, true
	case "GRAY8", "GRAY", "Y8":
		return PixelGray8, true
	case "I420", "YUV420":
		return PixelI420, true
	default:
		return "", false
	}
}

// FrameSize returns the number of bytes a width x height frame occupies.
func (f PixelFormat) FrameSize(width, height int) (int, bool) {
	if width <= 0 || height <= 0 {
		return 0, false
	}
	px := width * height
	switch f {
	case PixelRGB24, PixelBGR24:
		return px * 3, true
	case PixelRGBA32:
		return px * 4, true
	case PixelGray8:
		return px, true
	case PixelI420:
		cw, ch := (width+1)/2, (height+1)/2
		return px + 2*cw*ch, true
	default:
		return 0, false
	}
}

func roundUp(n, align int) int { return (n + align - 1) / align * align }

// paddedLayout describes a frame whose rows start on 4-byte boundaries, the
// default raw video layout produced by GStreamer.
type paddedLayout struct {
	size    int
	strides [3]int
	offsets [3]int
}

func (f PixelFormat) padded(width, height int) (paddedLayout, bool) {
	var l paddedLayout
	switch f {
	case PixelRGB24, PixelBGR24:
		l.strides[0] = roundUp(width*3, 4)
	case PixelRGBA32:
		l.strides[0] = width * 4
	case PixelGray8:
		l.strides[0] = roundUp(width, 4)
	case PixelI420:
		h2 := roundUp(height, 2)
		l.strides[0] = roundUp(width, 4)
		l.strides[1] = roundUp(roundUp(width, 2)/2, 4)
		l.strides[2] = l.strides[1]
		l.offsets[1] = l.strides[0] * h2
		l.offsets[2] = l.offsets[1] + l.strides[1]*(h2/2)
		l.size = l.offsets[2] + l.strides[2]*(h2/2)
		return l, true
	default:
		return l, false
	}
	l.size = l.strides[0] * height
	return l, true
}

// Pack copies data into a new tightly packed buffer. data may already be
// tightly packed or use 4-byte aligned rows and planes. ok is false when
// len(data) matches neither layout.
func (f PixelFormat) Pack(data []byte, width, height int) (out []byte, ok bool) {
	tight, ok := f.FrameSize(width, height)
	if !ok {
		return nil, false
	}
	if len(data) == tight {
		out = make([]byte, tight)
		copy(out, data)
		return out, true
	}
	l, ok := f.padded(width, height)
	if !ok || len(data) != l.size {
		return nil, false
	}

	out = make([]byte, tight)
	copyPlane := func(dst []byte, src []byte, rowBytes, rows, stride int) {
		for y := 0; y < rows; y++ {
			copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*stride:y*stride+rowBytes])
		}
	}
	if f == PixelI420 {
		cw, ch := (width+1)/2, (height+1)/2
		ySize := width * height
		copyPlane(out[:ySize], data, width, height, l.strides[0])
		copyPlane(out[ySize:ySize+cw*ch], data[l.offsets[1]:], cw, ch, l.strides[1])
		copyPlane(out[ySize+cw*ch:], data[l.offsets[2]:], cw, ch, l.strides[2])
		return out, true
	}
	rowBytes := tight / height
	copyPlane(out, data, rowBytes, height, l.strides[0])
	return out, true
}
