package encoder

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// ToImage wraps or converts a raw frame into an image.Image. The pixel
// buffer must match the frame dimensions exactly.
func ToImage(fr *domain.Frame) (image.Image, error) {
	want, ok := fr.Format.FrameSize(fr.Width, fr.Height)
	if !ok {
		return nil, fmt.Errorf("frame encoder: %w: format %q at %dx%d",
			domain.ErrUnsupported, fr.Format, fr.Width, fr.Height)
	}
	if len(fr.Pixels) != want {
		return nil, fmt.Errorf("frame encoder: %w: %s %dx%d needs %d bytes, got %d",
			domain.ErrUnsupported, fr.Format, fr.Width, fr.Height, want, len(fr.Pixels))
	}

	w, h := fr.Width, fr.Height
	rect := image.Rect(0, 0, w, h)

	switch fr.Format {
	case domain.PixelRGB24, domain.PixelBGR24:
		img := image.NewRGBA(rect)
		src, dst := fr.Pixels, img.Pix
		r, b := 0, 2
		if fr.Format == domain.PixelBGR24 {
			r, b = 2, 0
		}
		for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
			dst[j] = src[i+r]
			dst[j+1] = src[i+1]
			dst[j+2] = src[i+b]
			dst[j+3] = 0xff
		}
		return img, nil

	case domain.PixelRGBA32:
		img := image.NewRGBA(rect)
		copy(img.Pix, fr.Pixels)
		// Cameras leave the padding byte undefined.
		for j := 3; j < len(img.Pix); j += 4 {
			img.Pix[j] = 0xff
		}
		return img, nil

	case domain.PixelGray8:
		return &image.Gray{Pix: fr.Pixels, Stride: w, Rect: rect}, nil

	case domain.PixelI420:
		cw, ch := (w+1)/2, (h+1)/2
		ySize := w * h
		return &image.YCbCr{
			Y:              fr.Pixels[:ySize],
			Cb:             fr.Pixels[ySize : ySize+cw*ch],
			Cr:             fr.Pixels[ySize+cw*ch:],
			YStride:        w,
			CStride:        cw,
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           rect,
		}, nil
	}
	return nil, fmt.Errorf("frame encoder: %w: format %q", domain.ErrUnsupported, fr.Format)
}

// FromImage flattens img into a packed RGB24 frame. Used by simulated
// sources and tests.
func FromImage(img image.Image) domain.Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			pix = append(pix, c.R, c.G, c.B)
		}
	}
	return domain.Frame{Pixels: pix, Width: w, Height: h, Format: domain.PixelRGB24}
}
