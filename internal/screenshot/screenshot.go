// Package screenshot captures screen regions for vision-model fallback and
// prepares them for agent consumption: scaled down, encoded, optionally
// annotated with element boxes.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/go-vgo/robotgo"
	"golang.org/x/image/draw"
)

// Options control encoding of a capture.
type Options struct {
	// Format is "png" or "jpg".
	Format string
	// Quality applies to jpg, 1-100.
	Quality int
	// Scale shrinks the image, 0.1-1.0. Smaller images cost an agent fewer
	// tokens; 0.5 keeps UI text legible in practice.
	Scale float64
}

// DefaultOptions is what the CLI uses unless flags say otherwise.
func DefaultOptions() Options {
	return Options{Format: "png", Quality: 80, Scale: 0.5}
}

// CaptureRect grabs a screen region as an image.
func CaptureRect(x, y, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capture region %dx%d has no area", w, h)
	}
	img, err := robotgo.CaptureImg(x, y, w, h)
	if err != nil {
		return nil, fmt.Errorf("screen capture: %w", err)
	}
	return img, nil
}

// CaptureScreen grabs the whole primary display.
func CaptureScreen() (image.Image, error) {
	w, h := robotgo.GetScreenSize()
	return CaptureRect(0, 0, w, h)
}

// Encode scales and serializes an image per opts.
func Encode(img image.Image, opts Options) ([]byte, error) {
	img = Resize(img, opts.Scale)
	var buf bytes.Buffer
	switch opts.Format {
	case "", "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png encode: %w", err)
		}
	case "jpg", "jpeg":
		q := opts.Quality
		if q < 1 || q > 100 {
			q = 80
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("jpeg encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", opts.Format)
	}
	return buf.Bytes(), nil
}

// Resize scales the image by factor using bilinear interpolation. Factors
// outside (0, 1) return the image untouched.
func Resize(img image.Image, factor float64) image.Image {
	if factor <= 0 || factor >= 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 || h < 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
