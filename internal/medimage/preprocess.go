// Package medimage validates and prepares decoded images before they reach
// the inference engine, and converts between wire encodings (base64 data
// URLs) and image.Image.
package medimage

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

// Bounds accepted by Validate, and the canvas the preprocessor produces.
const (
	MinDimension = 100
	MaxDimension = 4096
	TargetSize   = 512
)

var (
	ErrTooSmall = errors.New("image too small (minimum 100x100 pixels)")
	ErrTooLarge = errors.New("image too large (maximum 4096x4096 pixels)")
)

// Preprocessor prepares images for model input.
type Preprocessor struct {
	logger *logging.Logger
}

// NewPreprocessor creates a new Preprocessor.
func NewPreprocessor(logger *logging.Logger) *Preprocessor {
	return &Preprocessor{logger: logger}
}

// Validate checks an image against the dimension limits the inference engine
// expects.
func Validate(img image.Image) error {
	b := img.Bounds()
	if b.Dx() < MinDimension || b.Dy() < MinDimension {
		return ErrTooSmall
	}
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		return ErrTooLarge
	}
	return nil
}

// Process scales an image to fit the 512x512 model canvas, preserving aspect
// ratio, and centers it on a black background.
func (p *Preprocessor) Process(img image.Image) *image.RGBA {
	src := img.Bounds()
	scaled := fitRect(src.Dx(), src.Dy(), TargetSize)

	canvas := image.NewRGBA(image.Rect(0, 0, TargetSize, TargetSize))
	offsetX := (TargetSize - scaled.Dx()) / 2
	offsetY := (TargetSize - scaled.Dy()) / 2
	dst := scaled.Add(image.Pt(offsetX, offsetY))

	draw.BiLinear.Scale(canvas, dst, img, src, draw.Src, nil)

	p.logger.WithFields(logrus.Fields{
		"src_width":  src.Dx(),
		"src_height": src.Dy(),
		"dst_width":  scaled.Dx(),
		"dst_height": scaled.Dy(),
	}).Debug("Preprocessed image for model input")

	return canvas
}

// fitRect computes the largest rectangle with the source aspect ratio that
// fits inside a square of the given size. Images already smaller than the
// canvas are left at their native size.
func fitRect(w, h, size int) image.Rectangle {
	if w <= size && h <= size {
		return image.Rect(0, 0, w, h)
	}
	if w >= h {
		scaledH := h * size / w
		if scaledH < 1 {
			scaledH = 1
		}
		return image.Rect(0, 0, size, scaledH)
	}
	scaledW := w * size / h
	if scaledW < 1 {
		scaledW = 1
	}
	return image.Rect(0, 0, scaledW, size)
}

// ValidateAndProcess is the common path for uploaded images: enforce bounds,
// then normalize onto the model canvas.
func (p *Preprocessor) ValidateAndProcess(img image.Image) (*image.RGBA, error) {
	if err := Validate(img); err != nil {
		return nil, fmt.Errorf("validate image: %w", err)
	}
	return p.Process(img), nil
}

// SideBySide joins two processed canvases into one image, left and right.
// The comparison endpoint sends the result as a single model input.
func SideBySide(left, right *image.RGBA) *image.RGBA {
	lb, rb := left.Bounds(), right.Bounds()
	h := lb.Dy()
	if rb.Dy() > h {
		h = rb.Dy()
	}
	out := image.NewRGBA(image.Rect(0, 0, lb.Dx()+rb.Dx(), h))
	draw.Draw(out, image.Rect(0, 0, lb.Dx(), lb.Dy()), left, lb.Min, draw.Src)
	draw.Draw(out, image.Rect(lb.Dx(), 0, lb.Dx()+rb.Dx(), rb.Dy()), right, rb.Min, draw.Src)
	return out
}
