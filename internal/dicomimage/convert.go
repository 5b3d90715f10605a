package dicomimage

import (
	"image"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

// Converter runs the full DICOM-to-RGB pipeline. It holds no per-request
// state and is safe for concurrent use.
type Converter struct {
	logger *logging.Logger
}

// NewConverter creates a new Converter.
func NewConverter(logger *logging.Logger) *Converter {
	return &Converter{logger: logger}
}

// Convert decodes a DICOM stream of n bytes and renders it as an 8-bit RGB
// image. On failure the image is nil and the error text is suitable for a
// client-facing response; a malformed stream never panics past this boundary.
func (c *Converter) Convert(r io.Reader, n int64) (*image.RGBA, error) {
	study, err := Decode(r, n)
	if err != nil {
		c.logger.WithField("error", err).Debug("DICOM decode failed")
		return nil, err
	}

	frame, err := SelectFrame(study)
	if err != nil {
		c.logger.WithField("error", err).Debug("DICOM frame selection failed")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"rows":         frame.Rows,
		"cols":         frame.Cols,
		"samples":      frame.Samples,
		"frames":       study.FrameCount(),
		"photometric":  study.PhotometricInterpretation,
		"has_window":   study.HasWindow,
		"window_width": study.WindowWidth,
	}).Debug("Converting DICOM frame")

	if frame.IsColor() {
		return packageRGB(scaleColor(frame), frame.Rows, frame.Cols), nil
	}
	return packageGray(normalizeGray(frame, study), frame.Rows, frame.Cols), nil
}

// packageGray broadcasts an 8-bit grayscale plane into the three channels of
// an RGBA image.
func packageGray(pixels []uint8, rows, cols int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i, v := range pixels {
		base := i * 4
		img.Pix[base] = v
		img.Pix[base+1] = v
		img.Pix[base+2] = v
		img.Pix[base+3] = 0xff
	}
	return img
}

// packageRGB wraps an interleaved 8-bit RGB buffer into an RGBA image.
func packageRGB(pixels []uint8, rows, cols int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	n := len(pixels) / 3
	for i := 0; i < n; i++ {
		base := i * 4
		img.Pix[base] = pixels[i*3]
		img.Pix[base+1] = pixels[i*3+1]
		img.Pix[base+2] = pixels[i*3+2]
		img.Pix[base+3] = 0xff
	}
	return img
}
