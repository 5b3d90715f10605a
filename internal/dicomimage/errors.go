package dicomimage

import "errors"

var (
	// ErrNoPixelData indicates the dataset parsed but carries no pixel data.
	ErrNoPixelData = errors.New("dicom dataset contains no pixel data")

	// ErrEncapsulated indicates the pixel data uses a compressed transfer
	// syntax that this pipeline does not decode.
	ErrEncapsulated = errors.New("encapsulated pixel data is not supported")

	// ErrUnsupportedShape indicates a pixel array whose sample count is not
	// grayscale (1) or color (3 or 4).
	ErrUnsupportedShape = errors.New("unsupported pixel array shape")

	// ErrEmptyFrame indicates a frame with no pixels.
	ErrEmptyFrame = errors.New("selected frame is empty")
)
