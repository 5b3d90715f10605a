package medimage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	// Register the decoders clients actually upload.
	_ "image/gif"
	_ "image/jpeg"
)

// ErrBadEncoding indicates the payload was not valid base64 or did not decode
// to a supported image format.
var ErrBadEncoding = errors.New("invalid image encoding")

// DecodeBase64Image decodes a base64 payload into an image. Both bare base64
// and data URLs ("data:image/png;base64,...") are accepted.
func DecodeBase64Image(payload string) (image.Image, error) {
	if idx := strings.Index(payload, ","); idx >= 0 && strings.Contains(payload[:idx], "base64") {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	return img, nil
}

// EncodePNGBase64 encodes an image as a PNG data URL.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// RawPNGBase64 encodes an image as bare base64 PNG, the form the inference
// engine's image_data payload expects.
func RawPNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
