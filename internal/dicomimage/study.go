// Package dicomimage converts raw DICOM byte streams into 8-bit RGB images
// suitable for model input. The pipeline is decode, frame selection, intensity
// normalization (or min-max scaling for color data) and packaging. Every stage
// produces a fresh buffer; nothing is shared between invocations.
package dicomimage

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/exp/constraints"
)

// Photometric interpretation values that affect rendering.
const (
	Monochrome1 = "MONOCHROME1"
	Monochrome2 = "MONOCHROME2"
)

// Study is a decoded DICOM dataset: the pixel buffer for every frame plus the
// metadata needed to render it. It is constructed once per request by Decode
// and never mutated afterwards.
type Study struct {
	// frames holds one flattened row-major plane per frame, each of length
	// Rows*Cols*Samples. Values are the stored pixel values widened to
	// float64; the rescale transform is applied later by the normalizer.
	frames [][]float64

	Rows    int
	Cols    int
	Samples int

	RescaleSlope     float64
	RescaleIntercept float64

	WindowCenter float64
	WindowWidth  float64
	HasWindow    bool

	PhotometricInterpretation string
}

// FrameCount returns the number of frames in the study.
func (s *Study) FrameCount() int {
	return len(s.frames)
}

// Decode parses a DICOM stream of n bytes into a Study. Parsing is
// best-effort: missing metadata elements fall back to their defaults
// (slope 1, intercept 0, MONOCHROME2, one sample per pixel). A stream that
// cannot be parsed at all, or that carries no native pixel data, is the only
// failure mode.
func Decode(r io.Reader, n int64) (*Study, error) {
	ds, err := dicom.Parse(r, n, nil)
	if err != nil {
		return nil, fmt.Errorf("parse dicom: %w", err)
	}
	return decodeDataset(ds)
}

func decodeDataset(ds dicom.Dataset) (*Study, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil || el == nil {
		return nil, ErrNoPixelData
	}
	info, ok := el.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 {
		return nil, ErrNoPixelData
	}

	rows, ok := firstInt(ds, tag.Rows)
	if !ok {
		return nil, fmt.Errorf("parse dicom: missing Rows element")
	}
	cols, ok := firstInt(ds, tag.Columns)
	if !ok {
		return nil, fmt.Errorf("parse dicom: missing Columns element")
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("parse dicom: invalid dimensions %dx%d", rows, cols)
	}

	samples, ok := firstInt(ds, tag.SamplesPerPixel)
	if !ok || samples <= 0 {
		samples = 1
	}
	bits, ok := firstInt(ds, tag.BitsAllocated)
	if !ok {
		bits = 16
	}
	pixelRep, _ := firstInt(ds, tag.PixelRepresentation)
	signed := pixelRep == 1

	st := &Study{
		frames:                    make([][]float64, 0, len(info.Frames)),
		Rows:                      rows,
		Cols:                      cols,
		Samples:                   samples,
		RescaleSlope:              1.0,
		RescaleIntercept:          0.0,
		PhotometricInterpretation: Monochrome2,
	}

	if v, ok := firstFloat(ds, tag.RescaleSlope); ok {
		st.RescaleSlope = v
	}
	if v, ok := firstFloat(ds, tag.RescaleIntercept); ok {
		st.RescaleIntercept = v
	}
	// Window attributes are frequently multi-valued; only the first value
	// matters here. Both must be present to count as an explicit window.
	center, haveCenter := firstFloat(ds, tag.WindowCenter)
	width, haveWidth := firstFloat(ds, tag.WindowWidth)
	if haveCenter && haveWidth {
		st.WindowCenter = center
		st.WindowWidth = width
		st.HasWindow = true
	}
	if v, ok := firstString(ds, tag.PhotometricInterpretation); ok {
		st.PhotometricInterpretation = strings.ToUpper(strings.TrimSpace(v))
	}

	for _, fr := range info.Frames {
		pixels, err := nativePixels(fr, signed, bits)
		if err != nil {
			return nil, err
		}
		// SamplesPerPixel may be absent or wrong; the frame length is
		// authoritative when the two disagree.
		if len(pixels) != rows*cols*st.Samples {
			if len(pixels)%(rows*cols) != 0 {
				return nil, fmt.Errorf("parse dicom: frame size %d does not match %dx%d grid", len(pixels), rows, cols)
			}
			st.Samples = len(pixels) / (rows * cols)
		}
		st.frames = append(st.frames, pixels)
	}

	return st, nil
}

// nativePixels widens a native frame's stored values to float64, reapplying
// the sign bit when the dataset declares signed pixels.
func nativePixels(fr *frame.Frame, signed bool, bits int) ([]float64, error) {
	if fr.Encapsulated {
		return nil, ErrEncapsulated
	}
	switch nd := fr.NativeData.(type) {
	case *frame.NativeFrame[uint8]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[uint16]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[uint32]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[uint64]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[int8]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[int16]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[int32]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[int64]:
		return widenPixels(nd.RawData, signed, bits), nil
	case *frame.NativeFrame[int]:
		return widenPixels(nd.RawData, signed, bits), nil
	default:
		return nil, fmt.Errorf("parse dicom: unrecognized native frame type %T", fr.NativeData)
	}
}

func widenPixels[I constraints.Integer](raw []I, signed bool, bits int) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		if signed {
			// Stored values may arrive in an unsigned container; restore
			// the sign according to the declared word size.
			switch bits {
			case 8:
				out[i] = float64(int8(uint8(uint64(v))))
			case 16:
				out[i] = float64(int16(uint16(uint64(v))))
			case 32:
				out[i] = float64(int32(uint32(uint64(v))))
			default:
				out[i] = float64(v)
			}
		} else {
			out[i] = float64(v)
		}
	}
	return out
}

// firstFloat returns the first value of a numeric element. Decimal string
// attributes (DS) arrive as strings and are parsed.
func firstFloat(ds dicom.Dataset, t tag.Tag) (float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []string:
		if len(v) == 0 {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []float64:
		if len(v) == 0 {
			return 0, false
		}
		return v[0], true
	case []int:
		if len(v) == 0 {
			return 0, false
		}
		return float64(v[0]), true
	}
	return 0, false
}

func firstInt(ds dicom.Dataset, t tag.Tag) (int, bool) {
	f, ok := firstFloat(ds, t)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func firstString(ds dicom.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return "", false
	}
	v, ok := el.Value.GetValue().([]string)
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}
