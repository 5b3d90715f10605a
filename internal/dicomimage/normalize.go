package dicomimage

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// normEpsilon pads the normalization denominator so a vanishingly small but
// nonzero window never divides by zero.
const normEpsilon = 1e-5

// normalizeGray maps a single-channel frame to 8-bit display values. Order
// matters: the rescale transform runs first so windowing operates in modality
// units (Hounsfield for CT), and the MONOCHROME1 inversion runs last, after
// quantization.
func normalizeGray(f *SelectedFrame, s *Study) []uint8 {
	vals := make([]float64, len(f.Data))
	for i, v := range f.Data {
		vals[i] = v*s.RescaleSlope + s.RescaleIntercept
	}

	lower, upper := displayWindow(vals, s)
	denom := upper - lower + normEpsilon
	invert := s.PhotometricInterpretation == Monochrome1

	out := make([]uint8, len(vals))
	for i, v := range vals {
		if v < lower {
			v = lower
		} else if v > upper {
			v = upper
		}
		n := (v - lower) / denom * 255
		px := clampByte(n)
		if invert {
			px = 255 - px
		}
		out[i] = px
	}
	return out
}

// displayWindow picks the intensity range mapped onto [0, 255]. An explicit
// window with positive width wins; otherwise the 1st/99th percentiles of the
// rescaled values are used, degrading to min/max and finally to [0, 1] so the
// range is never empty.
func displayWindow(vals []float64, s *Study) (lower, upper float64) {
	if s.HasWindow && s.WindowWidth > 0 {
		half := s.WindowWidth / 2
		return s.WindowCenter - half, s.WindowCenter + half
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	lower = stat.Quantile(0.01, stat.Empirical, sorted, nil)
	upper = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	if lower == upper {
		lower, upper = sorted[0], sorted[len(sorted)-1]
	}
	if lower == upper {
		lower, upper = 0.0, 1.0
	}
	return lower, upper
}

// scaleColor maps an RGB or RGBA frame to 8-bit values using a global min-max
// stretch over the first three channels. Windowing and rescale parameters do
// not apply to color data.
func scaleColor(f *SelectedFrame) []uint8 {
	pixels := len(f.Data) / f.Samples

	mn := math.Inf(1)
	mx := math.Inf(-1)
	for p := 0; p < pixels; p++ {
		for c := 0; c < 3; c++ {
			v := f.Data[p*f.Samples+c]
			if v < mn {
				mn = v
			}
			if v > mx {
				mx = v
			}
		}
	}
	// Flat image: widen the range by one to keep the divisor nonzero.
	if mx == mn {
		mx = mn + 1
	}

	out := make([]uint8, pixels*3)
	scale := 255 / (mx - mn)
	for p := 0; p < pixels; p++ {
		for c := 0; c < 3; c++ {
			v := f.Data[p*f.Samples+c]
			out[p*3+c] = clampByte((v - mn) * scale)
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
