package dicomimage

import (
	"testing"
)

func grayStudy(frames [][]float64, rows, cols int) *Study {
	return &Study{
		frames:                    frames,
		Rows:                      rows,
		Cols:                      cols,
		Samples:                   1,
		RescaleSlope:              1.0,
		RescaleIntercept:          0.0,
		PhotometricInterpretation: Monochrome2,
	}
}

func TestSelectFrameMiddle(t *testing.T) {
	tests := []struct {
		name       string
		frameCount int
		wantIndex  int
	}{
		{"single frame", 1, 0},
		{"two frames", 2, 1},
		{"depth five", 5, 2},
		{"depth ten", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := make([][]float64, tt.frameCount)
			for i := range frames {
				// Tag each frame with its index so the selection is visible.
				frames[i] = []float64{float64(i), float64(i), float64(i), float64(i)}
			}
			s := grayStudy(frames, 2, 2)

			f, err := SelectFrame(s)
			if err != nil {
				t.Fatalf("SelectFrame returned error: %v", err)
			}
			if got := int(f.Data[0]); got != tt.wantIndex {
				t.Errorf("selected frame %d, want %d", got, tt.wantIndex)
			}
		})
	}
}

func TestSelectFrameUnsupportedShape(t *testing.T) {
	s := grayStudy([][]float64{{1, 2, 3, 4}}, 2, 1)
	s.Samples = 2

	if _, err := SelectFrame(s); err != ErrUnsupportedShape {
		t.Errorf("SelectFrame error = %v, want ErrUnsupportedShape", err)
	}
}

func TestSelectFrameEmptyStudy(t *testing.T) {
	s := grayStudy(nil, 2, 2)

	if _, err := SelectFrame(s); err != ErrNoPixelData {
		t.Errorf("SelectFrame error = %v, want ErrNoPixelData", err)
	}
}

func TestNormalizeGrayWindowBounds(t *testing.T) {
	// Window center 100, width 50: rescaled values at or below 75 map to 0,
	// at or above 125 map to 255, monotonic in between.
	vals := []float64{0, 75, 80, 100, 120, 125, 300, 90, 110}
	s := grayStudy([][]float64{vals}, 3, 3)
	s.WindowCenter = 100
	s.WindowWidth = 50
	s.HasWindow = true

	f, err := SelectFrame(s)
	if err != nil {
		t.Fatalf("SelectFrame: %v", err)
	}
	out := normalizeGray(f, s)

	if out[0] != 0 || out[1] != 0 {
		t.Errorf("values at or below window floor mapped to %d, %d; want 0, 0", out[0], out[1])
	}
	if out[5] != 255 || out[6] != 255 {
		t.Errorf("values at or above window ceiling mapped to %d, %d; want 255, 255", out[5], out[6])
	}
	// 80 < 90 < 100 < 110 < 120 inside the window must stay ordered.
	ordered := []uint8{out[2], out[7], out[3], out[8], out[4]}
	for i := 1; i < len(ordered); i++ {
		if ordered[i] <= ordered[i-1] {
			t.Errorf("window mapping not strictly monotonic: %v", ordered)
			break
		}
	}
}

func TestNormalizeGrayRescaleAppliedBeforeWindow(t *testing.T) {
	// Stored value 1024 with slope 1 intercept -1024 lands at 0 HU, the
	// center of the window, so it must map near the middle of the range.
	vals := []float64{1024, 1024, 1024, 824, 1224, 1024, 1024, 1024, 1024}
	s := grayStudy([][]float64{vals}, 3, 3)
	s.RescaleIntercept = -1024
	s.WindowCenter = 0
	s.WindowWidth = 400
	s.HasWindow = true

	f, _ := SelectFrame(s)
	out := normalizeGray(f, s)

	if out[0] < 126 || out[0] > 129 {
		t.Errorf("window center mapped to %d, want mid-range", out[0])
	}
	if out[3] != 0 {
		t.Errorf("window floor mapped to %d, want 0", out[3])
	}
	if out[4] != 255 {
		t.Errorf("window ceiling mapped to %d, want 255", out[4])
	}
}

func TestNormalizeGrayMonochrome1Inversion(t *testing.T) {
	vals := []float64{0, 50, 100, 150, 200, 255, 10, 20, 30}

	s2 := grayStudy([][]float64{vals}, 3, 3)
	s2.WindowCenter = 128
	s2.WindowWidth = 256
	s2.HasWindow = true

	s1 := grayStudy([][]float64{append([]float64(nil), vals...)}, 3, 3)
	s1.WindowCenter = 128
	s1.WindowWidth = 256
	s1.HasWindow = true
	s1.PhotometricInterpretation = Monochrome1

	f2, _ := SelectFrame(s2)
	f1, _ := SelectFrame(s1)
	out2 := normalizeGray(f2, s2)
	out1 := normalizeGray(f1, s1)

	for i := range out2 {
		if out1[i] != 255-out2[i] {
			t.Errorf("pixel %d: MONOCHROME1 value %d, want %d", i, out1[i], 255-out2[i])
		}
	}
}

func TestNormalizeGrayFlatFrame(t *testing.T) {
	// A constant frame exhausts the percentile and min/max fallbacks; the
	// forced [0, 1] window must still produce a uniform image.
	vals := []float64{42, 42, 42, 42}
	s := grayStudy([][]float64{vals}, 2, 2)

	f, _ := SelectFrame(s)
	out := normalizeGray(f, s)

	for i := 1; i < len(out); i++ {
		if out[i] != out[0] {
			t.Fatalf("flat frame produced non-uniform output: %v", out)
		}
	}
}

func TestNormalizeGrayPercentileFallback(t *testing.T) {
	// No window attributes: the 1st/99th percentile range drives the
	// mapping, so the extremes of a wide ramp saturate.
	vals := make([]float64, 1000)
	for i := range vals {
		vals[i] = float64(i)
	}
	s := grayStudy([][]float64{vals}, 25, 40)

	f, _ := SelectFrame(s)
	out := normalizeGray(f, s)

	if out[0] != 0 {
		t.Errorf("lowest value mapped to %d, want 0", out[0])
	}
	if out[len(out)-1] != 255 {
		t.Errorf("highest value mapped to %d, want 255", out[len(out)-1])
	}
	if out[499] == 0 || out[499] == 255 {
		t.Errorf("median value saturated at %d", out[499])
	}
}

func TestScaleColorMinMax(t *testing.T) {
	// 2x2 RGB frame with values spanning [10, 200]: the minimum maps to 0
	// and the maximum to 255 regardless of any window attributes.
	data := []float64{
		10, 20, 30,
		200, 100, 50,
		60, 70, 80,
		90, 110, 130,
	}
	s := grayStudy([][]float64{data}, 2, 2)
	s.Samples = 3
	s.WindowCenter = 1000
	s.WindowWidth = 2000
	s.HasWindow = true

	f, err := SelectFrame(s)
	if err != nil {
		t.Fatalf("SelectFrame: %v", err)
	}
	out := scaleColor(f)

	if out[0] != 0 {
		t.Errorf("minimum value mapped to %d, want 0", out[0])
	}
	if out[3] != 255 {
		t.Errorf("maximum value mapped to %d, want 255", out[3])
	}
}

func TestScaleColorDropsAlpha(t *testing.T) {
	// RGBA input: the alpha channel must not influence the min/max range.
	data := []float64{
		0, 0, 0, 10000,
		100, 100, 100, 10000,
	}
	s := grayStudy([][]float64{data}, 1, 2)
	s.Samples = 4

	f, _ := SelectFrame(s)
	out := scaleColor(f)

	if len(out) != 6 {
		t.Fatalf("output has %d values, want 6", len(out))
	}
	if out[0] != 0 || out[3] != 255 {
		t.Errorf("alpha leaked into scaling: got %v", out)
	}
}

func TestScaleColorFlatImage(t *testing.T) {
	data := []float64{7, 7, 7, 7, 7, 7}
	s := grayStudy([][]float64{data}, 1, 2)
	s.Samples = 3

	f, _ := SelectFrame(s)
	out := scaleColor(f)

	for i := 1; i < len(out); i++ {
		if out[i] != out[0] {
			t.Fatalf("flat color frame produced non-uniform output: %v", out)
		}
	}
}

func TestPackageGrayBroadcast(t *testing.T) {
	img := packageGray([]uint8{0, 64, 128, 255}, 2, 2)

	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("image bounds = %v, want 2x2", img.Bounds())
	}
	for i, want := range []uint8{0, 64, 128, 255} {
		base := i * 4
		r, g, b := img.Pix[base], img.Pix[base+1], img.Pix[base+2]
		if r != want || g != want || b != want {
			t.Errorf("pixel %d: (%d, %d, %d), want broadcast %d", i, r, g, b, want)
		}
		if img.Pix[base+3] != 0xff {
			t.Errorf("pixel %d: alpha %d, want 255", i, img.Pix[base+3])
		}
	}
}
