package dicomimage

// SelectedFrame is a single 2D plane extracted from a study, either grayscale
// (Samples == 1) or color (Samples == 3 or 4). Pixel values are flattened
// row-major, Samples values per pixel.
type SelectedFrame struct {
	Data    []float64
	Rows    int
	Cols    int
	Samples int
}

// SelectFrame picks the representative 2D slice of a study. Single-frame
// studies pass through unchanged; multi-frame volumes yield the middle frame
// (index frameCount/2, integer division). Sample counts other than 1, 3 or 4
// are rejected rather than left to fail downstream.
func SelectFrame(s *Study) (*SelectedFrame, error) {
	if s.FrameCount() == 0 {
		return nil, ErrNoPixelData
	}
	if s.Samples != 1 && s.Samples != 3 && s.Samples != 4 {
		return nil, ErrUnsupportedShape
	}
	data := s.frames[s.FrameCount()/2]
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	return &SelectedFrame{
		Data:    data,
		Rows:    s.Rows,
		Cols:    s.Cols,
		Samples: s.Samples,
	}, nil
}

// IsColor reports whether the frame carries RGB or RGBA samples.
func (f *SelectedFrame) IsColor() bool {
	return f.Samples == 3 || f.Samples == 4
}
