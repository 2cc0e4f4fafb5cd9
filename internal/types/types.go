package types

// Frame is a single captured video frame. Pixels are 8-bit BGR, row-major,
// len(Pix) == Width*Height*3. Frames are treated as immutable once published;
// components that retain a frame across calls keep their own copy.
type Frame struct {
	Seq       int64   `json:"seq"`
	Timestamp float64 `json:"timestamp"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Pix       []byte  `json:"-"`
}

// Valid reports whether the frame carries a usable BGR pixel buffer.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height*3
}

// Clone returns a frame with its own copy of the pixel buffer.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	out := f
	out.Pix = pix
	return out
}
