package types

// Detection is one labelled box returned by the inference sidecar.
// Coordinates are pixels in the prepared frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	TrackID    int64   `json:"track_id,omitempty"`
}
