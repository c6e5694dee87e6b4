package tracking

import "math"

const (
	DefaultFramePadding = 0.003
	DefaultFrameMinSpan = 0.003
)

// ViewportFrame is the map region that frames a set of coordinates.
type ViewportFrame struct {
	CenterLatitude  float64 `json:"centerLatitude"`
	CenterLongitude float64 `json:"centerLongitude"`
	SpanDegrees     float64 `json:"spanDegrees"`
}

// Framer computes viewports. The zero value uses the default padding and
// minimum span.
type Framer struct {
	Padding float64
	MinSpan float64
}

// ComputeFrame frames points with the default padding and minimum span.
func ComputeFrame(points []Coordinate) ViewportFrame {
	return Framer{}.Frame(points)
}

func (f Framer) Frame(points []Coordinate) ViewportFrame {
	pad := f.Padding
	if pad <= 0 {
		pad = DefaultFramePadding
	}
	minSpan := f.MinSpan
	if minSpan <= 0 {
		minSpan = DefaultFrameMinSpan
	}

	if len(points) == 0 {
		return ViewportFrame{SpanDegrees: minSpan}
	}

	minLat, maxLat := points[0].Latitude, points[0].Latitude
	minLon, maxLon := points[0].Longitude, points[0].Longitude
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLon = math.Min(minLon, p.Longitude)
		maxLon = math.Max(maxLon, p.Longitude)
	}

	span := math.Max((maxLat-minLat)*(1+pad), (maxLon-minLon)*(1+pad))
	return ViewportFrame{
		CenterLatitude:  (minLat + maxLat) / 2,
		CenterLongitude: (minLon + maxLon) / 2,
		SpanDegrees:     math.Max(span, minSpan),
	}
}
