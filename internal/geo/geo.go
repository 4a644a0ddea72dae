package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

const metersPerDeg = 111_000.0

// footprintSegments is the ring resolution of the overlay circle.
const footprintSegments = 32

// FootprintCircle approximates a circle of radiusM around center
// (lat/lon degrees) as a closed polygon ring. simplefeatures marshals
// the result directly as GeoJSON, which is what the map overlay
// consumes.
func FootprintCircle(lat, lon, radiusM float64) geom.Polygon {
	dLat := radiusM / metersPerDeg
	dLon := radiusM / (metersPerDeg*math.Cos(lat*math.Pi/180) + 1e-9)

	coords := make([]float64, 0, (footprintSegments+1)*2)
	for i := 0; i <= footprintSegments; i++ {
		theta := 2 * math.Pi * float64(i) / footprintSegments
		coords = append(coords, lon+dLon*math.Cos(theta), lat+dLat*math.Sin(theta))
	}

	seq := geom.NewSequence(coords, geom.DimXY)
	ring := geom.NewLineString(seq)
	return geom.NewPolygon([]geom.LineString{ring})
}

// TrackLine builds a LineString from a lat/lon path (GeoJSON wants
// lon,lat order). Returns an empty LineString for fewer than 2 points.
func TrackLine(path [][2]float64) geom.LineString {
	if len(path) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(path)*2)
	for _, p := range path {
		coords = append(coords, p[1], p[0]) // lon, lat
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	return geom.NewLineString(seq)
}
