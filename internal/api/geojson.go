package api

import (
	"github.com/seaguard/go-spill-tracker/internal/sim"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// parcelsToGeoJSON renders the live parcel cloud as a point collection.
// Concentration and depth ride along as properties so the overlay can
// size and shade markers.
func parcelsToGeoJSON(parcels []sim.ParcelView) FeatureCollection {
	features := make([]Feature, 0, len(parcels))

	for _, p := range parcels {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{p.Lon, p.Lat},
			},
			Properties: map[string]any{
				"concentration":  p.Concentration,
				"depth_fraction": p.DepthFraction,
				"age":            p.Age,
				"surface":        p.DepthFraction < sim.SurfaceCutoff,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
