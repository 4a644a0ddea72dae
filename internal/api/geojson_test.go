package api

import (
	"testing"

	"github.com/seaguard/go-spill-tracker/internal/sim"
)

func TestParcelsToGeoJSON(t *testing.T) {
	parcels := []sim.ParcelView{
		{Lat: 23.0, Lon: 58.0, DepthFraction: 0.0, Concentration: 0.9, Age: 4},
		{Lat: 23.1, Lon: 58.1, DepthFraction: 0.6, Concentration: 0.4, Age: 40},
	}

	fc := parcelsToGeoJSON(parcels)

	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}

	first := fc.Features[0]
	// GeoJSON positions are lon,lat
	if first.Geometry.Coordinates[0] != 58.0 || first.Geometry.Coordinates[1] != 23.0 {
		t.Errorf("unexpected coordinates: %v", first.Geometry.Coordinates)
	}
	if first.Properties["surface"] != true {
		t.Error("expected surface parcel to be flagged")
	}
	if fc.Features[1].Properties["surface"] != false {
		t.Error("expected submerged parcel not to be flagged")
	}
}

func TestParcelsToGeoJSON_Empty(t *testing.T) {
	fc := parcelsToGeoJSON(nil)
	if fc.Features == nil || len(fc.Features) != 0 {
		t.Errorf("expected empty but non-nil feature list, got %v", fc.Features)
	}
}
