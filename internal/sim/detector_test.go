package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterSession builds an active session with n live parcels stacked
// at the given point.
func clusterSession(t *testing.T, n int, at LatLon) *Session {
	t.Helper()
	s := newTestSession(t, VolumeSmall, 1)
	for i := 0; i < n; i++ {
		p := freshParcel(0)
		p.Lat, p.Lon = at.Lat, at.Lon
		s.parcels = append(s.parcels, p)
	}
	return s
}

func TestCheckHits_ThresholdIsExclusive(t *testing.T) {
	d := Detector{RadiusM: 3000, Threshold: 12}
	site := Site{ID: "B1", Lat: 23.0, Lon: 58.0}

	// exactly Threshold parcels in range: not a hit
	s := clusterSession(t, 12, LatLon{Lat: 23.0, Lon: 58.0})
	assert.Empty(t, d.CheckHits(s, []Site{site}))
	assert.Empty(t, s.HitSiteIDs())

	// one more crosses it
	s = clusterSession(t, 13, LatLon{Lat: 23.0, Lon: 58.0})
	assert.Equal(t, []string{"B1"}, d.CheckHits(s, []Site{site}))
	assert.Equal(t, []string{"B1"}, s.HitSiteIDs())
}

func TestCheckHits_AtMostOncePerSite(t *testing.T) {
	d := DefaultDetector()
	site := Site{ID: "B1", Lat: 23.0, Lon: 58.0}
	s := clusterSession(t, 50, LatLon{Lat: 23.0, Lon: 58.0})

	require.Equal(t, []string{"B1"}, d.CheckHits(s, []Site{site}))

	// the cluster is still in range; the site must not re-fire
	assert.Empty(t, d.CheckHits(s, []Site{site}))
	assert.Equal(t, []string{"B1"}, s.HitSiteIDs())
}

func TestCheckHits_CountsDeadParcelsInSnapshot(t *testing.T) {
	d := DefaultDetector()
	site := Site{ID: "B1", Lat: 23.0, Lon: 58.0}
	s := clusterSession(t, 13, LatLon{Lat: 23.0, Lon: 58.0})

	// parcels that expired this tick have not been swept yet and still
	// contribute to the density count
	for _, p := range s.parcels {
		p.Age = p.MaxAge
	}

	assert.Equal(t, []string{"B1"}, d.CheckHits(s, []Site{site}))
}

func TestCheckHits_OutOfRangeSiteIgnored(t *testing.T) {
	d := Detector{RadiusM: 3000, Threshold: 12}
	s := clusterSession(t, 100, LatLon{Lat: 23.0, Lon: 58.0})

	far := Site{ID: "B9", Lat: 23.5, Lon: 58.0} // ~55km north
	assert.Empty(t, d.CheckHits(s, []Site{far}))
}

func TestCheckHits_MultipleSitesRegistryOrder(t *testing.T) {
	d := DefaultDetector()
	s := clusterSession(t, 40, LatLon{Lat: 23.0, Lon: 58.0})

	sites := []Site{
		{ID: "B2", Lat: 23.001, Lon: 58.0},
		{ID: "B1", Lat: 23.0, Lon: 58.001},
		{ID: "B9", Lat: 25.0, Lon: 59.0},
	}
	assert.Equal(t, []string{"B2", "B1"}, d.CheckHits(s, sites))
	assert.Equal(t, []string{"B2", "B1"}, s.HitSiteIDs())
}

func TestCheckHits_InactiveSessionSkipped(t *testing.T) {
	d := DefaultDetector()
	site := Site{ID: "B1", Lat: 23.0, Lon: 58.0}
	s := clusterSession(t, 50, LatLon{Lat: 23.0, Lon: 58.0})
	s.beginResolve()

	assert.Empty(t, d.CheckHits(s, []Site{site}))
	assert.Empty(t, d.CheckHits(nil, []Site{site}))
}

func TestHaversine(t *testing.T) {
	// one degree of latitude is ~111km everywhere
	assert.InDelta(t, 111_195, haversineMeters(23.0, 58.0, 24.0, 58.0), 100)
	assert.Zero(t, haversineMeters(23.0, 58.0, 23.0, 58.0))
}
