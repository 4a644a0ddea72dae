package sim

import "math"

// Site is the detector's view of one monitored point. The registry
// itself is external; the engine refreshes this list at session start.
type Site struct {
	ID  string
	Lat float64
	Lon float64
}

// Detector raises at most one hit per site per session: a site is hit
// the first time more than Threshold live parcels sit within RadiusM
// of it.
type Detector struct {
	RadiusM   float64
	Threshold int
}

// DefaultDetector matches the visual alert distance used by the map
// overlay.
func DefaultDetector() Detector {
	return Detector{RadiusM: 3000, Threshold: 12}
}

// CheckHits evaluates every not-yet-hit site against the session's
// current parcel snapshot and returns the ids that newly crossed the
// threshold, recording them in the session's hit set. All sites see
// the same snapshot; no cross-site ordering is guaranteed beyond the
// registry's own order.
func (d Detector) CheckHits(s *Session, sites []Site) []string {
	if s == nil || s.state != StateActive {
		return nil
	}

	var newlyHit []string
	for _, site := range sites {
		if s.alreadyHit(site.ID) {
			continue
		}
		// The snapshot is the post-update, pre-sweep population, so a
		// parcel that died this tick still counts.
		count := 0
		for _, p := range s.parcels {
			if haversineMeters(site.Lat, site.Lon, p.Lat, p.Lon) <= d.RadiusM {
				count++
				if count > d.Threshold {
					break
				}
			}
		}
		if count > d.Threshold {
			s.recordHit(site.ID)
			newlyHit = append(newlyHit, site.ID)
		}
	}
	return newlyHit
}

const earthRadiusM = 6_371_000.0

// haversineMeters is the great-circle distance between two WGS-84
// points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}
