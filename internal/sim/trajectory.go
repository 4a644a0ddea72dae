package sim

import (
	"math"
	"math/rand"
)

// initialScatterDeg seeds the transient cloud around the origin,
// roughly a hundred meters of spread.
const initialScatterDeg = 0.001

// Bounds is an optional lat/lon box that trajectory parcels are
// clipped to, keeping hindcasts from wandering off the modeled domain.
type Bounds struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// TrajectoryParams describes one stateless what-if run: a forward
// drift forecast from Origin, or a backward hindcast estimating where
// surface material now at Origin came from.
type TrajectoryParams struct {
	Origin       LatLon
	Hours        float64
	Parcels      int
	Windage      float64 // fraction of the 10m wind applied to every parcel
	DiffusionM2S float64 // horizontal eddy diffusivity, m^2/s
	Backward     bool
	Clamp        *Bounds // nil leaves parcels unclipped
}

// Trajectory releases a transient parcel cloud at Origin and steps it
// over the field, returning the sampled mean track, oldest first.
// Backward runs negate the step, so the track reads as a source
// estimate rather than a forecast. The run is independent of any live
// session and deterministic in the injected rng.
func Trajectory(field *Field, p TrajectoryParams, rng *rand.Rand, startSimTime float64) []LatLon {
	n := p.Parcels
	if n < 1 {
		n = 1
	}
	steps := int(p.Hours * 3600 / tickSeconds)
	dt := tickSeconds
	if p.Backward {
		dt = -tickSeconds
	}

	lat := make([]float64, n)
	lon := make([]float64, n)
	for i := 0; i < n; i++ {
		lat[i] = p.Origin.Lat + rng.NormFloat64()*initialScatterDeg
		lon[i] = p.Origin.Lon + rng.NormFloat64()*initialScatterDeg
	}

	// random-walk step length for the requested diffusivity
	sigma := math.Sqrt(math.Max(2*p.DiffusionM2S*math.Abs(dt), 1e-12))

	var track []LatLon
	simTime := startSimTime
	for k := 0; k < steps; k++ {
		for i := 0; i < n; i++ {
			cur := field.Lookup(lat[i], lon[i], 0, simTime)
			wx, wy := windAt(simTime)
			u := cur.VX + p.Windage*wx
			v := cur.VY + p.Windage*wy

			dx := u*dt + rng.NormFloat64()*sigma
			dy := v*dt + rng.NormFloat64()*sigma

			lat[i] += dy / metersPerDeg
			lon[i] += dx / (metersPerDeg*math.Cos(lat[i]*math.Pi/180) + 1e-9)

			if p.Clamp != nil {
				lat[i] = clampF(lat[i], p.Clamp.LatMin, p.Clamp.LatMax)
				lon[i] = clampF(lon[i], p.Clamp.LonMin, p.Clamp.LonMax)
			}
		}
		simTime += dt

		if (k+1)%trackSampleEvery == 0 {
			track = append(track, meanPosition(lat, lon))
		}
	}

	if len(track) == 0 {
		track = []LatLon{p.Origin}
	}
	return track
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func meanPosition(lat, lon []float64) LatLon {
	var sumLat, sumLon float64
	for i := range lat {
		sumLat += lat[i]
		sumLon += lon[i]
	}
	n := float64(len(lat))
	return LatLon{Lat: sumLat / n, Lon: sumLon / n}
}
