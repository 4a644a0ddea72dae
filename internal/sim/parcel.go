package sim

import (
	"math"
	"math/rand"
)

// LatLon is a WGS-84 coordinate pair, degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Tuning constants for the per-tick parcel update. tickSeconds is the
// simulated duration of one step and is the single scale converting
// velocities (m/s) into positional degrees per tick.
const (
	tickSeconds    = 600.0
	metersPerDeg   = 111_000.0
	minAliveConc   = 0.1
	evaporation    = 0.9992
	dispersion     = 0.9996
	verticalMixP   = 0.02
	windage        = 0.02
	diffusionScale = 0.35 // multiplied by regional turbulence
	shearAmp       = 0.012
	inertiaBase    = 0.25 // blend fraction for a massless parcel
)

// SurfaceCutoff is the depth fraction below which a parcel counts as
// surface-borne and feels wind drift.
const SurfaceCutoff = 0.15

// Parcel is one lagrangian unit of contaminant. It owns its kinematic
// and weathering state and is mutated only by Update, once per tick.
type Parcel struct {
	Lat           float64
	Lon           float64
	DepthFraction float64 // 0 = surface, 1 = fully submerged
	VX            float64 // m/s, smoothed estimate; lags the ambient current
	VY            float64
	Age           int
	MaxAge        int
	Mass          float64 // (0,1]; heavier parcels respond slower
	Concentration float64 // (0,1], non-increasing
}

// Alive re-derives liveness from age and concentration. Callers must
// not cache the result across ticks.
func (p *Parcel) Alive() bool {
	return p.Age < p.MaxAge && p.Concentration >= minAliveConc
}

// Update advances the parcel by one tick: blend toward the ambient
// current with mass-derived inertia, perturb (turbulent diffusion,
// positional shear, surface wind drift), integrate, weather, and age.
func (p *Parcel) Update(field *Field, rng *rand.Rand, simTime float64) {
	cur := field.Lookup(p.Lat, p.Lon, p.DepthFraction, simTime)

	blend := inertiaBase * (1 - 0.7*p.Mass)
	p.VX += (cur.VX - p.VX) * blend
	p.VY += (cur.VY - p.VY) * blend

	sigma := diffusionScale * cur.Turbulence
	p.VX += rng.NormFloat64() * sigma
	p.VY += rng.NormFloat64() * sigma

	// deterministic shear, a smooth function of position only
	p.VX += shearAmp * math.Sin(p.Lat*2.1)
	p.VY += shearAmp * math.Cos(p.Lon*1.7)

	if p.DepthFraction < SurfaceCutoff {
		wx, wy := windAt(simTime)
		p.VX += windage * wx
		p.VY += windage * wy
	}

	p.Lat += p.VY * tickSeconds / metersPerDeg
	p.Lon += p.VX * tickSeconds / (metersPerDeg*math.Cos(p.Lat*math.Pi/180) + 1e-9)

	p.Concentration *= evaporation * dispersion

	if rng.Float64() < verticalMixP {
		p.DepthFraction = rng.Float64()
	}

	p.Age++
}

// windAt is the slow periodic 10m wind: roughly 4 m/s from the
// south-east with a diurnal swell, applied to surface parcels only.
func windAt(simTime float64) (wx, wy float64) {
	speed := 4.0 + math.Sin(2*math.Pi*simTime/daySeconds)
	dir := 60.0 * math.Pi / 180
	return speed * math.Cos(dir), speed * math.Sin(dir)
}
