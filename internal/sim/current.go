package sim

import "math"

// CurrentVector is the ambient flow at one query point: eastward and
// northward components in m/s plus the turbulence intensity of the
// region that produced it.
type CurrentVector struct {
	VX         float64
	VY         float64
	Turbulence float64
}

// regionPattern is one named rectangular current regime. Patterns are
// evaluated in declaration order and the first box containing the query
// point wins; overlaps are resolved by priority, never averaged.
//
// A pattern with lonMin > lonMax spans the antimeridian: containment is
// lon >= lonMin || lon <= lonMax. The North Pacific gyre below relies
// on this.
type regionPattern struct {
	name             string
	latMin, latMax   float64
	lonMin, lonMax   float64
	baseVX, baseVY   float64 // m/s before strength scaling
	strength         float64
	turbulence       float64
	oscAmp           float64 // fractional modulation of the base flow
	oscPeriodSeconds float64 // 0 disables the periodic term
}

func (r regionPattern) contains(lat, lon float64) bool {
	if lat < r.latMin || lat > r.latMax {
		return false
	}
	if r.lonMin > r.lonMax {
		// wraparound span
		return lon >= r.lonMin || lon <= r.lonMax
	}
	return lon >= r.lonMin && lon <= r.lonMax
}

const (
	// e-folding constant for the depth attenuation exp(-k*depth).
	depthDecayK = 2.5

	backgroundAmp   = 0.03
	backgroundTurb  = 0.08
	eddyAmp         = 0.015
	daySeconds      = 86400.0
	halfDaySeconds  = 43200.0
	eddyPeriodShort = 1800.0
	eddyPeriodLong  = 2100.0
)

// Field evaluates the regional current model. It carries no mutable
// state; Lookup is pure and deterministic in its four inputs.
type Field struct {
	patterns []regionPattern
}

func NewField() *Field {
	return &Field{patterns: defaultPatterns}
}

// defaultPatterns approximates a handful of named regimes around the
// default Gulf of Oman domain plus two far-field gyres. Velocities are
// plausible surface magnitudes, not oceanographic truth.
var defaultPatterns = []regionPattern{
	{
		name:   "gulf-of-oman-coastal",
		latMin: 22.5, latMax: 26.0, lonMin: 56.5, lonMax: 60.5,
		baseVX: 0.22, baseVY: -0.08,
		strength: 1.0, turbulence: 0.12,
		oscAmp: 0.35, oscPeriodSeconds: halfDaySeconds, // semi-diurnal tide
	},
	{
		name:   "arabian-sea-gyre",
		latMin: 8.0, latMax: 25.0, lonMin: 55.0, lonMax: 75.0,
		baseVX: 0.15, baseVY: 0.12,
		strength: 0.9, turbulence: 0.10,
		oscAmp: 0.20, oscPeriodSeconds: daySeconds,
	},
	{
		name:   "somali-current",
		latMin: -5.0, latMax: 12.0, lonMin: 42.0, lonMax: 55.0,
		baseVX: 0.05, baseVY: 0.60,
		strength: 1.2, turbulence: 0.18,
	},
	{
		name:   "equatorial-countercurrent",
		latMin: -3.0, latMax: 8.0, lonMin: 50.0, lonMax: 95.0,
		baseVX: 0.40, baseVY: 0.0,
		strength: 0.8, turbulence: 0.09,
		oscAmp: 0.15, oscPeriodSeconds: daySeconds,
	},
	{
		// Longitude range wraps the antimeridian (140E..130W). The
		// source pattern table carried the same wrap; containment is
		// wrap-aware rather than "corrected".
		name:   "north-pacific-gyre",
		latMin: 20.0, latMax: 45.0, lonMin: 140.0, lonMax: -130.0,
		baseVX: 0.25, baseVY: -0.05,
		strength: 1.0, turbulence: 0.14,
		oscAmp: 0.25, oscPeriodSeconds: daySeconds,
	},
}

// Lookup returns the ambient current at the given position, depth
// fraction (0 = surface, 1 = fully submerged) and simulated time in
// seconds. The first matching pattern wins; outside every pattern a
// small non-zero background flow keeps open water drifting.
func (f *Field) Lookup(lat, lon, depthFraction, simTime float64) CurrentVector {
	var vx, vy, turb float64
	matched := false

	for _, p := range f.patterns {
		if !p.contains(lat, lon) {
			continue
		}
		vx = p.baseVX * p.strength
		vy = p.baseVY * p.strength
		if p.oscPeriodSeconds > 0 {
			// smooth tidal/seasonal modulation, phase-shifted by
			// position so neighbouring points do not pulse in lockstep
			phase := 2*math.Pi*simTime/p.oscPeriodSeconds + lat*0.31 + lon*0.17
			mod := 1 + p.oscAmp*math.Sin(phase)
			vx *= mod
			vy *= 1 + p.oscAmp*math.Cos(phase)
		}
		turb = p.turbulence
		matched = true
		break
	}

	if !matched {
		vx, vy = backgroundFlow(lat, lon, simTime)
		turb = backgroundTurb
	}

	// high-frequency eddy term, independent of region membership
	vx += eddyAmp * math.Sin(lat*7.3+2*math.Pi*simTime/eddyPeriodShort)
	vy += eddyAmp * math.Cos(lon*6.1+2*math.Pi*simTime/eddyPeriodLong)

	atten := math.Exp(-depthDecayK * depthFraction)
	return CurrentVector{VX: vx * atten, VY: vy * atten, Turbulence: turb}
}

// backgroundFlow is the low-amplitude pseudo-periodic drift applied to
// untracked open ocean. The constant offsets keep it from ever being
// the zero vector.
func backgroundFlow(lat, lon, simTime float64) (vx, vy float64) {
	vx = 0.02 + backgroundAmp*math.Sin(lon*0.45+2*math.Pi*simTime/daySeconds)*math.Cos(lat*0.30)
	vy = 0.015 + backgroundAmp*math.Cos(lon*0.38-2*math.Pi*simTime/daySeconds)*math.Sin(lat*0.41+0.7)
	return vx, vy
}
