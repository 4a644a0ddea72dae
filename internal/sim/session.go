package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// ErrInvalidVolumeClass is returned by Start for an unrecognized class.
// Callers must not retry with the same input.
var ErrInvalidVolumeClass = errors.New("invalid volume class")

type VolumeClass string

const (
	VolumeSmall  VolumeClass = "small"
	VolumeMedium VolumeClass = "medium"
	VolumeLarge  VolumeClass = "large"
)

func ParseVolumeClass(s string) (VolumeClass, error) {
	switch VolumeClass(s) {
	case VolumeSmall, VolumeMedium, VolumeLarge:
		return VolumeClass(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVolumeClass, s)
	}
}

type classParams struct {
	populationCap    int
	nominalRate      int     // parcels per tick at the start of the sustained phase
	footprintRadiusM float64 // overlay circle radius
	spawnRadiusM     float64 // plume seeding disk around the origin
}

var volumeParams = map[VolumeClass]classParams{
	VolumeSmall:  {populationCap: 250, nominalRate: 4, footprintRadiusM: 5000, spawnRadiusM: 150},
	VolumeMedium: {populationCap: 700, nominalRate: 8, footprintRadiusM: 10000, spawnRadiusM: 250},
	VolumeLarge:  {populationCap: 1200, nominalRate: 12, footprintRadiusM: 20000, spawnRadiusM: 400},
}

// PopulationCap exposes the per-class parcel limit.
func PopulationCap(c VolumeClass) int {
	return volumeParams[c].populationCap
}

// FootprintRadiusM exposes the per-class overlay radius.
func FootprintRadiusM(c VolumeClass) float64 {
	return volumeParams[c].footprintRadiusM
}

// Spawn schedule: a burst phase covering the first tenth of the window
// at a multiple of the nominal rate, then a sustained phase decaying
// linearly to zero. No spawns after the window regardless of headroom.
const (
	spawnWindowTicks = 120
	burstTicks       = spawnWindowTicks / 10
	burstMultiplier  = 4
	surfaceFraction  = 0.7
	drainBatchSize   = 15

	maxAgeBase   = 600
	maxAgeJitter = 400
)

// spawnBudget is the number of parcels the schedule wants at the given
// tick since session start. Deterministic so tests can sum it.
func spawnBudget(p classParams, tick int) int {
	switch {
	case tick >= spawnWindowTicks:
		return 0
	case tick < burstTicks:
		return p.nominalRate * burstMultiplier
	default:
		frac := 1 - float64(tick-burstTicks)/float64(spawnWindowTicks-burstTicks)
		return int(math.Round(float64(p.nominalRate) * frac))
	}
}

type SessionState int

const (
	StateIdle SessionState = iota
	StateActive
	StateResolving
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateResolving:
		return "resolving"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session owns the live parcel population for one release event: the
// spawn schedule, the hit bookkeeping and the footprint centroid. All
// mutation happens inside Tick (or the engine's equivalent step), on a
// single logical thread.
type Session struct {
	ID        string
	Origin    LatLon
	Class     VolumeClass
	StartTime float64 // simTime at creation

	params  classParams
	parcels []*Parcel
	spawned int
	tick    int // ticks since start
	state   SessionState

	hitSites map[string]struct{}
	hitOrder []string

	// footprintCenter holds its last value when no parcels remain so
	// the overlay does not jump to the world origin.
	footprintCenter LatLon
	track           []LatLon // sampled centroid history

	field *Field
	rng   *rand.Rand
}

// TickResult reports what one step did to the population.
type TickResult struct {
	Spawned int
	Died    int
}

// NewSession starts a release at origin. The rng must be dedicated to
// this session; the engine derives one per session from its root seed.
func NewSession(origin LatLon, class VolumeClass, field *Field, rng *rand.Rand, simTime float64) (*Session, error) {
	params, ok := volumeParams[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVolumeClass, class)
	}
	return &Session{
		ID:              uuid.NewString(),
		Origin:          origin,
		Class:           class,
		StartTime:       simTime,
		params:          params,
		state:           StateActive,
		hitSites:        make(map[string]struct{}),
		footprintCenter: origin,
		field:           field,
		rng:             rng,
	}, nil
}

func (s *Session) State() SessionState { return s.state }
func (s *Session) SpawnedCount() int   { return s.spawned }
func (s *Session) Population() int     { return len(s.parcels) }

// FootprintCenter is the mean position of live parcels, or the last
// known centroid when the population is empty.
func (s *Session) FootprintCenter() LatLon { return s.footprintCenter }

// Parcels exposes the live population. The engine snapshots it under
// its own lock; standalone callers must not retain the slice across
// ticks.
func (s *Session) Parcels() []*Parcel { return s.parcels }

// Track returns a copy of the sampled centroid history, oldest first.
func (s *Session) Track() []LatLon {
	out := make([]LatLon, len(s.track))
	copy(out, s.track)
	return out
}

// HitSiteIDs returns the sites alerted so far, in first-hit order.
func (s *Session) HitSiteIDs() []string {
	out := make([]string, len(s.hitOrder))
	copy(out, s.hitOrder)
	return out
}

func (s *Session) alreadyHit(siteID string) bool {
	_, ok := s.hitSites[siteID]
	return ok
}

func (s *Session) recordHit(siteID string) {
	s.hitSites[siteID] = struct{}{}
	s.hitOrder = append(s.hitOrder, siteID)
}

// Tick advances the session one step: spawn + update, then sweep. Late
// ticks on a terminated session are a no-op returning the zero result.
// The engine drives advance/sweep separately so detection can run on
// the pre-sweep snapshot; Tick is the standalone equivalent.
func (s *Session) Tick(simTime float64) TickResult {
	switch s.state {
	case StateResolving:
		return TickResult{Died: s.drainStep()}
	case StateActive:
		spawned := s.advance(simTime)
		died := s.sweep()
		return TickResult{Spawned: spawned, Died: died}
	default:
		return TickResult{}
	}
}

// advance runs the spawn phase and updates every live parcel in place.
// Dead parcels stay in the collection until sweep so the detector sees
// the same snapshot the update produced.
func (s *Session) advance(simTime float64) int {
	spawned := 0
	if s.state == StateActive {
		want := spawnBudget(s.params, s.tick)
		if headroom := s.params.populationCap - len(s.parcels); want > headroom {
			want = headroom
		}
		for i := 0; i < want; i++ {
			s.parcels = append(s.parcels, s.newParcel())
		}
		s.spawned += want
		spawned = want
	}

	for _, p := range s.parcels {
		p.Update(s.field, s.rng, simTime)
	}
	return spawned
}

// sweep removes dead parcels, refreshes the footprint centroid and
// samples the track, then advances the schedule clock.
func (s *Session) sweep() int {
	live := s.parcels[:0]
	for _, p := range s.parcels {
		if p.Alive() {
			live = append(live, p)
		}
	}
	died := len(s.parcels) - len(live)
	s.parcels = live

	if len(s.parcels) > 0 {
		var sumLat, sumLon float64
		for _, p := range s.parcels {
			sumLat += p.Lat
			sumLon += p.Lon
		}
		n := float64(len(s.parcels))
		s.footprintCenter = LatLon{Lat: sumLat / n, Lon: sumLon / n}
	}

	if s.tick%trackSampleEvery == 0 {
		s.track = append(s.track, s.footprintCenter)
	}

	s.tick++
	return died
}

// trackSampleEvery thins the centroid history the same way the mean
// track was subsampled upstream.
const trackSampleEvery = 3

// newParcel seeds one parcel inside the spawn disk. A fixed majority
// starts at the surface, the rest at a random depth.
func (s *Session) newParcel() *Parcel {
	angle := s.rng.Float64() * 2 * math.Pi
	radius := s.rng.Float64() * s.params.spawnRadiusM

	dLat := radius * math.Sin(angle) / metersPerDeg
	dLon := radius * math.Cos(angle) / (metersPerDeg*math.Cos(s.Origin.Lat*math.Pi/180) + 1e-9)

	depth := 0.0
	if s.rng.Float64() >= surfaceFraction {
		depth = s.rng.Float64()
	}

	return &Parcel{
		Lat:           s.Origin.Lat + dLat,
		Lon:           s.Origin.Lon + dLon,
		DepthFraction: depth,
		MaxAge:        maxAgeBase + s.rng.Intn(maxAgeJitter),
		Mass:          0.3 + 0.7*s.rng.Float64(),
		Concentration: 1.0,
	}
}

// beginResolve transitions to draining and freezes the hit list for
// the resolution summary. Further spawning and detection stop.
func (s *Session) beginResolve() {
	if s.state == StateActive {
		s.state = StateResolving
	}
}

// drainStep removes one fixed-size batch of parcels. When the
// population reaches zero the session terminates and releases its
// overlay state.
func (s *Session) drainStep() int {
	n := drainBatchSize
	if n > len(s.parcels) {
		n = len(s.parcels)
	}
	s.parcels = s.parcels[:len(s.parcels)-n]
	if len(s.parcels) == 0 {
		s.terminate()
	}
	return n
}

// terminate abruptly discards all session state. Used both at the end
// of a drain and when a new session supersedes this origin.
func (s *Session) terminate() {
	s.parcels = nil
	s.track = nil
	s.state = StateTerminated
}
