package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SiteSource is the external registry collaborator. The engine
// refreshes it at session start and retries on the next tick if the
// lookup fails; it never mutates the registry.
type SiteSource interface {
	Sites(ctx context.Context) ([]Site, error)
}

// SummarySink receives resolution summaries. The write is
// fire-and-forget: a failure is logged and reported through OnPersistErr
// but never blocks or rolls back the in-memory drain.
type SummarySink interface {
	SaveSummary(ctx context.Context, s Summary) error
}

// Summary is the persisted outcome of one resolved session.
type Summary struct {
	SessionID       string
	Origin          LatLon
	Class           VolumeClass
	Status          string // always "RESOLVED"
	AffectedSiteIDs []string
}

// Engine owns every live session and drives them at a fixed cadence.
// All session state is mutated inside Step, under one mutex; callers
// interact through Start/Resolve/Snapshot, which take the same lock.
type Engine struct {
	mu sync.Mutex

	field    *Field
	detector Detector
	rootRNG  *rand.Rand

	sessions map[string]*Session // keyed by origin
	byID     map[string]*Session

	sites      SiteSource
	siteCache  []Site
	sitesFresh bool

	sink SummarySink

	clock    clockwork.Clock
	interval time.Duration
	simTime  float64

	log *slog.Logger

	// Hooks fire synchronously inside the engine lock; keep them cheap.
	// Wire metrics and the event broadcaster here.
	OnStart    func(s *Session)
	OnHit      func(s *Session, siteID string)
	OnResolved func(sum Summary)
	OnStep     func(liveParcels int)
}

// Option tweaks an Engine at construction.
type Option func(*Engine)

// WithClock swaps the tick source; tests inject a clockwork fake.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSeed makes every simulation outcome reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rootRNG = rand.New(rand.NewSource(seed)) }
}

// WithDetector overrides the default detection radius/threshold.
func WithDetector(d Detector) Option {
	return func(e *Engine) { e.detector = d }
}

func NewEngine(field *Field, sites SiteSource, sink SummarySink, interval time.Duration, opts ...Option) *Engine {
	e := &Engine{
		field:    field,
		detector: DefaultDetector(),
		rootRNG:  rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*Session),
		byID:     make(map[string]*Session),
		sites:    sites,
		sink:     sink,
		clock:    clockwork.NewRealClock(),
		interval: interval,
		log:      slog.Default().With("component", "sim"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func originKey(o LatLon) string {
	return fmt.Sprintf("%.4f,%.4f", o.Lat, o.Lon)
}

// Start begins a session at origin. An active session at the same
// origin is superseded: its parcels and overlay state are discarded
// immediately, skipping the resolving phase.
func (e *Engine) Start(ctx context.Context, origin LatLon, class string) (*Session, error) {
	vc, err := ParseVolumeClass(class)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := originKey(origin)
	if old, ok := e.sessions[key]; ok {
		e.log.Info("superseding session", "origin", key, "old_id", old.ID)
		old.terminate()
		delete(e.byID, old.ID)
	}

	sessRNG := rand.New(rand.NewSource(e.rootRNG.Int63()))
	sess, err := NewSession(origin, vc, e.field, sessRNG, e.simTime)
	if err != nil {
		return nil, err
	}
	e.sessions[key] = sess
	e.byID[sess.ID] = sess

	e.refreshSites(ctx)

	e.log.Info("session started", "id", sess.ID, "class", class, "lat", origin.Lat, "lon", origin.Lon)
	if e.OnStart != nil {
		e.OnStart(sess)
	}
	return sess, nil
}

// refreshSites pulls the registry list. On failure the cache is marked
// stale; detection is skipped until a later tick succeeds.
func (e *Engine) refreshSites(ctx context.Context) {
	sites, err := e.sites.Sites(ctx)
	if err != nil {
		e.log.Warn("site registry unavailable, detection paused", "error", err)
		e.sitesFresh = false
		return
	}
	e.siteCache = sites
	e.sitesFresh = true
}

// Resolve transitions a session to draining and emits its summary.
// Unknown or already-terminated ids are a no-op: late scheduling ticks
// after termination are expected, so the second return is false rather
// than an error.
func (e *Engine) Resolve(ctx context.Context, sessionID string) (Summary, bool) {
	e.mu.Lock()
	sess, ok := e.byID[sessionID]
	if !ok || sess.State() != StateActive {
		e.mu.Unlock()
		return Summary{}, false
	}

	sum := Summary{
		SessionID:       sess.ID,
		Origin:          sess.Origin,
		Class:           sess.Class,
		Status:          "RESOLVED",
		AffectedSiteIDs: sess.HitSiteIDs(),
	}
	sess.beginResolve()
	onResolved := e.OnResolved
	e.mu.Unlock()

	// fire-and-forget persistence; the drain does not wait on it
	go func() {
		if err := e.sink.SaveSummary(context.WithoutCancel(ctx), sum); err != nil {
			e.log.Error("failed to persist resolution summary", "session", sum.SessionID, "error", err)
		}
	}()

	if onResolved != nil {
		onResolved(sum)
	}
	e.log.Info("session resolving", "id", sum.SessionID, "affected_sites", len(sum.AffectedSiteIDs))
	return sum, true
}

// Step advances simulated time by one tick and runs every session
// through the strict order: spawn+update, detection on that snapshot,
// then sweep/overlay refresh. Draining sessions skip detection.
func (e *Engine) Step(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.simTime += tickSeconds

	if !e.sitesFresh {
		e.refreshSites(ctx)
	}

	totalLive := 0
	for key, sess := range e.sessions {
		switch sess.State() {
		case StateActive:
			sess.advance(e.simTime)
			if e.sitesFresh {
				for _, siteID := range e.detector.CheckHits(sess, e.siteCache) {
					e.log.Info("site hit", "session", sess.ID, "site", siteID)
					if e.OnHit != nil {
						e.OnHit(sess, siteID)
					}
				}
			}
			sess.sweep()
		case StateResolving:
			sess.drainStep()
		}

		if sess.State() == StateTerminated {
			delete(e.sessions, key)
			delete(e.byID, sess.ID)
			e.log.Info("session terminated", "id", sess.ID)
			continue
		}
		totalLive += sess.Population()
	}

	if e.OnStep != nil {
		e.OnStep(totalLive)
	}
}

// Run drives Step at the configured cadence until ctx is cancelled.
// Real wall-clock scheduling lives here; the core only ever sees the
// monotonically increasing simTime.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("simulation loop started", "interval", e.interval)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("simulation loop stopped")
			return
		case <-ticker.Chan():
			e.Step(ctx)
		}
	}
}

// Get returns the live session with the given id.
func (e *Engine) Get(sessionID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.byID[sessionID]
	return s, ok
}

// ParcelView is a copy of one parcel's render-relevant state.
type ParcelView struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	DepthFraction float64 `json:"depth_fraction"`
	Concentration float64 `json:"concentration"`
	Age           int     `json:"age"`
}

// SessionSnapshot is what the rendering collaborator gets once per
// request: the live parcel list plus the footprint envelope.
type SessionSnapshot struct {
	ID               string       `json:"id"`
	Origin           LatLon       `json:"origin"`
	Class            VolumeClass  `json:"volume_class"`
	State            string       `json:"state"`
	SpawnedCount     int          `json:"spawned_count"`
	Population       int          `json:"population"`
	HitSiteIDs       []string     `json:"hit_site_ids"`
	FootprintCenter  LatLon       `json:"footprint_center"`
	FootprintRadiusM float64      `json:"footprint_radius_m"`
	Parcels          []ParcelView `json:"parcels"`
	Track            []LatLon     `json:"track"`
}

// Snapshot copies the session state under the engine lock. Returns
// false for unknown ids.
func (e *Engine) Snapshot(sessionID string) (SessionSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.byID[sessionID]
	if !ok {
		return SessionSnapshot{}, false
	}

	parcels := make([]ParcelView, 0, len(sess.parcels))
	for _, p := range sess.parcels {
		parcels = append(parcels, ParcelView{
			Lat:           p.Lat,
			Lon:           p.Lon,
			DepthFraction: p.DepthFraction,
			Concentration: p.Concentration,
			Age:           p.Age,
		})
	}

	return SessionSnapshot{
		ID:               sess.ID,
		Origin:           sess.Origin,
		Class:            sess.Class,
		State:            sess.State().String(),
		SpawnedCount:     sess.SpawnedCount(),
		Population:       sess.Population(),
		HitSiteIDs:       sess.HitSiteIDs(),
		FootprintCenter:  sess.FootprintCenter(),
		FootprintRadiusM: FootprintRadiusM(sess.Class),
		Parcels:          parcels,
		Track:            sess.Track(),
	}, true
}

// SimTime exposes the current simulated time in seconds, mostly for
// the currents endpoint so arrows animate with the same clock.
func (e *Engine) SimTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.simTime
}

// Field exposes the current model for read-only sampling.
func (e *Engine) Field() *Field { return e.field }
