package telemetry

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/seaguard/go-spill-tracker/internal/models"
	"github.com/seaguard/go-spill-tracker/internal/observability"
	"github.com/seaguard/go-spill-tracker/internal/repository"
	"github.com/seaguard/go-spill-tracker/internal/worker"
)

// Manager fabricates periodic water-quality readings for every
// registered site and persists them through a worker pool. It stands in
// for real buoy ingestion so the dashboard has data to chart.
type Manager struct {
	sites    repository.SiteRepository
	readings repository.ReadingRepository
	metrics  *observability.Metrics
	interval time.Duration
	rng      *rand.Rand

	pool *worker.Pool[*models.SensorReading]
	wg   sync.WaitGroup
	log  *slog.Logger
}

func NewManager(
	sites repository.SiteRepository,
	readings repository.ReadingRepository,
	metrics *observability.Metrics,
	interval time.Duration,
	seed int64,
) *Manager {
	return &Manager{
		sites:    sites,
		readings: readings,
		metrics:  metrics,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		log:      slog.Default().With("component", "telemetry"),
	}
}

func (m *Manager) Start(ctx context.Context, workers, bufferSize int) {
	processor := func(ctx context.Context, r *models.SensorReading) error {
		if err := m.readings.AddReading(ctx, r); err != nil {
			m.log.Error("error persisting reading", "site", r.SiteID, "error", err)
			return err
		}
		if m.metrics != nil {
			m.metrics.ReadingsIngested.WithLabelValues(string(r.Status)).Inc()
		}
		return nil
	}

	m.pool = worker.NewPool(workers, bufferSize, processor)
	m.pool.Start(ctx)

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	m.log.Info("telemetry generator started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// initial sample so fresh databases are not empty
	m.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("telemetry generator shutting down")
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *Manager) sample(ctx context.Context) {
	sites, err := m.sites.ListSites(ctx)
	if err != nil {
		m.log.Error("error listing sites", "error", err)
		return
	}

	for i := range sites {
		site := sites[i]
		if !site.IsActive {
			continue
		}
		m.pool.Submit(m.synthesize(&site))
	}
	m.log.Debug("telemetry sample complete", "sites", len(sites))
}

// synthesize fabricates one plausible reading: calm baseline values
// with noise, and an occasional contamination spike so alert paths get
// exercised.
func (m *Manager) synthesize(site *models.Site) *models.SensorReading {
	turbidity := 5.0 + m.rng.Float64()*3.0
	ph := 7.8 + m.rng.Float64()*0.5
	ec := 32.0 + m.rng.Float64()*4.0
	temp := 26.0 + m.rng.Float64()*4.0

	// rare spike into WARNING/ALERT territory
	if m.rng.Float64() < 0.08 {
		turbidity += 4.0 + m.rng.Float64()*4.0
		ec += 4.0 + m.rng.Float64()*4.0
	}

	return &models.SensorReading{
		SiteID:      site.ID,
		RecordedAt:  time.Now().UTC(),
		Turbidity:   turbidity,
		PH:          ph,
		EC:          ec,
		Temperature: temp,
		Latitude:    site.Latitude,
		Longitude:   site.Longitude,
		Status:      models.ClassifyReading(turbidity, ph, ec),
	}
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	m.log.Info("telemetry generator stopped")
}
