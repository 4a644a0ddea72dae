package main

import (
	"context"

	"github.com/seaguard/go-spill-tracker/internal/repository"
	"github.com/seaguard/go-spill-tracker/internal/sim"
)

// registrySource adapts the site repository to the engine's read-only
// registry view. Detector hits are keyed by the site's primary id, so
// affected_site_ids and event site_id join directly against /api/sites
// without going through device_id.
type registrySource struct {
	repo repository.SiteRepository
}

func (r registrySource) Sites(ctx context.Context) ([]sim.Site, error) {
	sites, err := r.repo.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sim.Site, 0, len(sites))
	for _, s := range sites {
		if !s.IsActive {
			continue
		}
		out = append(out, sim.Site{ID: s.ID, Lat: s.Latitude, Lon: s.Longitude})
	}
	return out, nil
}

// incidentSink persists resolution summaries onto the incident row the
// API created at session start (incident id == session id).
type incidentSink struct {
	repo repository.IncidentRepository
}

func (s incidentSink) SaveSummary(ctx context.Context, sum sim.Summary) error {
	return s.repo.MarkResolved(ctx, sum.SessionID, sum.AffectedSiteIDs)
}
