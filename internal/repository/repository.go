package repository

import (
	"context"
	"errors"

	"github.com/seaguard/go-spill-tracker/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type SiteRepository interface {
	AddSite(ctx context.Context, s *models.Site) error
	GetSite(ctx context.Context, id string) (*models.Site, error)
	GetSiteByDeviceID(ctx context.Context, deviceID string) (*models.Site, error)
	ListSites(ctx context.Context) ([]models.Site, error)
	// NearestSite is a rough nearest-by-degrees lookup used to associate
	// a spill with the buoy that likely first saw it.
	NearestSite(ctx context.Context, lat, lon float64) (*models.Site, error)
}

type ReadingRepository interface {
	AddReading(ctx context.Context, r *models.SensorReading) error
	ListReadingsBySite(ctx context.Context, siteID string, limit int) ([]models.SensorReading, error)
}

type IncidentRepository interface {
	AddIncident(ctx context.Context, inc *models.SpillIncident) error
	GetIncident(ctx context.Context, id string) (*models.SpillIncident, error)
	ListIncidents(ctx context.Context, limit int) ([]models.SpillIncident, error)
	ListIncidentsBySite(ctx context.Context, siteID string, limit int) ([]models.SpillIncident, error)
	// UpdateIncidentNotes replaces the operator notes; status is owned
	// by the resolve lifecycle and is not touched here.
	UpdateIncidentNotes(ctx context.Context, id, notes string) error
	// MarkResolved records the resolution summary: status flip, resolve
	// time, and the ordered list of affected site ids.
	MarkResolved(ctx context.Context, id string, affectedSiteIDs []string) error
}
