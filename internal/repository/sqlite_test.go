package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/seaguard/go-spill-tracker/internal/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSite(id, deviceID string, lat, lon float64) *models.Site {
	return &models.Site{
		ID:          id,
		DeviceID:    deviceID,
		Name:        "Buoy " + deviceID,
		Latitude:    lat,
		Longitude:   lon,
		IsActive:    true,
		InstalledAt: time.Now().UTC(),
	}
}

func TestSites_AddAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	site := testSite("site_1", "B1", 23.0, 58.0)
	if err := db.AddSite(ctx, site); err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}

	got, err := db.GetSite(ctx, "site_1")
	if err != nil {
		t.Fatalf("GetSite failed: %v", err)
	}
	if got.DeviceID != "B1" || got.Latitude != 23.0 || !got.IsActive {
		t.Errorf("unexpected site: %+v", got)
	}

	byDevice, err := db.GetSiteByDeviceID(ctx, "B1")
	if err != nil {
		t.Fatalf("GetSiteByDeviceID failed: %v", err)
	}
	if byDevice.ID != "site_1" {
		t.Errorf("expected site_1, got %s", byDevice.ID)
	}
}

func TestSites_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetSite(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.GetSiteByDeviceID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSites_ListOrderedByDeviceID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, s := range []*models.Site{
		testSite("s2", "B2", 23.5, 58.5),
		testSite("s1", "B1", 23.0, 58.0),
	} {
		if err := db.AddSite(ctx, s); err != nil {
			t.Fatalf("AddSite failed: %v", err)
		}
	}

	sites, err := db.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites failed: %v", err)
	}
	if len(sites) != 2 || sites[0].DeviceID != "B1" || sites[1].DeviceID != "B2" {
		t.Errorf("unexpected order: %+v", sites)
	}
}

func TestSites_Nearest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, s := range []*models.Site{
		testSite("s1", "B1", 23.0, 58.0),
		testSite("s2", "B2", 24.5, 59.5),
	} {
		if err := db.AddSite(ctx, s); err != nil {
			t.Fatalf("AddSite failed: %v", err)
		}
	}

	got, err := db.NearestSite(ctx, 24.4, 59.4)
	if err != nil {
		t.Fatalf("NearestSite failed: %v", err)
	}
	if got.ID != "s2" {
		t.Errorf("expected s2 nearest, got %s", got.ID)
	}
}

func TestReadings_AddAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.AddSite(ctx, testSite("s1", "B1", 23.0, 58.0)); err != nil {
		t.Fatalf("AddSite failed: %v", err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := &models.SensorReading{
			SiteID:      "s1",
			RecordedAt:  base.Add(time.Duration(i) * time.Minute),
			Turbidity:   6.0 + float64(i),
			PH:          8.0,
			EC:          33.0,
			Temperature: 27.0,
			Latitude:    23.0,
			Longitude:   58.0,
			Status:      models.ReadingStatusOK,
		}
		if err := db.AddReading(ctx, r); err != nil {
			t.Fatalf("AddReading failed: %v", err)
		}
		if r.ID == 0 {
			t.Error("expected insert id to be set")
		}
	}

	readings, err := db.ListReadingsBySite(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("ListReadingsBySite failed: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	// newest first
	if !readings[0].RecordedAt.After(readings[1].RecordedAt) {
		t.Errorf("expected newest-first ordering, got %v then %v", readings[0].RecordedAt, readings[1].RecordedAt)
	}
	if readings[0].Status != models.ReadingStatusOK {
		t.Errorf("expected status OK, got %s", readings[0].Status)
	}
}

func TestIncidents_AddGetList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inc := &models.SpillIncident{
		ID:          "spill_1",
		SiteID:      "s1",
		Latitude:    23.1,
		Longitude:   58.2,
		VolumeClass: "medium",
		Status:      models.IncidentStatusActive,
		Notes:       "drill",
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.AddIncident(ctx, inc); err != nil {
		t.Fatalf("AddIncident failed: %v", err)
	}

	got, err := db.GetIncident(ctx, "spill_1")
	if err != nil {
		t.Fatalf("GetIncident failed: %v", err)
	}
	if got.Status != models.IncidentStatusActive {
		t.Errorf("expected active status, got %s", got.Status)
	}
	if got.ResolvedAt != nil {
		t.Error("expected nil ResolvedAt on a fresh incident")
	}
	if len(got.AffectedSiteIDs) != 0 {
		t.Errorf("expected no affected sites yet, got %v", got.AffectedSiteIDs)
	}

	list, err := db.ListIncidents(ctx, 10)
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "spill_1" {
		t.Errorf("unexpected incident list: %+v", list)
	}

	if _, err := db.GetIncident(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIncidents_ListBySite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, siteID := range []string{"s1", "s1", "s2"} {
		inc := &models.SpillIncident{
			ID:          "spill_" + string(rune('a'+i)),
			SiteID:      siteID,
			Latitude:    23.0,
			Longitude:   58.0,
			VolumeClass: "small",
			Status:      models.IncidentStatusActive,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.AddIncident(ctx, inc); err != nil {
			t.Fatalf("AddIncident failed: %v", err)
		}
	}

	incidents, err := db.ListIncidentsBySite(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListIncidentsBySite failed: %v", err)
	}
	if len(incidents) != 2 {
		t.Fatalf("expected 2 incidents for s1, got %d", len(incidents))
	}
	// newest first
	if incidents[0].ID != "spill_b" || incidents[1].ID != "spill_a" {
		t.Errorf("unexpected order: %s, %s", incidents[0].ID, incidents[1].ID)
	}

	none, err := db.ListIncidentsBySite(ctx, "s3", 10)
	if err != nil {
		t.Fatalf("ListIncidentsBySite failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no incidents for s3, got %d", len(none))
	}
}

func TestIncidents_UpdateNotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inc := &models.SpillIncident{
		ID:          "spill_1",
		Latitude:    23.1,
		Longitude:   58.2,
		VolumeClass: "small",
		Status:      models.IncidentStatusActive,
		Notes:       "initial",
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.AddIncident(ctx, inc); err != nil {
		t.Fatalf("AddIncident failed: %v", err)
	}

	if err := db.UpdateIncidentNotes(ctx, "spill_1", "verified on site"); err != nil {
		t.Fatalf("UpdateIncidentNotes failed: %v", err)
	}

	got, err := db.GetIncident(ctx, "spill_1")
	if err != nil {
		t.Fatalf("GetIncident failed: %v", err)
	}
	if got.Notes != "verified on site" {
		t.Errorf("expected updated notes, got %q", got.Notes)
	}
	if got.Status != models.IncidentStatusActive {
		t.Errorf("expected status untouched, got %s", got.Status)
	}

	if err := db.UpdateIncidentNotes(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIncidents_MarkResolved(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inc := &models.SpillIncident{
		ID:          "spill_1",
		Latitude:    23.1,
		Longitude:   58.2,
		VolumeClass: "large",
		Status:      models.IncidentStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.AddIncident(ctx, inc); err != nil {
		t.Fatalf("AddIncident failed: %v", err)
	}

	affected := []string{"B2", "B1"}
	if err := db.MarkResolved(ctx, "spill_1", affected); err != nil {
		t.Fatalf("MarkResolved failed: %v", err)
	}

	got, err := db.GetIncident(ctx, "spill_1")
	if err != nil {
		t.Fatalf("GetIncident failed: %v", err)
	}
	if got.Status != models.IncidentStatusResolved {
		t.Errorf("expected resolved status, got %s", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Error("expected ResolvedAt to be set")
	}
	if len(got.AffectedSiteIDs) != 2 || got.AffectedSiteIDs[0] != "B2" || got.AffectedSiteIDs[1] != "B1" {
		t.Errorf("expected hit order preserved, got %v", got.AffectedSiteIDs)
	}

	// resolving twice, or resolving an unknown id, reports not found
	if err := db.MarkResolved(ctx, "spill_1", affected); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double resolve, got %v", err)
	}
	if err := db.MarkResolved(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}
