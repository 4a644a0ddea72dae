package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seaguard/go-spill-tracker/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sites (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL UNIQUE,
			name TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			installed_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sensor_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id TEXT NOT NULL,
			recorded_at DATETIME NOT NULL,
			turbidity REAL,
			ph REAL,
			ec REAL,
			temperature REAL,
			latitude REAL,
			longitude REAL,
			status TEXT NOT NULL DEFAULT 'OK',
			FOREIGN KEY (site_id) REFERENCES sites(id)
		);

		CREATE TABLE IF NOT EXISTS spill_incidents (
			id TEXT PRIMARY KEY,
			site_id TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			volume_class TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			affected_site_ids TEXT,
			notes TEXT,
			created_at DATETIME NOT NULL,
			resolved_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_readings_site_time ON sensor_readings(site_id, recorded_at);
		CREATE INDEX IF NOT EXISTS idx_incidents_created ON spill_incidents(created_at);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// -------------------- SITES --------------------

func (s *SQLiteDB) AddSite(ctx context.Context, site *models.Site) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (id, device_id, name, latitude, longitude, is_active, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		site.ID, site.DeviceID, site.Name, site.Latitude, site.Longitude, site.IsActive, site.InstalledAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting site: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetSite(ctx context.Context, id string) (*models.Site, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, name, latitude, longitude, is_active, installed_at
		FROM sites WHERE id = ?`, id)
	return scanSite(row)
}

func (s *SQLiteDB) GetSiteByDeviceID(ctx context.Context, deviceID string) (*models.Site, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, name, latitude, longitude, is_active, installed_at
		FROM sites WHERE device_id = ?`, deviceID)
	return scanSite(row)
}

func scanSite(row *sql.Row) (*models.Site, error) {
	var site models.Site
	err := row.Scan(&site.ID, &site.DeviceID, &site.Name, &site.Latitude, &site.Longitude, &site.IsActive, &site.InstalledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning site: %w", err)
	}
	return &site, nil
}

func (s *SQLiteDB) ListSites(ctx context.Context) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, name, latitude, longitude, is_active, installed_at
		FROM sites ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.ID, &site.DeviceID, &site.Name, &site.Latitude, &site.Longitude, &site.IsActive, &site.InstalledAt); err != nil {
			return nil, fmt.Errorf("error scanning site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *SQLiteDB) NearestSite(ctx context.Context, lat, lon float64) (*models.Site, error) {
	// Euclidean in degrees is close enough for attribution over a
	// regional domain.
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, name, latitude, longitude, is_active, installed_at
		FROM sites
		ORDER BY (latitude - ?) * (latitude - ?) + (longitude - ?) * (longitude - ?)
		LIMIT 1`, lat, lat, lon, lon)
	return scanSite(row)
}

// -------------------- READINGS --------------------

func (s *SQLiteDB) AddReading(ctx context.Context, r *models.SensorReading) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (site_id, recorded_at, turbidity, ph, ec, temperature, latitude, longitude, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SiteID, r.RecordedAt, r.Turbidity, r.PH, r.EC, r.Temperature, r.Latitude, r.Longitude, string(r.Status),
	)
	if err != nil {
		return fmt.Errorf("error inserting reading: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

func (s *SQLiteDB) ListReadingsBySite(ctx context.Context, siteID string, limit int) ([]models.SensorReading, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, recorded_at, turbidity, ph, ec, temperature, latitude, longitude, status
		FROM sensor_readings
		WHERE site_id = ?
		ORDER BY recorded_at DESC
		LIMIT ?`, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing readings: %w", err)
	}
	defer rows.Close()

	var readings []models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		var status string
		if err := rows.Scan(&r.ID, &r.SiteID, &r.RecordedAt, &r.Turbidity, &r.PH, &r.EC, &r.Temperature, &r.Latitude, &r.Longitude, &status); err != nil {
			return nil, fmt.Errorf("error scanning reading: %w", err)
		}
		r.Status = models.ReadingStatus(status)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// -------------------- INCIDENTS --------------------

func (s *SQLiteDB) AddIncident(ctx context.Context, inc *models.SpillIncident) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spill_incidents (id, site_id, latitude, longitude, volume_class, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.SiteID, inc.Latitude, inc.Longitude, inc.VolumeClass, string(inc.Status), inc.Notes, inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting incident: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetIncident(ctx context.Context, id string) (*models.SpillIncident, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, site_id, latitude, longitude, volume_class, status, affected_site_ids, notes, created_at, resolved_at
		FROM spill_incidents WHERE id = ?`, id)

	inc, err := scanIncident(row.Scan)
	if err != nil {
		return nil, err
	}
	return inc, nil
}

func (s *SQLiteDB) ListIncidents(ctx context.Context, limit int) ([]models.SpillIncident, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, latitude, longitude, volume_class, status, affected_site_ids, notes, created_at, resolved_at
		FROM spill_incidents
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.SpillIncident
	for rows.Next() {
		inc, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

func (s *SQLiteDB) ListIncidentsBySite(ctx context.Context, siteID string, limit int) ([]models.SpillIncident, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, latitude, longitude, volume_class, status, affected_site_ids, notes, created_at, resolved_at
		FROM spill_incidents
		WHERE site_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing incidents for site: %w", err)
	}
	defer rows.Close()

	var incidents []models.SpillIncident
	for rows.Next() {
		inc, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

func (s *SQLiteDB) UpdateIncidentNotes(ctx context.Context, id, notes string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE spill_incidents SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("error updating incident notes: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIncident(scan func(dest ...any) error) (*models.SpillIncident, error) {
	var (
		inc        models.SpillIncident
		siteID     sql.NullString
		affected   sql.NullString
		status     string
		resolvedAt sql.NullTime
	)
	err := scan(&inc.ID, &siteID, &inc.Latitude, &inc.Longitude, &inc.VolumeClass, &status, &affected, &inc.Notes, &inc.CreatedAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning incident: %w", err)
	}
	inc.SiteID = siteID.String
	inc.Status = models.IncidentStatus(status)
	if affected.Valid && affected.String != "" {
		if err := json.Unmarshal([]byte(affected.String), &inc.AffectedSiteIDs); err != nil {
			return nil, fmt.Errorf("error decoding affected site ids: %w", err)
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		inc.ResolvedAt = &t
	}
	return &inc, nil
}

func (s *SQLiteDB) MarkResolved(ctx context.Context, id string, affectedSiteIDs []string) error {
	encoded, err := json.Marshal(affectedSiteIDs)
	if err != nil {
		return fmt.Errorf("error encoding affected site ids: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE spill_incidents
		SET status = ?, affected_site_ids = ?, resolved_at = ?
		WHERE id = ? AND status != ?`,
		string(models.IncidentStatusResolved), string(encoded), time.Now().UTC(), id, string(models.IncidentStatusResolved),
	)
	if err != nil {
		return fmt.Errorf("error resolving incident: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
