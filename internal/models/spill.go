package models

import "time"

type IncidentStatus string

const (
	IncidentStatusActive   IncidentStatus = "active"
	IncidentStatusResolved IncidentStatus = "resolved"
)

// SpillIncident is the persisted record of one release event. The live
// parcel population is owned by the simulation engine; this row only
// carries what survives the session.
type SpillIncident struct {
	ID              string
	SiteID          string // nearest site at creation time, informational
	Latitude        float64
	Longitude       float64
	VolumeClass     string // small|medium|large
	Status          IncidentStatus
	AffectedSiteIDs []string // ordered, set when resolved
	Notes           string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

type SpillEventType string

const (
	SpillEventStarted  SpillEventType = "started"
	SpillEventSiteHit  SpillEventType = "site_hit"
	SpillEventResolved SpillEventType = "resolved"
)

// SpillEvent is what the engine publishes to stream subscribers when a
// session starts, a monitored site is first hit, or a session resolves.
type SpillEvent struct {
	Type        SpillEventType `json:"type"`
	SessionID   string         `json:"session_id"`
	SiteID      string         `json:"site_id,omitempty"`
	Latitude    float64        `json:"lat"`
	Longitude   float64        `json:"lon"`
	VolumeClass string         `json:"volume_class,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
