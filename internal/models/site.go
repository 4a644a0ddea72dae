package models

import "time"

// Site is a fixed monitoring point (a moored sensor buoy) that the
// detector evaluates parcel density against.
type Site struct {
	ID          string
	DeviceID    string // stable external identifier, e.g. "B1"
	Name        string
	Latitude    float64
	Longitude   float64
	IsActive    bool
	InstalledAt time.Time
}
