package models

import "time"

type ReadingStatus string

const (
	ReadingStatusOK      ReadingStatus = "OK"
	ReadingStatusWarning ReadingStatus = "WARNING"
	ReadingStatusAlert   ReadingStatus = "ALERT"
)

// SensorReading is one water-quality sample reported by (or fabricated
// for) a monitoring site.
type SensorReading struct {
	ID          int64
	SiteID      string
	RecordedAt  time.Time
	Turbidity   float64 // NTU
	PH          float64
	EC          float64 // PSU, approximate salinity/conductivity
	Temperature float64 // Celsius
	Latitude    float64
	Longitude   float64
	Status      ReadingStatus
}

// ClassifyReading maps raw sensor values onto a status using the same
// thresholds the dashboard colours by.
func ClassifyReading(turbidity, ph, ec float64) ReadingStatus {
	if turbidity > 10 || ph > 9 || ec > 40 {
		return ReadingStatusAlert
	}
	if turbidity > 7.5 || ph > 8.5 || ec > 36 {
		return ReadingStatusWarning
	}
	return ReadingStatusOK
}
