package api

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/seaguard/go-spill-tracker/internal/geo"
	"github.com/seaguard/go-spill-tracker/internal/sim"
)

const (
	defaultSimHours   = 48.0
	maxSimHours       = 168.0
	defaultSimParcels = 1000
	maxSimParcels     = 8000
)

// simulate runs a one-shot trajectory over the current field: a
// forward drift forecast, or a backward hindcast for source
// backtracking. The run is transient and never touches live sessions;
// pass seed for a reproducible track.
func (h *Handler) simulate(c *gin.Context) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be numbers"})
		return
	}

	direction := c.DefaultQuery("direction", "forward")
	if direction != "forward" && direction != "backward" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be forward|backward"})
		return
	}

	hours := queryFloat(c, "hours", defaultSimHours)
	if hours <= 0 || hours > maxSimHours {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be in (0, 168]"})
		return
	}
	parcels := queryInt(c, "n", defaultSimParcels)
	if parcels < 1 || parcels > maxSimParcels {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be in 1..8000"})
		return
	}

	seed := time.Now().UnixNano()
	if v := c.Query("seed"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = s
		}
	}

	params := sim.TrajectoryParams{
		Origin:       sim.LatLon{Lat: lat, Lon: lon},
		Hours:        hours,
		Parcels:      parcels,
		Windage:      queryFloat(c, "windage", 0.02),
		DiffusionM2S: queryFloat(c, "diff", 0.5),
		Backward:     direction == "backward",
		Clamp: &sim.Bounds{
			LatMin: domainLatMin, LatMax: domainLatMax,
			LonMin: domainLonMin, LonMax: domainLonMax,
		},
	}

	track := sim.Trajectory(h.engine.Field(), params, rand.New(rand.NewSource(seed)), h.engine.SimTime())

	path := make([][2]float64, 0, len(track))
	for _, p := range track {
		path = append(path, [2]float64{p.Lat, p.Lon})
	}
	var line geom.Geometry
	if len(path) >= 2 {
		line = geo.TrackLine(path).AsGeometry()
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, gin.H{
		"type": "Feature",
		"properties": gin.H{
			"direction": direction,
			"hours":     hours,
			"parcels":   parcels,
		},
		"geometry": line,
	})
}
