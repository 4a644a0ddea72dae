package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/seaguard/go-spill-tracker/internal/broadcast"
	"github.com/seaguard/go-spill-tracker/internal/geo"
	"github.com/seaguard/go-spill-tracker/internal/models"
	"github.com/seaguard/go-spill-tracker/internal/repository"
	"github.com/seaguard/go-spill-tracker/internal/sim"
)

// Default sampling domain for the currents endpoint, roughly the Gulf
// of Oman.
const (
	domainLatMin = 22.5
	domainLatMax = 26.0
	domainLonMin = 56.5
	domainLonMax = 60.5
)

type Repos struct {
	Sites     repository.SiteRepository
	Readings  repository.ReadingRepository
	Incidents repository.IncidentRepository
}

type Handler struct {
	repos       Repos
	engine      *sim.Engine
	broadcaster *broadcast.Broadcaster
}

func NewHandler(repos Repos, engine *sim.Engine, broadcaster *broadcast.Broadcaster) *Handler {
	return &Handler{
		repos:       repos,
		engine:      engine,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.GET("/api/sites", h.listSites)
	r.POST("/api/sites", h.createSite)
	r.GET("/api/sites/:id", h.siteDetail)
	r.GET("/api/sites/:id/spills", h.siteSpills)

	r.POST("/api/readings", h.ingestReading)

	r.GET("/api/currents", h.currents)
	r.GET("/api/simulate", h.simulate)

	r.POST("/api/spills", h.startSpill)
	r.GET("/api/spills", h.listSpills)
	r.GET("/api/spills/:id", h.spillState)
	r.GET("/api/spills/:id/track", h.spillTrack)
	r.POST("/api/spills/:id/resolve", h.resolveSpill)
	r.PATCH("/api/spills/:id", h.updateSpill)

	r.GET("/api/events/stream", h.streamEvents)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// -------------------- SITES --------------------

func (h *Handler) listSites(c *gin.Context) {
	sites, err := h.repos.Sites.ListSites(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch sites"})
		return
	}

	out := make([]gin.H, 0, len(sites))
	for _, s := range sites {
		out = append(out, gin.H{
			"id":        s.ID,
			"device_id": s.DeviceID,
			"name":      s.Name,
			"lat":       s.Latitude,
			"lon":       s.Longitude,
			"is_active": s.IsActive,
		})
	}
	c.JSON(http.StatusOK, out)
}

type createSiteRequest struct {
	DeviceID string  `json:"device_id" binding:"required"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat" binding:"required"`
	Lon      float64 `json:"lon" binding:"required"`
}

func (h *Handler) createSite(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site := &models.Site{
		ID:          uuid.NewString(),
		DeviceID:    req.DeviceID,
		Name:        req.Name,
		Latitude:    req.Lat,
		Longitude:   req.Lon,
		IsActive:    true,
		InstalledAt: time.Now().UTC(),
	}
	if err := h.repos.Sites.AddSite(c.Request.Context(), site); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create site"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": site.ID})
}

func (h *Handler) siteDetail(c *gin.Context) {
	ctx := c.Request.Context()
	site, err := h.repos.Sites.GetSite(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch site"})
		return
	}

	readings, err := h.repos.Readings.ListReadingsBySite(ctx, site.ID, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch readings"})
		return
	}

	rout := make([]gin.H, 0, len(readings))
	for _, r := range readings {
		rout = append(rout, gin.H{
			"id":          r.ID,
			"ts":          r.RecordedAt.Format(time.RFC3339),
			"turbidity":   r.Turbidity,
			"ph":          r.PH,
			"ec":          r.EC,
			"temperature": r.Temperature,
			"lat":         r.Latitude,
			"lon":         r.Longitude,
			"status":      r.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        site.ID,
		"device_id": site.DeviceID,
		"name":      site.Name,
		"lat":       site.Latitude,
		"lon":       site.Longitude,
		"readings":  rout,
	})
}

// -------------------- READINGS --------------------

type ingestReadingRequest struct {
	DeviceID    string   `json:"device_id" binding:"required"`
	Turbidity   float64  `json:"turbidity"`
	PH          float64  `json:"ph"`
	EC          float64  `json:"ec"`
	Temperature float64  `json:"temperature"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

func (h *Handler) ingestReading(c *gin.Context) {
	var req ingestReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	site, err := h.repos.Sites.GetSiteByDeviceID(ctx, req.DeviceID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown device_id: " + req.DeviceID})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up site"})
		return
	}

	// position defaults to the site's mooring
	lat, lon := site.Latitude, site.Longitude
	if req.Lat != nil {
		lat = *req.Lat
	}
	if req.Lon != nil {
		lon = *req.Lon
	}

	reading := &models.SensorReading{
		SiteID:      site.ID,
		RecordedAt:  time.Now().UTC(),
		Turbidity:   req.Turbidity,
		PH:          req.PH,
		EC:          req.EC,
		Temperature: req.Temperature,
		Latitude:    lat,
		Longitude:   lon,
		Status:      models.ClassifyReading(req.Turbidity, req.PH, req.EC),
	}
	if err := h.repos.Readings.AddReading(ctx, reading); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reading"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": reading.ID, "status": reading.Status})
}

// -------------------- CURRENTS --------------------

// currents samples the field on a coarse grid for map arrows.
func (h *Handler) currents(c *gin.Context) {
	rows := queryInt(c, "rows", 8)
	cols := queryInt(c, "cols", 10)
	if rows < 1 || rows > 50 || cols < 1 || cols > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rows/cols must be in 1..50"})
		return
	}

	field := h.engine.Field()
	simTime := h.engine.SimTime()

	out := make([]gin.H, 0, rows*cols)
	for iy := 0; iy < rows; iy++ {
		lat := domainLatMin + (float64(iy)+0.5)*(domainLatMax-domainLatMin)/float64(rows)
		for ix := 0; ix < cols; ix++ {
			lon := domainLonMin + (float64(ix)+0.5)*(domainLonMax-domainLonMin)/float64(cols)
			v := field.Lookup(lat, lon, 0, simTime)
			out = append(out, gin.H{"lat": lat, "lon": lon, "u": v.VX, "v": v.VY})
		}
	}
	c.JSON(http.StatusOK, out)
}

// -------------------- SPILLS --------------------

type startSpillRequest struct {
	Lat    float64 `json:"lat" binding:"required"`
	Lon    float64 `json:"lon" binding:"required"`
	Volume string  `json:"volume"`
	Notes  string  `json:"notes"`
}

func (h *Handler) startSpill(c *gin.Context) {
	var req startSpillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Volume == "" {
		req.Volume = string(sim.VolumeSmall)
	}

	ctx := c.Request.Context()
	sess, err := h.engine.Start(ctx, sim.LatLon{Lat: req.Lat, Lon: req.Lon}, req.Volume)
	if errors.Is(err, sim.ErrInvalidVolumeClass) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume must be small|medium|large"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start spill"})
		return
	}

	// best-effort attribution to the nearest buoy
	siteID := ""
	if nearest, err := h.repos.Sites.NearestSite(ctx, req.Lat, req.Lon); err == nil {
		siteID = nearest.ID
	}

	notes := req.Notes
	if notes == "" {
		notes = "Simulated spill"
	}
	inc := &models.SpillIncident{
		ID:          sess.ID,
		SiteID:      siteID,
		Latitude:    req.Lat,
		Longitude:   req.Lon,
		VolumeClass: req.Volume,
		Status:      models.IncidentStatusActive,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repos.Incidents.AddIncident(ctx, inc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record incident"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": sess.ID, "volume_class": req.Volume})
}

func incidentJSON(inc models.SpillIncident) gin.H {
	item := gin.H{
		"id":                inc.ID,
		"site_id":           inc.SiteID,
		"lat":               inc.Latitude,
		"lon":               inc.Longitude,
		"volume":            inc.VolumeClass,
		"status":            inc.Status,
		"affected_site_ids": inc.AffectedSiteIDs,
		"notes":             inc.Notes,
		"created_at":        inc.CreatedAt.Format(time.RFC3339),
	}
	if inc.ResolvedAt != nil {
		item["resolved_at"] = inc.ResolvedAt.Format(time.RFC3339)
	}
	return item
}

func (h *Handler) listSpills(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	incidents, err := h.repos.Incidents.ListIncidents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch incidents"})
		return
	}

	out := make([]gin.H, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, incidentJSON(inc))
	}
	c.JSON(http.StatusOK, out)
}

// siteSpills lists the incidents attributed to one site, newest first.
func (h *Handler) siteSpills(c *gin.Context) {
	ctx := c.Request.Context()
	site, err := h.repos.Sites.GetSite(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch site"})
		return
	}

	incidents, err := h.repos.Incidents.ListIncidentsBySite(ctx, site.ID, queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch incidents"})
		return
	}

	out := make([]gin.H, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, incidentJSON(inc))
	}
	c.JSON(http.StatusOK, out)
}

type updateSpillRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// updateSpill lets an operator annotate an incident. Status is owned
// by the resolve lifecycle and is not editable here.
func (h *Handler) updateSpill(c *gin.Context) {
	var req updateSpillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.repos.Incidents.UpdateIncidentNotes(c.Request.Context(), c.Param("id"), req.Notes)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update incident"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// spillState returns the render payload for one live session: parcel
// cloud, footprint polygon and session metadata.
func (h *Handler) spillState(c *gin.Context) {
	snap, ok := h.engine.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session with that id"})
		return
	}

	footprint := geo.FootprintCircle(snap.FootprintCenter.Lat, snap.FootprintCenter.Lon, snap.FootprintRadiusM)

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, gin.H{
		"session":   snap,
		"footprint": footprint.AsGeometry(),
		"parcels":   parcelsToGeoJSON(snap.Parcels),
	})
}

func (h *Handler) spillTrack(c *gin.Context) {
	snap, ok := h.engine.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session with that id"})
		return
	}

	path := make([][2]float64, 0, len(snap.Track))
	for _, p := range snap.Track {
		path = append(path, [2]float64{p.Lat, p.Lon})
	}

	var track geom.Geometry
	if len(path) >= 2 {
		track = geo.TrackLine(path).AsGeometry()
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, gin.H{"type": "Feature", "properties": gin.H{}, "geometry": track})
}

func (h *Handler) resolveSpill(c *gin.Context) {
	sum, ok := h.engine.Resolve(c.Request.Context(), c.Param("id"))
	if !ok {
		// late resolves are expected under cooperative scheduling
		c.JSON(http.StatusOK, gin.H{"ok": true, "resolved": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"resolved":          true,
		"id":                sum.SessionID,
		"affected_site_ids": sum.AffectedSiteIDs,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	if v := c.Query(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
