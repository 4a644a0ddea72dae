package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seaguard/go-spill-tracker/internal/api"
	"github.com/seaguard/go-spill-tracker/internal/broadcast"
	"github.com/seaguard/go-spill-tracker/internal/config"
	"github.com/seaguard/go-spill-tracker/internal/logging"
	"github.com/seaguard/go-spill-tracker/internal/models"
	"github.com/seaguard/go-spill-tracker/internal/observability"
	"github.com/seaguard/go-spill-tracker/internal/repository"
	"github.com/seaguard/go-spill-tracker/internal/sim"
	"github.com/seaguard/go-spill-tracker/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcaster := broadcast.New()
	metrics := observability.NewMetrics()

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine := sim.NewEngine(
		sim.NewField(),
		registrySource{repo: db},
		incidentSink{repo: db},
		cfg.Sim.TickInterval,
		sim.WithSeed(seed),
		sim.WithDetector(sim.Detector{RadiusM: cfg.Sim.DetectRadiusM, Threshold: cfg.Sim.DetectThreshold}),
	)

	engine.OnStart = func(s *sim.Session) {
		metrics.SessionsStarted.Inc()
		broadcaster.Publish(models.SpillEvent{
			Type:        models.SpillEventStarted,
			SessionID:   s.ID,
			Latitude:    s.Origin.Lat,
			Longitude:   s.Origin.Lon,
			VolumeClass: string(s.Class),
			Timestamp:   time.Now().UTC(),
		})
	}
	engine.OnHit = func(s *sim.Session, siteID string) {
		metrics.SiteHits.Inc()
		broadcaster.Publish(models.SpillEvent{
			Type:        models.SpillEventSiteHit,
			SessionID:   s.ID,
			SiteID:      siteID,
			Latitude:    s.Origin.Lat,
			Longitude:   s.Origin.Lon,
			VolumeClass: string(s.Class),
			Timestamp:   time.Now().UTC(),
		})
	}
	engine.OnResolved = func(sum sim.Summary) {
		metrics.SessionsResolved.Inc()
		broadcaster.Publish(models.SpillEvent{
			Type:        models.SpillEventResolved,
			SessionID:   sum.SessionID,
			Latitude:    sum.Origin.Lat,
			Longitude:   sum.Origin.Lon,
			VolumeClass: string(sum.Class),
			Timestamp:   time.Now().UTC(),
		})
	}
	engine.OnStep = func(live int) {
		metrics.SimTicks.Inc()
		metrics.ParcelsLive.Set(float64(live))
	}

	go engine.Run(ctx)

	var telem *telemetry.Manager
	if cfg.Telemetry.Enabled {
		telem = telemetry.NewManager(db, db, metrics, cfg.Telemetry.Interval, seed+1)
		telem.Start(ctx, cfg.Worker.Count, cfg.Worker.BufferSize)
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // must stay false with wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(20, 40))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := api.NewHandler(api.Repos{Sites: db, Readings: db, Incidents: db}, engine, broadcaster)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	if telem != nil {
		telem.Stop()
	}
	broadcaster.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
