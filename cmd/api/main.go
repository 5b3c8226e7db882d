package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rankitpro/review-followup/internal/config"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/handlers"
	"github.com/rankitpro/review-followup/internal/repository"
	"github.com/rankitpro/review-followup/internal/services"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/rankitpro/review-followup/pkg/prom"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(config.EnvPathFromArgs())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	tables := followup.DefaultFactorTables()
	if cfg.TimingTablesFile != "" {
		if tables, err = followup.LoadFactorTables(cfg.TimingTablesFile); err != nil {
			logger.Error("failed to load timing tables", "path", cfg.TimingTablesFile, "error", err)
			return
		}
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.ServerOption{
		ReadTimeout:        time.Duration(cfg.HttpServerReadTimeout) * time.Second,
		WriteTimeout:       time.Duration(cfg.HttpServerWriteTimeout) * time.Second,
		ReadBufferSize:     cfg.HttpServerReadBufferSize,
		WriteBufferSize:    cfg.HttpServerWriteBufferSize,
		MaxRequestBodySize: cfg.HttpMaxRequestBodySize,
	})
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.JWTMiddleware(cfg.JwtSecret, cfg.HttpBaseRequestUrl+"/companies"))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	db, err := cfg.ConnectPostgres()
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := cfg.ConnectRedis("default")
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	settingsRepo := repository.NewSettingsRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)

	// services
	planner := services.NewPlanner(settingsRepo, holidayRepo, statusRepo, tables, cfg.EngagementMinSamples)
	settingsService := services.NewSettingsService(settingsRepo)
	requestService := services.NewRequestService(statusRepo, planner)
	holidayService := services.NewHolidayService(holidayRepo)

	// v1 handlers
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	requestHandler := handlers.NewRequestHandler(requestService)
	holidayHandler := handlers.NewHolidayHandler(holidayService)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"postgres": db.Ping,
		"redis":    redisAdap.Ping,
	})

	g := s.Router.Group(cfg.HttpBaseRequestUrl)
	handlers.RegisterSettingsRoutes(g, settingsHandler)
	handlers.RegisterRequestRoutes(g, requestHandler)
	handlers.RegisterHolidayRoutes(g, holidayHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)
	handlers.RegisterTrackingRoutes(s.Router, requestHandler)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}
