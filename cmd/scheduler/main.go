package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rankitpro/review-followup/internal/config"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/processor"
	"github.com/rankitpro/review-followup/internal/queue"
	"github.com/rankitpro/review-followup/internal/repository"
	"github.com/rankitpro/review-followup/internal/scheduler"
	"github.com/rankitpro/review-followup/internal/services"
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
	logger.Info("starting scheduler", "version", version, "commit", commit, "date", date)

	tables := followup.DefaultFactorTables()
	if cfg.TimingTablesFile != "" {
		tables, err = followup.LoadFactorTables(cfg.TimingTablesFile)
		if err != nil {
			logger.Error("failed to load timing tables", "path", cfg.TimingTablesFile, "error", err)
			return
		}
	}

	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		logger.Error("invalid scheduler timezone", "timezone", cfg.SchedulerTimezone, "error", err)
		return
	}

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

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxLen:        cfg.QueueMaxLen,
		EnableDLQ:     cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	statuses := repository.NewStatusRepository(db)
	planner := services.NewPlanner(
		repository.NewSettingsRepository(db),
		repository.NewHolidayRepository(db),
		statuses,
		tables,
		cfg.EngagementMinSamples,
	)

	idemConfig := processor.DefaultIdempotencyConfig()
	idemConfig.EnqueuedTTL = cfg.DispatchEnqueueTTL
	guard := processor.NewIdempotencyService(redisAdap, idemConfig)

	evaluation := services.NewEvaluationService(statuses, planner, guard, q, services.EvaluationConfig{
		PageSize: cfg.SchedulerPageSize,
		Workers:  cfg.SchedulerWorkers,
	})

	sched, err := scheduler.New(evaluation, scheduler.Config{
		Spec:        cfg.SchedulerCronSpec,
		Location:    loc,
		PassTimeout: cfg.SchedulerPassTimeout,
	})
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return
	}

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

	sched.Start()

	<-c
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SchedulerPassTimeout)
	defer cancel()
	sched.Stop(ctx)
	_ = q.Stop(5 * time.Second)
}
