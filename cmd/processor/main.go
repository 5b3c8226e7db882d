package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rankitpro/review-followup/internal/config"
	gateway "github.com/rankitpro/review-followup/internal/gateways"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/processor"
	"github.com/rankitpro/review-followup/internal/queue"
	"github.com/rankitpro/review-followup/internal/repository"
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
	logger.Info("starting dispatch processor", "version", version, "commit", commit, "date", date)

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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	providers := append(
		gateway.ProvidersFromURLs(model.ChannelEmail, cfg.EmailProviderUrls),
		gateway.ProvidersFromURLs(model.ChannelSMS, cfg.SmsProviderUrls)...,
	)
	client, err := gateway.NewClient(&gateway.Config{
		Providers:               providers,
		Timeout:                 cfg.ProviderTimeout,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                1000,
		ReadBufferSize:          1024 * 4,
		WriteBufferSize:         1024 * 4,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
		Rate:                    cfg.ProviderRate,
		Burst:                   cfg.ProviderBurst,
	})
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		return
	}
	defer client.Close()

	idemConfig := processor.DefaultIdempotencyConfig()
	idemConfig.LockTTL = cfg.DispatchLockTTL
	idemConfig.EnqueuedTTL = cfg.DispatchEnqueueTTL
	idempotency := processor.NewIdempotencyService(redisAdap, idemConfig)

	dispatcher := processor.NewDispatchProcessor(
		client,
		repository.NewStatusRepository(db),
		repository.NewSettingsRepository(db),
		repository.NewDispatchLogRepository(db),
		idempotency,
		cfg.TrackingBaseUrl,
	)

	service := processor.NewProcessorService(redisAdap, dispatcher, processor.ServiceConfig{
		Queue: queue.QueueConfig{
			Name:              cfg.QueueName,
			ConsumerGroup:     cfg.QueueConsumerGroup,
			ConsumerName:      cfg.QueueConsumerName,
			MaxRetries:        cfg.QueueMaxRetries,
			VisibilityTimeout: cfg.QueueVisibilityTimeout,
			PollInterval:      cfg.QueuePollInterval,
			BatchSize:         cfg.QueueBatchSize,
			MaxLen:            cfg.QueueMaxLen,
			EnableDLQ:         cfg.QueueEnableDLQ,
		},
		Consumers:         2,
		Workers:           cfg.ProcessorWorkers,
		ProcessingTimeout: cfg.ProviderTimeout * 4,
	})

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start processor", "error", err)
		}
	}()

	<-c
	service.Stop()
}
