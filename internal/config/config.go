package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/pkg/logger"
)

var config *Config

// Config holds every configuration value of the follow-up processes.
// Only this struct must be used to read configuration; no direct access
// to env or any other config source should be made.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=review_followup"`
	AppDebug            bool   `env:"APP_DEBUG,default=true"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	AppBaseUrl          string `env:"APP_BASE_URL"`

	HttpListenAddr            string `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpBaseRequestUrl        string `env:"HTTP_BASE_REQUEST_URI,default=/api/v1"`
	HttpServerReadTimeout     int    `env:"HTTP_SERVER_READ_TIMEOUT,default=10"`
	HttpServerWriteTimeout    int    `env:"HTTP_SERVER_WRITE_TIMEOUT,default=10"`
	HttpServerReadBufferSize  int    `env:"HTTP_SERVER_READ_BUFFER_SIZE,default=8192"`
	HttpServerWriteBufferSize int    `env:"HTTP_SERVER_WRITE_BUFFER_SIZE,default=8192"`
	HttpMaxRequestBodySize    int    `env:"HTTP_MAX_REQUEST_BODY_SIZE,default=1048576"`

	JwtSecret       string `env:"JWT_SECRET"`
	TrackingBaseUrl string `env:"TRACKING_BASE_URL,default=http://localhost:8080"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`
	PostgresSSLMode       string `env:"POSTGRES_SSL_MODE,default=disable"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=followup:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=review_followup"`

	LogLevel []string `env:"LOG_LEVEL"`

	SchedulerCronSpec    string        `env:"SCHEDULER_CRON_SPEC,default=*/5 * * * *"`
	SchedulerTimezone    string        `env:"SCHEDULER_TIMEZONE,default=UTC"`
	SchedulerPassTimeout time.Duration `env:"SCHEDULER_PASS_TIMEOUT,default=4m"`
	SchedulerPageSize    int           `env:"SCHEDULER_PAGE_SIZE,default=500"`
	SchedulerWorkers     int           `env:"SCHEDULER_WORKERS,default=8"`

	TimingTablesFile     string        `env:"TIMING_TABLES_FILE"`
	EngagementMinSamples int           `env:"ENGAGEMENT_MIN_SAMPLES,default=50"`
	DispatchEnqueueTTL   time.Duration `env:"DISPATCH_ENQUEUE_TTL,default=30m"`
	DispatchLockTTL      time.Duration `env:"DISPATCH_LOCK_TTL,default=2m"`

	QueueName              string        `env:"QUEUE_NAME,default=followup_dispatch"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=dispatchers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME,default=dispatcher-1"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=3"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=5m"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=50"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`
	ProcessorWorkers       int           `env:"PROCESSOR_WORKERS,default=10"`

	EmailProviderUrls []string      `env:"EMAIL_PROVIDER_URLS"`
	SmsProviderUrls   []string      `env:"SMS_PROVIDER_URLS"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT,default=10s"`
	ProviderRate      float64       `env:"PROVIDER_RATE,default=20"`
	ProviderBurst     int           `env:"PROVIDER_BURST,default=40"`

	MockProviderAddr        string  `env:"MOCK_PROVIDER_ADDR,default=:9090"`
	MockProviderFailureRate float64 `env:"MOCK_PROVIDER_FAILURE_RATE,default=0.05"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	config = c
	return nil
}

// Set installs c as the process configuration. Tests use it instead of Load.
func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
