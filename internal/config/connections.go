package config

import (
	"os"
	"strings"

	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/rankitpro/review-followup/pkg/pg"
	"github.com/rankitpro/review-followup/pkg/redis"
)

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

func (c *Config) RedisOptions(clientName string) *redis.Options {
	return &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: clientName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	}
}

// ConnectPostgres opens the read and write handles. SQL is logged in dev.
func (c *Config) ConnectPostgres() (*pg.DB, error) {
	return pg.CreateReadWrite(c.PostgresRead(), c.PostgresWrite(), c.AppEnv == "dev")
}

func (c *Config) ConnectRedis(clientName string) (redis.RedisAdapter, error) {
	return redis.NewRedisAdapter(clientName, c.RedisUniversalKeyPrefix, c.RedisOptions(clientName))
}

// EnvPathFromArgs returns the value of a --env=path argument when the file exists.
func EnvPathFromArgs() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return path
		}
	}
	return ""
}
