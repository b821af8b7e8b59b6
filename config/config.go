package config

import (
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/log"
	"sync"
	"time"
)

type Config struct {
	HttpPort      int           `envconfig:"HTTP_PORT" required:"false" default:"5000"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" required:"false"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" required:"false"`
	RedisDB       int           `envconfig:"REDIS_DB" required:"false" default:"0"`
	MaxWorkers    int           `envconfig:"MAX_WORKERS" required:"false" default:"16"`
	EventsChannel string        `envconfig:"EVENTS_CHANNEL" required:"false" default:"signaling:rooms"`
	PingInterval  time.Duration `envconfig:"PING_INTERVAL" required:"false" default:"30s"`
	SendBuffer    int           `envconfig:"SEND_BUFFER" required:"false" default:"64"`
	CorsOrigin    string        `envconfig:"CORS_ORIGIN" required:"false" default:"*"`
	StaticDir     string        `envconfig:"STATIC_DIR" required:"false" default:"public"`
	LogLevel      string        `envconfig:"LOG_LEVEL" required:"false" default:"INFO"`
}

var (
	c    Config
	once sync.Once
)

// Get returns the process-wide configuration, loading it on first use
func Get() *Config {
	once.Do(func() {
		loaded, err := Load()
		if err != nil {
			log.Fatal(err)
		}
		c = *loaded
	})
	return &c
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	// the first frame of a session is queued before its writer starts
	if cfg.SendBuffer < 1 {
		return nil, fmt.Errorf("SEND_BUFFER must be at least 1, got %d", cfg.SendBuffer)
	}
	if cfg.MaxWorkers < 1 {
		return nil, fmt.Errorf("MAX_WORKERS must be at least 1, got %d", cfg.MaxWorkers)
	}
	if cfg.PingInterval <= 0 {
		return nil, fmt.Errorf("PING_INTERVAL must be positive, got %s", cfg.PingInterval)
	}
	return &cfg, nil
}

// Level maps LOG_LEVEL to a gommon log level, INFO when unknown
func (c *Config) Level() log.Lvl {
	switch c.LogLevel {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	default:
		return log.INFO
	}
}
