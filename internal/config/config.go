// Package config holds the process configuration. It is parsed from the
// environment exactly once in main and handed to components by injection;
// nothing reads the environment after startup.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port      string `env:"PUNCHCARD_PORT" envDefault:"8080"`
	DBPath    string `env:"PUNCHCARD_DB_PATH" envDefault:"punchcard.db"`
	LogLevel  string `env:"PUNCHCARD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PUNCHCARD_LOG_FORMAT" envDefault:"text"`

	AllowedOrigins []string `env:"PUNCHCARD_ALLOWED_ORIGINS" envSeparator:","`

	JWTSecret   string        `env:"PUNCHCARD_JWT_SECRET"`
	JWTLifetime time.Duration `env:"PUNCHCARD_JWT_LIFETIME" envDefault:"24h"`

	GeocodeBaseURL   string        `env:"PUNCHCARD_GEOCODE_URL" envDefault:"https://nominatim.openstreetmap.org/reverse"`
	GeocodeUserAgent string        `env:"PUNCHCARD_GEOCODE_USER_AGENT" envDefault:"punchcard/1.0"`
	GeocodeTimeout   time.Duration `env:"PUNCHCARD_GEOCODE_TIMEOUT" envDefault:"5s"`

	WorkerCount int `env:"PUNCHCARD_WORKERS" envDefault:"4"`
	QueueSize   int `env:"PUNCHCARD_QUEUE_SIZE" envDefault:"256"`

	Backup BackupConfig
}

// BackupConfig controls the periodic encrypted snapshot upload. Backups are
// disabled unless a bucket is configured.
type BackupConfig struct {
	Bucket     string        `env:"PUNCHCARD_BACKUP_BUCKET"`
	Region     string        `env:"PUNCHCARD_BACKUP_REGION" envDefault:"us-east-1"`
	Endpoint   string        `env:"PUNCHCARD_BACKUP_ENDPOINT"`
	AccessKey  string        `env:"PUNCHCARD_BACKUP_ACCESS_KEY"`
	SecretKey  string        `env:"PUNCHCARD_BACKUP_SECRET_KEY"`
	Passphrase string        `env:"PUNCHCARD_BACKUP_PASSPHRASE"`
	Interval   time.Duration `env:"PUNCHCARD_BACKUP_INTERVAL" envDefault:"24h"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("PUNCHCARD_JWT_SECRET is required")
	}
	if cfg.Backup.Bucket != "" && cfg.Backup.Passphrase == "" {
		return nil, fmt.Errorf("PUNCHCARD_BACKUP_PASSPHRASE is required when backups are enabled")
	}
	return &cfg, nil
}
