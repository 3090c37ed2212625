// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // shared with the main marketplace app
}

type GatewayConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AppUsername string        `yaml:"app_username"`
	AppPassword string        `yaml:"app_password"`
	Timeout     time.Duration `yaml:"timeout"` // per-call HTTP timeout
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"` // reconciliation loop tick
	WebhookSLA        time.Duration `yaml:"webhook_sla"`        // how long to wait for the webhook before polling
	ReconcileWindow   time.Duration `yaml:"reconcile_window"`   // only poll payments created within this window
	PendingExpiry     time.Duration `yaml:"pending_expiry"`     // PENDING older than this is expired terminally
	ExpiryCron        string        `yaml:"expiry_cron"`        // forfait expiry sweep schedule
}

type AlertsConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Alerts    AlertsConfig    `yaml:"alerts"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = 60 * time.Second
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = 5 * time.Minute
	}
	if cfg.Scheduler.WebhookSLA <= 0 {
		cfg.Scheduler.WebhookSLA = 10 * time.Minute
	}
	if cfg.Scheduler.ReconcileWindow <= 0 {
		cfg.Scheduler.ReconcileWindow = 24 * time.Hour
	}
	if cfg.Scheduler.PendingExpiry <= 0 {
		cfg.Scheduler.PendingExpiry = 48 * time.Hour
	}
	if cfg.Scheduler.ExpiryCron == "" {
		cfg.Scheduler.ExpiryCron = "0 0 * * *"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Gateway.BaseURL == "" {
		return nil, errors.New("gateway.base_url is required")
	}
	if cfg.Gateway.AppUsername == "" || cfg.Gateway.AppPassword == "" {
		return nil, errors.New("gateway credentials are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
