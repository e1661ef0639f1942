// Package config assembles the service configuration from the layered YAML
// files in the config directory and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"paytrack/pkg/config"
)

type BillingConfig struct {
	// BatchMode is best_effort or all_or_nothing.
	BatchMode    string        `yaml:"batch_mode"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LifecycleConfig struct {
	GuardReactivation bool `yaml:"guard_reactivation"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	DedupTTL      time.Duration `yaml:"dedup_ttl"`
	RetryTTL      time.Duration `yaml:"retry_ttl"`
	HealthPort    string        `yaml:"health_port"`

	OutboxInterval  time.Duration `yaml:"outbox_interval"`
	OutboxBatchSize int           `yaml:"outbox_batch_size"`
}

type StorageConfig struct {
	// Driver is postgres or memory.
	Driver string `yaml:"driver"`
}

type ReportsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type AuthConfig struct {
	AdminEmails   []string `yaml:"admin_emails"`
	// AdminPassword is the initial password of seeded admin accounts.
	AdminPassword string `yaml:"admin_password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	DB        config.DBConfig     `yaml:"db"`
	MQ        config.MQConfig     `yaml:"mq"`
	Redis     config.RedisConfig  `yaml:"redis"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Otel      config.OtelConfig   `yaml:"otel"`
	Auth      AuthConfig          `yaml:"auth"`
	Billing   BillingConfig       `yaml:"billing"`
	Lifecycle LifecycleConfig     `yaml:"lifecycle"`
	Worker    WorkerConfig        `yaml:"worker"`
	Storage   StorageConfig       `yaml:"storage"`
	Reports   ReportsConfig       `yaml:"reports"`
	Log       LogConfig           `yaml:"log"`
}

// Load reads CONFIG_DIR/base.yaml merged with the CONFIG_ENV file, then
// applies environment overrides and defaults.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if err := config.Decode(env, dir, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		cfg.Auth.AdminPassword = pw
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 10 * time.Second
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.MQ.MaxRetries <= 0 {
		c.MQ.MaxRetries = 3
	}
	if c.Billing.BatchMode == "" {
		c.Billing.BatchMode = "best_effort"
	}
	if c.Billing.WriteTimeout <= 0 {
		c.Billing.WriteTimeout = 5 * time.Second
	}
	if c.Worker.SweepInterval <= 0 {
		c.Worker.SweepInterval = time.Hour
	}
	if c.Worker.DedupTTL <= 0 {
		c.Worker.DedupTTL = time.Hour
	}
	if c.Worker.RetryTTL <= 0 {
		c.Worker.RetryTTL = 24 * time.Hour
	}
	if c.Worker.OutboxInterval <= 0 {
		c.Worker.OutboxInterval = time.Second
	}
	if c.Worker.OutboxBatchSize <= 0 {
		c.Worker.OutboxBatchSize = 100
	}
	if c.Worker.HealthPort == "" {
		c.Worker.HealthPort = ":8081"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Reports.CacheTTL <= 0 {
		c.Reports.CacheTTL = 5 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i, e := range c.Auth.AdminEmails {
		c.Auth.AdminEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	return nil
}
