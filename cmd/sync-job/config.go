package main

import (
	"fmt"
	"os"
	"time"

	"ztfalerts/internal/common/cache"
	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/storage"
	"ztfalerts/internal/syncer"
	"ztfalerts/pkg/utils/logger"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultInterval = 2 * time.Hour
	defaultLockKey  = "ztf:lock:sync"
)

// ScheduleConfig controls the periodic runner.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// AppConfig holds the sync-job configuration.
type AppConfig struct {
	Logger  logger.Config        `yaml:"logger"`
	Metrics metrics.ServerConfig `yaml:"metrics"`

	MinIO    storage.MinIOConfig `yaml:"minio"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Schedule ScheduleConfig      `yaml:"schedule"`
	Targets  []syncer.Target     `yaml:"targets"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides failed: %w", err)
	}

	if cfg.MinIO.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []syncer.Target{
			{LocalDir: "data/alerts", Prefix: "alerts_partitioned"},
			{LocalDir: "data/images/by_date", Prefix: "images/by_date"},
		}
	}
	for i, target := range cfg.Targets {
		if target.LocalDir == "" {
			return nil, fmt.Errorf("targets[%d]: localDir is required", i)
		}
	}

	if cfg.Schedule.Interval == 0 {
		cfg.Schedule.Interval = defaultInterval
	}
	if cfg.Schedule.LockKey == "" {
		cfg.Schedule.LockKey = defaultLockKey
	}
	if cfg.Schedule.LockTTL == 0 {
		cfg.Schedule.LockTTL = cfg.Schedule.Interval
	}
	return &cfg, nil
}
