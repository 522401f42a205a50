package main

import (
	"fmt"
	"os"
	"time"

	"ztfalerts/internal/catalog"
	"ztfalerts/internal/common/cache"
	"ztfalerts/internal/common/db"
	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/storage"
	"ztfalerts/pkg/utils/logger"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultInterval = 6 * time.Hour
	defaultLockKey  = "ztf:lock:catalog"
)

// ScheduleConfig controls the periodic runner.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// WarehouseConfig selects the database and table names.
type WarehouseConfig struct {
	Database db.Config                `yaml:"database"`
	Tables   catalog.WarehouseOptions `yaml:"tables"`
}

// AppConfig holds the catalog-job configuration.
type AppConfig struct {
	Logger  logger.Config        `yaml:"logger"`
	Metrics metrics.ServerConfig `yaml:"metrics"`

	MinIO     storage.MinIOConfig `yaml:"minio"`
	Redis     cache.RedisConfig   `yaml:"redis"`
	Warehouse WarehouseConfig     `yaml:"warehouse"`
	Catalog   catalog.Options     `yaml:"catalog"`
	Schedule  ScheduleConfig      `yaml:"schedule"`
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

	if cfg.Warehouse.Database.DSN == "" {
		return nil, fmt.Errorf("warehouse dsn is required")
	}
	if cfg.Warehouse.Database.Driver == "" {
		cfg.Warehouse.Database.Driver = string(db.DialectMySQL)
	}
	if cfg.Catalog.Bucket == "" {
		cfg.Catalog.Bucket = cfg.MinIO.Bucket
	}
	if cfg.Catalog.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.Catalog.Mode == catalog.ModeManifest && cfg.Catalog.LocalImagesDir == "" {
		cfg.Catalog.LocalImagesDir = "data/images/by_date"
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
