package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"ztfalerts/internal/common/mq"
	"ztfalerts/internal/stamps"
	"ztfalerts/pkg/utils/logger"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// StorageConfig holds the local data layout.
type StorageConfig struct {
	AlertsDir string `yaml:"alertsDir" env:"ZTF_ALERTS_DIR"`
	ImagesDir string `yaml:"imagesDir" env:"ZTF_IMAGES_DIR"`
}

// AppConfig holds the ztfctl configuration.
type AppConfig struct {
	Logger  logger.Config       `yaml:"logger"`
	Kafka   mq.KafkaConfig      `yaml:"kafka"`
	Storage StorageConfig       `yaml:"storage"`
	Alerce  stamps.AlerceConfig `yaml:"alerce"`
	Stamps  stamps.Options      `yaml:"stamps"`
}

// loadAppConfig reads path when it exists. A missing file leaves every setting at its default.
func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file failed: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides failed: %w", err)
	}

	if cfg.Storage.AlertsDir == "" {
		cfg.Storage.AlertsDir = "data/alerts"
	}
	if cfg.Storage.ImagesDir == "" {
		cfg.Storage.ImagesDir = "data/images/by_date"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	return &cfg, nil
}
