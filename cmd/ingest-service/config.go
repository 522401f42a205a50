package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/mq"
	"ztfalerts/internal/stamps"
	"ztfalerts/pkg/utils/logger"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultAlertsDir   = "data/alerts"
	defaultImagesDir   = "data/images/by_date"
	defaultLogDir      = "logs"
	defaultPollTimeout = 1800 * time.Second
	defaultErrorPause  = 100 * time.Millisecond
)

// StorageConfig holds the local data layout.
type StorageConfig struct {
	AlertsDir string `yaml:"alertsDir" env:"ZTF_ALERTS_DIR"`
	ImagesDir string `yaml:"imagesDir" env:"ZTF_IMAGES_DIR"`
}

// ConsumerConfig describes one topic subscription.
type ConsumerConfig struct {
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"groupId"`
	// EventLog and ErrorLog default to <logDir>/<topic>_events.log and <logDir>/<topic>_errors.log.
	EventLog string `yaml:"eventLog"`
	ErrorLog string `yaml:"errorLog"`
}

// IngestConfig holds loop timing.
type IngestConfig struct {
	PollTimeout time.Duration `yaml:"pollTimeout"`
	ErrorPause  time.Duration `yaml:"errorPause"`
	LogDir      string        `yaml:"logDir"`
}

// AppConfig holds the ingest-service configuration.
type AppConfig struct {
	Logger  logger.Config        `yaml:"logger"`
	Metrics metrics.ServerConfig `yaml:"metrics"`

	Kafka     mq.KafkaConfig      `yaml:"kafka"`
	Storage   StorageConfig       `yaml:"storage"`
	Alerce    stamps.AlerceConfig `yaml:"alerce"`
	Stamps    stamps.Options      `yaml:"stamps"`
	Ingest    IngestConfig        `yaml:"ingest"`
	Consumers []ConsumerConfig    `yaml:"consumers"`
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

	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if len(cfg.Consumers) == 0 {
		return nil, fmt.Errorf("at least one consumer is required")
	}

	if cfg.Storage.AlertsDir == "" {
		cfg.Storage.AlertsDir = defaultAlertsDir
	}
	if cfg.Storage.ImagesDir == "" {
		cfg.Storage.ImagesDir = defaultImagesDir
	}
	if cfg.Ingest.PollTimeout == 0 {
		cfg.Ingest.PollTimeout = defaultPollTimeout
	}
	if cfg.Ingest.ErrorPause == 0 {
		cfg.Ingest.ErrorPause = defaultErrorPause
	}
	if cfg.Ingest.LogDir == "" {
		cfg.Ingest.LogDir = defaultLogDir
	}

	seen := make(map[string]bool, len(cfg.Consumers))
	for i := range cfg.Consumers {
		c := &cfg.Consumers[i]
		if c.Topic == "" {
			return nil, fmt.Errorf("consumers[%d]: topic is required", i)
		}
		if seen[c.Topic] {
			return nil, fmt.Errorf("consumers[%d]: duplicate topic %s", i, c.Topic)
		}
		seen[c.Topic] = true
		if c.GroupID == "" {
			c.GroupID = "ztf-ingest-" + c.Topic
		}
		if c.EventLog == "" {
			c.EventLog = filepath.Join(cfg.Ingest.LogDir, c.Topic+"_events.log")
		}
		if c.ErrorLog == "" {
			c.ErrorLog = filepath.Join(cfg.Ingest.LogDir, c.Topic+"_errors.log")
		}
	}
	return &cfg, nil
}
