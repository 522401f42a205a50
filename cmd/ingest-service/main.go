package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/mq"
	"ztfalerts/internal/ingest"
	"ztfalerts/internal/partition"
	"ztfalerts/internal/stamps"
	"ztfalerts/pkg/utils/contextkey"
	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/ingest_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer := partition.NewWriter(partition.Layout{
		AlertsDir: appCfg.Storage.AlertsDir,
		ImagesDir: appCfg.Storage.ImagesDir,
	})
	fetcher := stamps.NewFetcher(stamps.NewAlerceSource(appCfg.Alerce), appCfg.Stamps)

	loops := make([]*ingest.Loop, 0, len(appCfg.Consumers))
	for _, consumer := range appCfg.Consumers {
		topicCtx := context.WithValue(ctx, contextkey.Topic, consumer.Topic)

		poller, err := mq.NewKafkaPoller(appCfg.Kafka, consumer.Topic, consumer.GroupID)
		if err != nil {
			logger.Error(topicCtx, "init kafka consumer failed", zap.Error(err))
			return
		}
		defer func() {
			_ = poller.Close()
		}()

		eventLog, err := ingest.OpenEventLog(consumer.EventLog, consumer.ErrorLog)
		if err != nil {
			logger.Error(topicCtx, "open event log failed", zap.Error(err))
			return
		}
		defer func() {
			_ = eventLog.Close()
		}()

		loops = append(loops, ingest.NewLoop(poller, writer, fetcher, eventLog, ingest.Options{
			Topic:       consumer.Topic,
			PollTimeout: appCfg.Ingest.PollTimeout,
			ErrorPause:  appCfg.Ingest.ErrorPause,
		}))
	}

	go func() {
		if err := metrics.Serve(ctx, appCfg.Metrics); err != nil {
			logger.Error(ctx, "metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info(ctx, "ingest service started", zap.Int("consumers", len(loops)))
	ingest.NewRunner(loops...).Run(ctx)
	logger.Info(context.Background(), "ingest service stopped")
}
