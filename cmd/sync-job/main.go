package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ztfalerts/internal/common/cache"
	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/storage"
	"ztfalerts/internal/schedule"
	"ztfalerts/internal/syncer"
	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/sync_job.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	once := flag.Bool("once", false, "Run a single sync pass and exit")
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

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(ctx, "init minio failed", zap.Error(err))
		return
	}
	job := syncer.NewJob(objStorage, appCfg.MinIO.Bucket, appCfg.Targets)
	runJob := func(ctx context.Context) error {
		_, err := job.Run(ctx)
		return err
	}

	if *once {
		if err := runJob(ctx); err != nil {
			logger.Error(ctx, "sync run failed", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}
		return
	}

	runner := &schedule.Runner{
		Name:     "sync",
		Interval: appCfg.Schedule.Interval,
		LockKey:  appCfg.Schedule.LockKey,
		LockTTL:  appCfg.Schedule.LockTTL,
	}
	if appCfg.Redis.Addr != "" {
		locker, err := cache.NewRedisLocker(appCfg.Redis)
		if err != nil {
			logger.Error(ctx, "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = locker.Close()
		}()
		runner.Locker = locker
	}

	go func() {
		if err := metrics.Serve(ctx, appCfg.Metrics); err != nil {
			logger.Error(ctx, "metrics server stopped", zap.Error(err))
		}
	}()

	if err := runner.Run(ctx, runJob); err != nil {
		logger.Error(ctx, "scheduler failed", zap.Error(err))
	}
}
