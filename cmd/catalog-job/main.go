package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ztfalerts/internal/catalog"
	"ztfalerts/internal/common/cache"
	"ztfalerts/internal/common/db"
	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/storage"
	"ztfalerts/internal/schedule"
	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/catalog_job.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	once := flag.Bool("once", false, "Run a single catalog pass and exit")
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

	database, err := db.Open(appCfg.Warehouse.Database)
	if err != nil {
		logger.Error(ctx, "init warehouse database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = database.Close()
	}()

	warehouse, err := catalog.NewSQLWarehouse(database, appCfg.Warehouse.Tables)
	if err != nil {
		logger.Error(ctx, "init warehouse failed", zap.Error(err))
		return
	}

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(ctx, "init minio failed", zap.Error(err))
		return
	}

	job, err := catalog.NewJob(objStorage, warehouse, appCfg.Catalog)
	if err != nil {
		logger.Error(ctx, "init catalog job failed", zap.Error(err))
		return
	}
	runJob := func(ctx context.Context) error {
		_, err := job.Run(ctx)
		return err
	}

	if *once {
		if err := runJob(ctx); err != nil {
			logger.Error(ctx, "catalog run failed", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}
		return
	}

	runner := &schedule.Runner{
		Name:     "catalog",
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
