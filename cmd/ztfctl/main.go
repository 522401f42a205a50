package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ztfalerts/internal/partition"
	"ztfalerts/internal/stamps"
	"ztfalerts/pkg/utils/logger"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/ztfctl.yaml"

var (
	configPath string
	appCfg     *AppConfig
)

var rootCmd = &cobra.Command{
	Use:               "ztfctl",
	Short:             "Operator tooling for the ZTF alert pipeline",
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(migrateImagesCmd)
	rootCmd.AddCommand(replayCmd)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return err
	}
	appCfg = cfg
	return nil
}

func layout() partition.Layout {
	return partition.Layout{AlertsDir: appCfg.Storage.AlertsDir, ImagesDir: appCfg.Storage.ImagesDir}
}

func newFetcher() *stamps.Fetcher {
	return stamps.NewFetcher(stamps.NewAlerceSource(appCfg.Alerce), appCfg.Stamps)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
