package main

import (
	"fmt"

	"ztfalerts/internal/repair"

	"github.com/spf13/cobra"
)

var (
	migrateDir              string
	migrateDeleteDuplicates bool
)

var migrateImagesCmd = &cobra.Command{
	Use:   "migrate-images",
	Short: "Rename timestamped image files to <objectId>_<kind>.<ext>",
	Args:  cobra.NoArgs,
	RunE:  runMigrateImages,
}

func init() {
	migrateImagesCmd.Flags().StringVar(&migrateDir, "dir", "", "Image root holding one directory per date (default: storage.imagesDir)")
	migrateImagesCmd.Flags().BoolVar(&migrateDeleteDuplicates, "delete-duplicates", false, "Remove later files for an object and kind already renamed")
}

func runMigrateImages(cmd *cobra.Command, args []string) error {
	dir := migrateDir
	if dir == "" {
		dir = appCfg.Storage.ImagesDir
	}
	report, err := repair.MigrateImageNames(dir, migrateDeleteDuplicates)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "renamed=%d duplicates=%d deleted=%d existing=%d\n",
		report.Renamed, report.Duplicates, report.Deleted, report.Existing)
	return nil
}
