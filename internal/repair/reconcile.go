package repair

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"ztfalerts/internal/alert"
	"ztfalerts/internal/partition"
	"ztfalerts/internal/stamps"
	"ztfalerts/pkg/utils/contextkey"
	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

// maxLineBytes bounds a single alert line in a partition log.
const maxLineBytes = 16 << 20

// Fetcher saves the stamps of one object into dir.
type Fetcher interface {
	FetchAndSave(ctx context.Context, objectID, dir string) ([]string, error)
}

// Options narrows a reconciliation pass.
type Options struct {
	// Dates limits the pass to these partition keys; empty means all partitions.
	Dates []string
	// DryRun reports missing stamps without fetching them.
	DryRun bool
}

// Report summarizes a reconciliation pass.
type Report struct {
	Partitions int
	Lines      int
	Malformed  int
	Complete   int
	Missing    int
	Refetched  int
	Failed     int
}

// Reconciler re-scans partition logs and refetches stamps that are missing on disk.
type Reconciler struct {
	layout  partition.Layout
	fetcher Fetcher
	opts    Options
}

func NewReconciler(layout partition.Layout, fetcher Fetcher, opts Options) *Reconciler {
	return &Reconciler{layout: layout, fetcher: fetcher, opts: opts}
}

// Run visits every selected partition once. Fetch failures are counted, not returned.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report
	keys, err := r.partitionKeys()
	if err != nil {
		return report, err
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.reconcilePartition(ctx, key, &report); err != nil {
			return report, err
		}
	}
	logger.Info(ctx, "reconciliation complete",
		zap.Int("partitions", report.Partitions),
		zap.Int("lines", report.Lines),
		zap.Int("malformed", report.Malformed),
		zap.Int("missing", report.Missing),
		zap.Int("refetched", report.Refetched),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (r *Reconciler) partitionKeys() ([]string, error) {
	if len(r.opts.Dates) > 0 {
		keys := make([]string, 0, len(r.opts.Dates))
		for _, key := range r.opts.Dates {
			if err := partition.ValidateKey(key); err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		return keys, nil
	}

	entries, err := os.ReadDir(r.layout.AlertsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read alerts dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if key, ok := partition.KeyFromDirName(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Reconciler) reconcilePartition(ctx context.Context, key string, report *Report) error {
	ctx = context.WithValue(ctx, contextkey.Partition, key)
	f, err := os.Open(r.layout.LogPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open partition log: %w", err)
	}
	defer f.Close()
	report.Partitions++

	imageDir := r.layout.ImageDir(key)
	visited := make(map[string]bool)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		report.Lines++
		rec, err := alert.Parse(sc.Bytes())
		if err != nil || rec.ObjectID() == "" {
			report.Malformed++
			logger.Warn(ctx, "skipping unusable alert line", zap.Int("line", report.Lines), zap.Error(err))
			continue
		}
		oid := rec.ObjectID()
		if visited[oid] {
			continue
		}
		visited[oid] = true

		missing := missingStamps(imageDir, oid)
		if missing == 0 {
			report.Complete++
			continue
		}
		report.Missing++
		logger.Info(ctx, "re-fetching stamps", zap.String("object_id", oid), zap.Int("missing", missing))
		if r.opts.DryRun {
			continue
		}
		if _, err := r.fetcher.FetchAndSave(ctx, oid, imageDir); err != nil {
			report.Failed++
			logger.Error(ctx, "stamp refetch failed", zap.String("object_id", oid), zap.Error(err))
			continue
		}
		report.Refetched++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan partition %s: %w", key, err)
	}
	return nil
}

func missingStamps(dir, objectID string) int {
	missing := 0
	for _, kind := range stamps.Kinds {
		if _, err := os.Stat(filepath.Join(dir, stamps.FileName(objectID, kind))); err != nil {
			missing++
		}
	}
	return missing
}
