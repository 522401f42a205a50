package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/storage"
	appErr "ztfalerts/pkg/errors"
	"ztfalerts/pkg/utils/contextkey"
	"ztfalerts/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects where catalog rows come from.
type Mode string

const (
	// ModeRemote lists the object store and upserts rows directly.
	ModeRemote Mode = "remote"
	// ModeManifest scans local image dirs, uploads a CSV manifest and merges through staging.
	ModeManifest Mode = "manifest"
)

// Options configures a catalog job.
type Options struct {
	Mode   Mode   `yaml:"mode"`
	Bucket string `yaml:"bucket"`
	// ImagesPrefix is the key prefix of the image tree, e.g. "images/by_date".
	ImagesPrefix string `yaml:"imagesPrefix"`
	// LocalImagesDir is the local mirror of ImagesPrefix scanned in manifest mode.
	LocalImagesDir   string `yaml:"localImagesDir"`
	ManifestPrefix   string `yaml:"manifestPrefix"`
	CompressManifest bool   `yaml:"compressManifest"`
}

// Report summarizes a catalog run.
type Report struct {
	RunID       string
	Mode        Mode
	Scanned     int
	Ignored     int
	Rows        int
	ManifestKey string
	Duration    time.Duration
}

// Job extracts stamp rows and writes them to the warehouse.
type Job struct {
	store     storage.ObjectStorage
	warehouse Warehouse
	opts      Options
}

func NewJob(store storage.ObjectStorage, warehouse Warehouse, opts Options) (*Job, error) {
	if opts.Mode == "" {
		opts.Mode = ModeRemote
	}
	if opts.ImagesPrefix == "" {
		opts.ImagesPrefix = "images/by_date"
	}
	if opts.ManifestPrefix == "" {
		opts.ManifestPrefix = "manifests/stamps"
	}
	switch opts.Mode {
	case ModeRemote:
	case ModeManifest:
		if opts.LocalImagesDir == "" {
			return nil, fmt.Errorf("localImagesDir is required in manifest mode")
		}
	default:
		return nil, fmt.Errorf("unknown catalog mode %q", opts.Mode)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Job{store: store, warehouse: warehouse, opts: opts}, nil
}

// Run performs one extraction and warehouse write.
func (j *Job) Run(ctx context.Context) (report Report, err error) {
	report = Report{RunID: uuid.NewString(), Mode: j.opts.Mode}
	ctx = context.WithValue(ctx, contextkey.RunID, report.RunID)
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	logger.Info(ctx, "starting catalog run", zap.String("mode", string(j.opts.Mode)), zap.String("bucket", j.opts.Bucket))
	if err = j.warehouse.EnsureSchema(ctx); err != nil {
		return report, err
	}

	var rows []StampRow
	if j.opts.Mode == ModeManifest {
		rows, err = j.localRows(ctx, &report)
	} else {
		rows, err = j.remoteRows(ctx, &report)
	}
	if err != nil {
		return report, appErr.Wrap(err, appErr.CatalogExtractFailed)
	}
	rows = Dedupe(rows)

	if j.opts.Mode == ModeManifest {
		report.ManifestKey, err = j.uploadManifest(ctx, report.RunID, rows)
		if err != nil {
			return report, err
		}
		report.Rows, err = j.warehouse.MergeStaged(ctx, rows)
	} else {
		report.Rows, err = j.warehouse.Upsert(ctx, rows)
	}
	if err != nil {
		logger.Error(ctx, "catalog warehouse write failed", zap.Int("rows", len(rows)), zap.Error(err))
		return report, err
	}

	metrics.CatalogRowsTotal.WithLabelValues(string(j.opts.Mode)).Add(float64(report.Rows))
	logger.Info(ctx, "catalog run complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("ignored", report.Ignored),
		zap.Int("rows", report.Rows),
		zap.String("manifest", report.ManifestKey),
	)
	return report, nil
}

func (j *Job) remoteRows(ctx context.Context, report *Report) ([]StampRow, error) {
	prefix := j.opts.ImagesPrefix
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	var rows []StampRow
	for obj := range j.store.ListObjects(ctx, j.opts.Bucket, prefix) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		report.Scanned++
		row, ok := ParseStampKey(obj.Key)
		if !ok {
			report.Ignored++
			continue
		}
		row.Path = j.remotePath(obj.Key)
		rows = append(rows, row)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (j *Job) localRows(ctx context.Context, report *Report) ([]StampRow, error) {
	var rows []StampRow
	err := filepath.WalkDir(j.opts.LocalImagesDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(j.opts.LocalImagesDir, p)
		if err != nil {
			return err
		}
		key := path.Join(j.opts.ImagesPrefix, filepath.ToSlash(rel))
		report.Scanned++
		row, ok := ParseStampKey(key)
		if !ok {
			report.Ignored++
			return nil
		}
		row.Path = j.remotePath(key)
		rows = append(rows, row)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(j.opts.LocalImagesDir); errors.Is(statErr, fs.ErrNotExist) {
			logger.Warn(ctx, "skipped missing path", zap.String("path", j.opts.LocalImagesDir))
			return nil, nil
		}
	}
	return rows, err
}

func (j *Job) uploadManifest(ctx context.Context, runID string, rows []StampRow) (string, error) {
	data, err := EncodeManifest(rows, j.opts.CompressManifest)
	if err != nil {
		return "", appErr.Wrap(err, appErr.ManifestUploadFailed)
	}
	key := path.Join(j.opts.ManifestPrefix, "stamps-"+runID+".csv")
	contentType := "text/csv"
	if j.opts.CompressManifest {
		key += ".zst"
		contentType = "application/zstd"
	}
	opts := storage.PutOptions{ContentType: contentType, UserMetadata: map[string]string{"run_id": runID}}
	if err := j.store.PutObject(ctx, j.opts.Bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", appErr.Wrapf(err, appErr.ManifestUploadFailed, "upload manifest %s", key)
	}
	return key, nil
}

func (j *Job) remotePath(key string) string {
	return "s3://" + j.opts.Bucket + "/" + key
}
