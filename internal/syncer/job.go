package syncer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/storage"
	appErr "ztfalerts/pkg/errors"
	"ztfalerts/pkg/utils/contextkey"
	"ztfalerts/pkg/utils/logger"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// MetadataMD5 is the user metadata key holding the content hash of an uploaded file.
const MetadataMD5 = "md5"

// Target mirrors one local directory tree under a key prefix.
type Target struct {
	LocalDir string `yaml:"localDir"`
	Prefix   string `yaml:"prefix"`
}

// Report summarizes one sync run.
type Report struct {
	RunID    string
	Scanned  int
	Uploaded int
	Skipped  int
	Failed   int
	// Failures aggregates per-file upload errors that did not abort the run.
	Failures error
	Duration time.Duration
}

// Job uploads new or changed files to object storage. Remote objects are never deleted.
type Job struct {
	store   storage.ObjectStorage
	bucket  string
	targets []Target
}

func NewJob(store storage.ObjectStorage, bucket string, targets []Target) *Job {
	return &Job{store: store, bucket: bucket, targets: targets}
}

// Run syncs every target once. The returned error is non-nil when the run was aborted;
// per-file upload failures are reported in Report.Failures instead.
func (j *Job) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	ctx = context.WithValue(ctx, contextkey.RunID, report.RunID)
	start := time.Now()
	var failures *multierror.Error

	logger.Info(ctx, "starting sync cycle", zap.String("bucket", j.bucket), zap.Int("targets", len(j.targets)))
	var runErr error
	for _, target := range j.targets {
		if _, err := os.Stat(target.LocalDir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn(ctx, "skipped missing path", zap.String("path", target.LocalDir))
				continue
			}
			runErr = fmt.Errorf("stat %s: %w", target.LocalDir, err)
			break
		}
		logger.Info(ctx, "syncing directory", zap.String("path", target.LocalDir), zap.String("prefix", target.Prefix))
		if err := j.syncTarget(ctx, target, &report, &failures); err != nil {
			runErr = err
			break
		}
	}

	report.Failures = failures.ErrorOrNil()
	report.Duration = time.Since(start)
	fields := []zap.Field{
		zap.Int("scanned", report.Scanned),
		zap.Int("uploaded", report.Uploaded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	}
	if runErr != nil {
		logger.Error(ctx, "sync cycle aborted", append(fields, zap.Error(runErr))...)
		return report, runErr
	}
	logger.Info(ctx, "sync cycle complete", fields...)
	return report, nil
}

func (j *Job) syncTarget(ctx context.Context, target Target, report *Report, failures **multierror.Error) error {
	return filepath.WalkDir(target.LocalDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || isStagingFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(target.LocalDir, p)
		if err != nil {
			return err
		}
		key := path.Join(target.Prefix, filepath.ToSlash(rel))
		report.Scanned++

		uploaded, err := j.syncFile(ctx, p, key)
		switch {
		case err == nil && uploaded:
			report.Uploaded++
			metrics.SyncFilesTotal.WithLabelValues(metrics.OutcomeUploaded).Inc()
			logger.Info(ctx, "uploaded", zap.String("path", p), zap.String("key", key))
		case err == nil:
			report.Skipped++
			metrics.SyncFilesTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		case appErr.Is(err, appErr.ObjectUploadFailed):
			report.Failed++
			metrics.SyncFilesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			*failures = multierror.Append(*failures, err)
			logger.Error(ctx, "failed to upload", zap.String("path", p), zap.Error(err))
		default:
			metrics.SyncFilesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			return err
		}
		return nil
	})
}

// syncFile uploads p to key unless the remote copy has the same md5.
func (j *Job) syncFile(ctx context.Context, p, key string) (bool, error) {
	localSum, err := fileMD5(p)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", p, err)
	}

	stat, err := j.store.StatObject(ctx, j.bucket, key)
	switch {
	case err == nil:
		if remoteSum(stat) == localSum {
			return false, nil
		}
	case errors.Is(err, storage.ErrObjectNotFound):
	case errors.Is(err, storage.ErrCredentials):
		return false, appErr.Wrapf(err, appErr.StorageCredentials, "lookup %s", key)
	default:
		return false, appErr.Wrapf(err, appErr.ObjectLookupFailed, "lookup %s", key)
	}

	opts := storage.PutOptions{
		ContentType:  contentType(p),
		UserMetadata: map[string]string{MetadataMD5: localSum},
	}
	if err := j.store.FPutObject(ctx, j.bucket, key, p, opts); err != nil {
		if errors.Is(err, storage.ErrCredentials) {
			return false, appErr.Wrapf(err, appErr.StorageCredentials, "upload %s", key)
		}
		return false, appErr.Wrapf(err, appErr.ObjectUploadFailed, "upload %s", key)
	}
	return true, nil
}

// remoteSum prefers the md5 recorded at upload; multipart ETags are not content hashes.
func remoteSum(stat storage.ObjectStat) string {
	if sum, ok := stat.Metadata(MetadataMD5); ok && sum != "" {
		return strings.ToLower(sum)
	}
	return strings.ToLower(strings.Trim(stat.ETag, `"`))
}

func fileMD5(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isStagingFile matches the hidden temp files written while stamps are being saved.
func isStagingFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}
