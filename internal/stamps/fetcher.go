package stamps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ztfalerts/internal/common/metrics"
	appErr "ztfalerts/pkg/errors"
	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

// ErrIncompleteStamps is returned when the source serves fewer than all kinds.
var ErrIncompleteStamps = errors.New("fewer than three stamps returned")

const (
	defaultMaxAttempts = 1
	defaultBaseBackoff = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// Options configures fetch retries.
type Options struct {
	// MaxAttempts is the total number of tries per object. 1 disables retries.
	// Only retryable failures are tried again; an incomplete stamp set is final.
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	MaxBackoff  time.Duration `yaml:"maxBackoff"`
}

// Fetcher downloads an object's stamps and stores them as PNG files.
type Fetcher struct {
	source Source
	opts   Options
}

func NewFetcher(source Source, opts Options) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	return &Fetcher{source: source, opts: opts}
}

// FetchAndSave writes <dir>/<objectID>_<kind>.png for every kind and returns the paths.
// Either all three files are written or none are.
func (f *Fetcher) FetchAndSave(ctx context.Context, objectID, dir string) ([]string, error) {
	if objectID == "" {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithMessage("objectId is required to fetch stamps")
	}

	var stamps []Stamp
	var err error
	for attempt := 0; attempt < f.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt-1, f.opts.BaseBackoff, f.opts.MaxBackoff)
			logger.Warn(ctx, "retrying stamp fetch",
				zap.String("object_id", objectID),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)
			if waitErr := sleep(ctx, wait); waitErr != nil {
				return nil, waitErr
			}
		}
		stamps, err = f.fetch(ctx, objectID)
		if err == nil || ctx.Err() != nil || !appErr.IsRetryable(err) {
			break
		}
	}
	if err != nil {
		metrics.StampFetchesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	}

	paths, err := save(objectID, dir, stamps)
	if err != nil {
		metrics.StampFetchesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, appErr.Wrapf(err, appErr.StampSaveFailed, "save stamps for %s", objectID)
	}
	metrics.StampFetchesTotal.WithLabelValues(metrics.OutcomeSaved).Inc()
	return paths, nil
}

func (f *Fetcher) fetch(ctx context.Context, objectID string) ([]Stamp, error) {
	stamps, err := f.source.Stamps(ctx, objectID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StampFetchFailed, "fetch stamps for %s", objectID)
	}
	byKind := make(map[Kind]Stamp, len(stamps))
	for _, s := range stamps {
		if len(s.Data) > 0 {
			byKind[s.Kind] = s
		}
	}
	ordered := make([]Stamp, 0, len(Kinds))
	for _, kind := range Kinds {
		if s, ok := byKind[kind]; ok {
			ordered = append(ordered, s)
		}
	}
	if len(ordered) < len(Kinds) {
		return nil, appErr.Wrapf(ErrIncompleteStamps, appErr.StampsIncomplete,
			"%d of %d stamps for %s", len(ordered), len(Kinds), objectID)
	}
	return ordered, nil
}

// save stages every stamp as a temp file in dir, then renames them into place.
func save(objectID, dir string, stamps []Stamp) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	temps := make([]string, 0, len(stamps))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}
	for _, s := range stamps {
		tmp, err := writeTemp(dir, FileName(objectID, s.Kind), s.Data)
		if err != nil {
			cleanup()
			return nil, err
		}
		temps = append(temps, tmp)
	}

	paths := make([]string, 0, len(stamps))
	for i, s := range stamps {
		final := filepath.Join(dir, FileName(objectID, s.Kind))
		if err := os.Rename(temps[i], final); err != nil {
			cleanup()
			return nil, fmt.Errorf("rename %s: %w", final, err)
		}
		paths = append(paths, final)
	}
	return paths, nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return f.Name(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
