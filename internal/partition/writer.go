package partition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ztfalerts/internal/alert"
	appErr "ztfalerts/pkg/errors"
)

// Writer appends alert records to their partition log.
// Appends are not deduplicated; a redelivered alert produces a second line.
type Writer struct {
	layout Layout

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewWriter(layout Layout) *Writer {
	return &Writer{layout: layout, locks: make(map[string]*sync.Mutex)}
}

// Layout returns the layout the writer appends into.
func (w *Writer) Layout() Layout {
	return w.layout
}

// Append writes rec as one JSON line to the log of partition key and returns the log path.
func (w *Writer) Append(ctx context.Context, key string, rec alert.Record) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", appErr.Wrap(err, appErr.PartitionKeyMissing)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	line, err := rec.Marshal()
	if err != nil {
		return "", appErr.Wrap(err, appErr.PartitionWriteFailed)
	}
	line = append(line, '\n')

	path := w.layout.LogPath(key)
	lock := w.partitionLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := appendLine(path, line); err != nil {
		return "", appErr.Wrapf(err, appErr.PartitionWriteFailed, "append to %s", DirName(key))
	}
	return path, nil
}

func (w *Writer) partitionLock(key string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[key] = lock
	}
	return lock
}

func appendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open partition log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write partition log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync partition log: %w", err)
	}
	return f.Close()
}
