package partition

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	// KeyLayout is the calendar form of a partition key.
	KeyLayout = "2006-01-02"

	dirPrefix   = "date="
	logFileName = "alerts.jsonl"
)

// Layout maps partition keys to filesystem locations.
type Layout struct {
	AlertsDir string
	ImagesDir string
}

// ValidateKey checks that key is a YYYY-MM-DD calendar date.
func ValidateKey(key string) error {
	if len(key) != len(KeyLayout) {
		return fmt.Errorf("partition key %q is not YYYY-MM-DD", key)
	}
	if _, err := time.Parse(KeyLayout, key); err != nil {
		return fmt.Errorf("partition key %q is not a date: %w", key, err)
	}
	return nil
}

// DirName is the directory name of a partition, e.g. "date=2020-05-31".
func DirName(key string) string {
	return dirPrefix + key
}

// KeyFromDirName reverses DirName. ok is false for unrelated directories.
func KeyFromDirName(name string) (key string, ok bool) {
	if len(name) <= len(dirPrefix) || name[:len(dirPrefix)] != dirPrefix {
		return "", false
	}
	key = name[len(dirPrefix):]
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

// LogPath is the append-only alert log of a partition.
func (l Layout) LogPath(key string) string {
	return filepath.Join(l.AlertsDir, DirName(key), logFileName)
}

// ImageDir is where derived images of a partition are stored.
func (l Layout) ImageDir(key string) string {
	return filepath.Join(l.ImagesDir, key)
}
