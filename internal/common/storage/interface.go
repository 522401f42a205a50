package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrObjectNotFound is returned by StatObject when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrCredentials is returned when the store rejects the configured credentials.
	ErrCredentials = errors.New("object storage credentials rejected")
)

// ObjectStorage defines the object storage operations used by the sync and catalog jobs.
// Implementations classify failures with ErrObjectNotFound and ErrCredentials.
type ObjectStorage interface {
	// StatObject returns ETag and user metadata for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// FPutObject uploads a local file, overwriting any existing object.
	FPutObject(ctx context.Context, bucket, objectKey, filePath string, opts PutOptions) error

	// PutObject uploads size bytes from reader.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, size int64, opts PutOptions) error

	// ListObjects lists keys under prefix recursively. The channel is closed when done.
	ListObjects(ctx context.Context, bucket, prefix string) <-chan ObjectInfo
}

// PutOptions carries content type and user metadata for uploads.
type PutOptions struct {
	ContentType  string
	UserMetadata map[string]string
}

// ObjectStat contains object metadata used for change detection.
type ObjectStat struct {
	SizeBytes    int64
	ETag         string
	ContentType  string
	UserMetadata map[string]string
}

// Metadata looks up a user metadata value case-insensitively.
func (s ObjectStat) Metadata(key string) (string, bool) {
	for k, v := range s.UserMetadata {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// ObjectInfo is one listing entry. Err is set when listing failed.
type ObjectInfo struct {
	Key       string
	SizeBytes int64
	Err       error
}
