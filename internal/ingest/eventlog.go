package ingest

import (
	"context"
	stderrors "errors"
	"os"

	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

// EventLog writes one timestamped line per event to an event file and one per
// failure to an error file. Every line is mirrored to the process logger.
type EventLog struct {
	events *zap.Logger
	errors *zap.Logger
	files  []*os.File
}

// OpenEventLog opens (appending) the event and error files, creating parent directories.
func OpenEventLog(eventPath, errorPath string) (*EventLog, error) {
	events, eventFile, err := logger.NewFileLogger(eventPath)
	if err != nil {
		return nil, err
	}
	errs, errorFile, err := logger.NewFileLogger(errorPath)
	if err != nil {
		_ = eventFile.Close()
		return nil, err
	}
	return &EventLog{events: events, errors: errs, files: []*os.File{eventFile, errorFile}}, nil
}

// Event records a normal occurrence.
func (l *EventLog) Event(ctx context.Context, msg string, fields ...zap.Field) {
	l.events.Info(msg, fields...)
	logger.Info(ctx, msg, fields...)
}

// Error records a failure.
func (l *EventLog) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.errors.Error(msg, fields...)
	logger.Error(ctx, msg, fields...)
}

// Close flushes and closes both files.
func (l *EventLog) Close() error {
	_ = l.events.Sync()
	_ = l.errors.Sync()
	var errs []error
	for _, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
