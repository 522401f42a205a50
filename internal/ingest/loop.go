package ingest

import (
	"context"
	"time"

	"ztfalerts/internal/alert"
	"ztfalerts/internal/common/metrics"
	"ztfalerts/internal/common/mq"
	"ztfalerts/internal/partition"
	appErr "ztfalerts/pkg/errors"
	"ztfalerts/pkg/utils/contextkey"

	"go.uber.org/zap"
)

const (
	defaultPollTimeout = 1800 * time.Second
	defaultErrorPause  = 100 * time.Millisecond
)

// StampFetcher saves the derived images of one object into dir.
type StampFetcher interface {
	FetchAndSave(ctx context.Context, objectID, dir string) ([]string, error)
}

// Options configures one ingestion loop.
type Options struct {
	Topic       string
	PollTimeout time.Duration
	// ErrorPause is the wait after a broker error before polling again.
	ErrorPause time.Duration
}

// Result describes what HandlePayload did with one alert.
type Result struct {
	ObjectID     string
	PartitionKey string
	LogPath      string
	StampPaths   []string
	// FieldErrs holds per-field timestamp conversion failures.
	FieldErrs []error
	// StampErr is set when the stamp fetch failed; the alert is still persisted.
	StampErr error
}

// Loop consumes one topic and persists every alert it receives.
type Loop struct {
	poller  mq.Poller
	writer  *partition.Writer
	fetcher StampFetcher
	log     *EventLog
	opts    Options
}

func NewLoop(poller mq.Poller, writer *partition.Writer, fetcher StampFetcher, log *EventLog, opts Options) *Loop {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.ErrorPause <= 0 {
		opts.ErrorPause = defaultErrorPause
	}
	return &Loop{poller: poller, writer: writer, fetcher: fetcher, log: log, opts: opts}
}

// Topic returns the topic this loop consumes.
func (l *Loop) Topic() string {
	return l.opts.Topic
}

// Run polls until ctx is cancelled. A message already received is fully
// handled and committed before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	ctx = context.WithValue(ctx, contextkey.Topic, l.opts.Topic)
	l.log.Event(ctx, "consumer started", zap.Duration("poll_timeout", l.opts.PollTimeout))
	defer l.log.Event(context.WithoutCancel(ctx), "consumer stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, err := l.poller.Poll(ctx, l.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.PollsTotal.WithLabelValues(l.opts.Topic, "error").Inc()
			l.log.Error(ctx, "broker error", zap.Error(appErr.Wrap(err, appErr.BrokerError)))
			if pauseErr := pause(ctx, l.opts.ErrorPause); pauseErr != nil {
				return nil
			}
			continue
		}
		if msg == nil {
			metrics.PollsTotal.WithLabelValues(l.opts.Topic, "timeout").Inc()
			l.log.Event(ctx, "poll timeout - no new messages")
			continue
		}
		metrics.PollsTotal.WithLabelValues(l.opts.Topic, "message").Inc()

		handleCtx := context.WithoutCancel(ctx)
		_, _ = l.HandlePayload(handleCtx, msg.Body)
		if err := l.poller.Commit(handleCtx, msg); err != nil {
			l.log.Error(ctx, "commit offset failed",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// HandlePayload parses, normalizes and persists one alert, then fetches its stamps.
// The returned error is non-nil only when the alert was dropped.
func (l *Loop) HandlePayload(ctx context.Context, payload []byte) (Result, error) {
	var res Result

	rec, err := alert.Parse(payload)
	if err != nil {
		metrics.AlertsTotal.WithLabelValues(l.opts.Topic, metrics.OutcomeMalformed).Inc()
		l.log.Error(ctx, "payload parse error", zap.Int("bytes", len(payload)), zap.Error(err))
		return res, err
	}
	res.ObjectID = rec.ObjectID()

	for _, field := range alert.Normalize(rec) {
		switch field.Status {
		case alert.FieldConverted:
			l.log.Event(ctx, "converted detection time",
				zap.String("source", field.Pair.Source),
				zap.String("target", field.Pair.Target),
			)
		case alert.FieldFailed:
			res.FieldErrs = append(res.FieldErrs, field.Err)
			l.log.Error(ctx, "failed to convert detection time",
				zap.String("object_id", res.ObjectID),
				zap.String("source", field.Pair.Source),
				zap.Error(field.Err),
			)
		}
	}

	res.PartitionKey = rec.PartitionKey()
	if res.PartitionKey == "" {
		metrics.AlertsTotal.WithLabelValues(l.opts.Topic, metrics.OutcomeDropped).Inc()
		err := appErr.Newf(appErr.PartitionKeyMissing, "missing utc_latest_detection for %s", displayID(res.ObjectID))
		l.log.Error(ctx, "alert dropped", zap.String("object_id", res.ObjectID), zap.Error(err))
		return res, err
	}
	ctx = context.WithValue(ctx, contextkey.Partition, res.PartitionKey)

	res.LogPath, err = l.writer.Append(ctx, res.PartitionKey, rec)
	if err != nil {
		metrics.AlertsTotal.WithLabelValues(l.opts.Topic, metrics.OutcomeFailed).Inc()
		l.log.Error(ctx, "alert dropped", zap.String("object_id", res.ObjectID), zap.Error(err))
		return res, err
	}

	res.StampPaths, res.StampErr = l.fetchStamps(ctx, res.ObjectID, res.PartitionKey)
	if res.StampErr != nil {
		l.log.Error(ctx, "stamp fetch failed", zap.String("object_id", displayID(res.ObjectID)), zap.Error(res.StampErr))
	}

	metrics.AlertsTotal.WithLabelValues(l.opts.Topic, metrics.OutcomeProcessed).Inc()
	l.log.Event(ctx, "processed alert", zap.String("object_id", displayID(res.ObjectID)))
	return res, nil
}

func (l *Loop) fetchStamps(ctx context.Context, objectID, key string) ([]string, error) {
	if objectID == "" {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithMessage("alert has no objectId, stamp fetch skipped")
	}
	if l.fetcher == nil {
		return nil, nil
	}
	return l.fetcher.FetchAndSave(ctx, objectID, l.writer.Layout().ImageDir(key))
}

func displayID(objectID string) string {
	if objectID == "" {
		return "unknown"
	}
	return objectID
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
