package replay

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"ztfalerts/internal/alert"
	"ztfalerts/internal/common/mq"
	"ztfalerts/internal/partition"
	"ztfalerts/pkg/utils/contextkey"
	"ztfalerts/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultBatchSize = 100
	maxLineBytes     = 16 << 20

	// HeaderReplayOf marks a republished alert with its source partition.
	HeaderReplayOf = "x-replay-partition"
)

// Report summarizes one replay.
type Report struct {
	Lines     int
	Published int
	Skipped   int
}

// Replayer republishes the alerts of a partition log to a topic.
// Consumers will see the alerts again; duplicates are expected.
type Replayer struct {
	producer  mq.Producer
	layout    partition.Layout
	batchSize int
}

func NewReplayer(producer mq.Producer, layout partition.Layout, batchSize int) *Replayer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Replayer{producer: producer, layout: layout, batchSize: batchSize}
}

// Run publishes every well-formed line of the partition key to topic in batches.
// Lines that are not JSON objects are skipped.
func (r *Replayer) Run(ctx context.Context, key, topic string) (Report, error) {
	var report Report
	if err := partition.ValidateKey(key); err != nil {
		return report, err
	}
	if topic == "" {
		return report, fmt.Errorf("topic is required")
	}
	ctx = context.WithValue(ctx, contextkey.Partition, key)
	ctx = context.WithValue(ctx, contextkey.Topic, topic)

	f, err := os.Open(r.layout.LogPath(key))
	if err != nil {
		return report, fmt.Errorf("open partition log: %w", err)
	}
	defer f.Close()

	batch := make([]*mq.Message, 0, r.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.producer.PublishBatch(ctx, topic, batch); err != nil {
			return fmt.Errorf("publish batch: %w", err)
		}
		report.Published += len(batch)
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		report.Lines++
		line := bytes.TrimSpace(sc.Bytes())
		rec, err := alert.Parse(line)
		if err != nil {
			report.Skipped++
			logger.Warn(ctx, "skipping malformed line", zap.Int("line", report.Lines), zap.Error(err))
			continue
		}
		msg := mq.NewMessage(append([]byte(nil), line...))
		msg.ID = rec.ObjectID()
		msg.SetHeader(HeaderReplayOf, key)
		batch = append(batch, msg)
		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("scan partition log: %w", err)
	}
	if err := flush(); err != nil {
		return report, err
	}

	logger.Info(ctx, "replay complete", zap.Int("lines", report.Lines), zap.Int("published", report.Published), zap.Int("skipped", report.Skipped))
	return report, nil
}
