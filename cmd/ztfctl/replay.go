package main

import (
	"fmt"

	"ztfalerts/internal/common/mq"
	"ztfalerts/internal/replay"

	"github.com/spf13/cobra"
)

var (
	replayDate      string
	replayTopic     string
	replayBatchSize int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Publish the alerts of one partition log to a Kafka topic",
	Args:  cobra.NoArgs,
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayDate, "date", "", "Partition date, YYYY-MM-DD")
	replayCmd.Flags().StringVar(&replayTopic, "topic", "", "Destination topic")
	replayCmd.Flags().IntVar(&replayBatchSize, "batch-size", 100, "Messages per produce request")
	_ = replayCmd.MarkFlagRequired("date")
	_ = replayCmd.MarkFlagRequired("topic")
}

func runReplay(cmd *cobra.Command, args []string) error {
	producer, err := mq.NewKafkaProducer(appCfg.Kafka)
	if err != nil {
		return fmt.Errorf("init kafka producer failed: %w", err)
	}
	defer func() {
		_ = producer.Close()
	}()

	report, err := replay.NewReplayer(producer, layout(), replayBatchSize).Run(cmd.Context(), replayDate, replayTopic)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "lines=%d published=%d skipped=%d\n", report.Lines, report.Published, report.Skipped)
	return nil
}
