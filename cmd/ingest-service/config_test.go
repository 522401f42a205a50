package main

import (
	"path/filepath"
	"testing"
	"time"

	"ztfalerts/internal/testutil"
)

func TestLoadAppConfig_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "ingest.yaml", []byte(`
kafka:
  brokers: ["localhost:9092"]
consumers:
  - topic: ztf_20200531_programid1
  - topic: ztf_20200531_programid2
    groupId: custom
    eventLog: /var/log/ztf/p2.log
`))

	cfg, err := loadAppConfig(path)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, cfg.Ingest.PollTimeout, 1800*time.Second)
	testutil.AssertEqual(t, cfg.Ingest.ErrorPause, 100*time.Millisecond)
	testutil.AssertEqual(t, cfg.Storage.AlertsDir, defaultAlertsDir)

	first := cfg.Consumers[0]
	testutil.AssertEqual(t, first.GroupID, "ztf-ingest-ztf_20200531_programid1")
	testutil.AssertEqual(t, first.EventLog, filepath.Join("logs", "ztf_20200531_programid1_events.log"))
	testutil.AssertEqual(t, first.ErrorLog, filepath.Join("logs", "ztf_20200531_programid1_errors.log"))

	second := cfg.Consumers[1]
	testutil.AssertEqual(t, second.GroupID, "custom")
	testutil.AssertEqual(t, second.EventLog, "/var/log/ztf/p2.log")
}

func TestLoadAppConfig_Validation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		yaml string
	}{
		{"no brokers", "consumers:\n  - topic: a\n"},
		{"no consumers", "kafka:\n  brokers: [\"k:9092\"]\n"},
		{"empty topic", "kafka:\n  brokers: [\"k:9092\"]\nconsumers:\n  - groupId: g\n"},
		{"duplicate topic", "kafka:\n  brokers: [\"k:9092\"]\nconsumers:\n  - topic: a\n  - topic: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.name+".yaml", []byte(tt.yaml))
			_, err := loadAppConfig(path)
			testutil.AssertNotNil(t, err)
		})
	}

	_, err := loadAppConfig(filepath.Join(dir, "missing.yaml"))
	testutil.AssertNotNil(t, err)
}
