package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ztfalerts/pkg/utils/contextkey"

	"go.uber.org/zap"
)

func TestGlobalFuncsBeforeInit(t *testing.T) {
	saved := globalLogger
	globalLogger = nil
	defer func() { globalLogger = saved }()

	Info(context.Background(), "dropped")
	Error(context.Background(), "dropped", zap.String("k", "v"))
	if err := Sync(); err != nil {
		t.Fatalf("Sync() before Init = %v", err)
	}
}

func TestNewFileLogger_AppendsPlainLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.log")
	log, file, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	log.Info("processed alert", zap.String("object_id", "ZTF21abc"))
	_ = log.Sync()
	_ = file.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"INFO", "processed alert", "ZTF21abc"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("expected one line, got %q", line)
	}
}

func TestInit_WritesContextFields(t *testing.T) {
	saved := globalLogger
	defer func() { globalLogger = saved }()

	path := filepath.Join(t.TempDir(), "app.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := context.WithValue(context.Background(), contextkey.Topic, "ztf_alerts")
	ctx = context.WithValue(ctx, contextkey.Partition, "2020-05-31")
	Debug(ctx, "converted detection time")
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{`"topic":"ztf_alerts"`, `"partition":"2020-05-31"`, `"msg":"converted detection time"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log %s missing %s", data, want)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
