package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "app.log")

	log := Logger()
	if err := log.Configure("debug", "text", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	log.WithComponent("refresh").Info("cycle finished")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "cycle finished") || !strings.Contains(string(data), "component=refresh") {
		t.Fatalf("unexpected log output: %s", data)
	}

	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestReportCounters(t *testing.T) {
	before := atomic.LoadInt64(&refreshFailed)
	IncrementRefresh("failed")
	IncrementRefresh("unknown")
	if got := atomic.LoadInt64(&refreshFailed); got != before+1 {
		t.Fatalf("refresh failed counter = %d, want %d", got, before+1)
	}

	IncrementInsight(true)
	if atomic.LoadInt64(&insightsFallback) == 0 {
		t.Fatal("fallback insight not counted")
	}

	RecordSourceRequest("coingecko_test", 128)
	v, ok := sources.Load("coingecko_test")
	if !ok {
		t.Fatal("source not recorded")
	}
	if s := v.(*sourceStat); atomic.LoadInt64(&s.bytes) != 128 {
		t.Fatalf("unexpected bytes: %d", s.bytes)
	}

	Logger().WithComponent("gemini_test").Warn("boom")
	if snapshotCounts(&componentWarns)["gemini_test"] != 1 {
		t.Fatalf("warn not counted: %v", snapshotCounts(&componentWarns))
	}
}
