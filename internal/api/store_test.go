package api

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cryptocalc/internal/metrics"
)

func TestLogStoreKeepsNewest(t *testing.T) {
	ls := newLogStore(2)
	for _, msg := range []string{"one", "two", "three"} {
		entry := &logrus.Entry{
			Time:    time.Now(),
			Level:   logrus.InfoLevel,
			Message: msg,
			Data:    logrus.Fields{"component": "refresh", "error": errors.New("boom")},
		}
		if err := ls.Fire(entry); err != nil {
			t.Fatalf("fire: %v", err)
		}
	}

	got := ls.snapshot()
	if len(got) != 2 || got[0].Message != "two" || got[1].Message != "three" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if got[1].Component != "refresh" || got[1].Fields["error"] != "boom" {
		t.Fatalf("fields not captured: %+v", got[1])
	}
	if _, ok := got[1].Fields["component"]; ok {
		t.Fatal("component duplicated into fields")
	}

	ls.close()
	_ = ls.Fire(&logrus.Entry{Message: "after close"})
	if len(ls.snapshot()) != 2 {
		t.Fatal("closed store still recording")
	}
}

func TestMetricStoreLimit(t *testing.T) {
	ms := newMetricStore(3)
	for i := 0; i < 5; i++ {
		ms.handle(metrics.Metric{Name: "refresh_cycles", Value: i})
	}
	got := ms.snapshot()
	if len(got) != 3 || got[0].Value != 2 {
		t.Fatalf("unexpected metrics: %+v", got)
	}
}

func TestRingDefaultLimit(t *testing.T) {
	if r := newRing[int](0); r.limit != 200 {
		t.Fatalf("default limit = %d", r.limit)
	}
}
