package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	ObserveRefresh("timer", "ok")
	ObserveFetch(150 * time.Millisecond)
	ObserveInsight("fallback")
	AddExcluded(2)
	AddExcluded(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`cryptocalc_refresh_cycles_total{outcome="ok",trigger="timer"} 1`,
		`cryptocalc_price_fetch_duration_seconds_count 1`,
		`cryptocalc_insights_total{source="fallback"} 1`,
		`cryptocalc_assets_excluded_total 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestObserveEmitsToHandlers(t *testing.T) {
	resetMetricHandlers()

	events := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { events <- m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	ObserveRefresh("retry", "failed")

	select {
	case m := <-events:
		if m.Component != "refresh" || m.Fields["trigger"] != "retry" || m.Fields["outcome"] != "failed" {
			t.Fatalf("unexpected metric: %+v", m)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("metric handler not invoked")
	}
}
