package logger

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type sourceStat struct {
	requests int64
	bytes    int64
}

var (
	refreshOK        int64
	refreshFailed    int64
	refreshSkipped   int64
	insightsAI       int64
	insightsFallback int64
	componentWarns   sync.Map // map[string]*int64
	componentErrors  sync.Map // map[string]*int64
	sources          sync.Map // map[string]*sourceStat
)

func bump(m *sync.Map, component string) {
	v, _ := m.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func recordWarn(component string)  { bump(&componentWarns, component) }
func recordError(component string) { bump(&componentErrors, component) }

// IncrementRefresh counts a finished refresh cycle by outcome: "ok",
// "failed" or "skipped".
func IncrementRefresh(outcome string) {
	switch outcome {
	case "ok":
		atomic.AddInt64(&refreshOK, 1)
	case "failed":
		atomic.AddInt64(&refreshFailed, 1)
	case "skipped":
		atomic.AddInt64(&refreshSkipped, 1)
	}
}

// IncrementInsight counts generated commentaries.
func IncrementInsight(fallback bool) {
	if fallback {
		atomic.AddInt64(&insightsFallback, 1)
		return
	}
	atomic.AddInt64(&insightsAI, 1)
}

// RecordSourceRequest counts one upstream response and its body size.
func RecordSourceRequest(name string, size int) {
	v, _ := sources.LoadOrStore(name, &sourceStat{})
	s := v.(*sourceStat)
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.bytes, int64(size))
}

func snapshotCounts(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

// StartReport logs a runtime report every interval until ctx is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	netStats, _ := gnet.IOCounters(false)

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}
	memMB := 0.0
	if memStats, err := mem.VirtualMemory(); err == nil {
		memMB = float64(memStats.Used) / 1024 / 1024
	}
	var bytesSent, bytesRecv uint64
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	sourceData := map[string]map[string]int64{}
	sources.Range(func(k, v any) bool {
		s := v.(*sourceStat)
		sourceData[k.(string)] = map[string]int64{
			"requests": atomic.LoadInt64(&s.requests),
			"bytes":    atomic.LoadInt64(&s.bytes),
		}
		return true
	})

	counters := map[string]int64{
		"refresh_ok":        atomic.LoadInt64(&refreshOK),
		"refresh_failed":    atomic.LoadInt64(&refreshFailed),
		"refresh_skipped":   atomic.LoadInt64(&refreshSkipped),
		"insights_ai":       atomic.LoadInt64(&insightsAI),
		"insights_fallback": atomic.LoadInt64(&insightsFallback),
	}

	fields := Fields{
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memMB),
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
		"warns":          snapshotCounts(&componentWarns),
		"errors":         snapshotCounts(&componentErrors),
		"sources":        sourceData,
	}
	for k, v := range counters {
		fields[k] = v
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(memMB)},
		{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	}

	names := make([]string, 0, len(counters))
	for k := range counters {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Count"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Counter"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(counters[name])),
		})
	}
	for name, stats := range sourceData {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("SourceRequests"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats["requests"])),
		})
	}

	publishMetrics(ctx, data)
}
