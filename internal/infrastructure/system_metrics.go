package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime gauges. Large workbooks are parsed in
// memory, so heap size is the number operators watch.
type RuntimeMetrics struct {
	goRoutines    metric.Int64Gauge
	heapAlloc     metric.Int64Gauge
	heapSystem    metric.Int64Gauge
	gcCount       metric.Int64Gauge
	processUptime metric.Float64Gauge
}

// NewRuntimeMetrics creates the runtime gauges on meter.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"system_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	heapSystem, err := meter.Int64Gauge(
		"system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"system_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goRoutines:    goRoutines,
		heapAlloc:     heapAlloc,
		heapSystem:    heapSystem,
		gcCount:       gcCount,
		processUptime: processUptime,
	}, nil
}

// RuntimeStats is a snapshot of the runtime gauges.
type RuntimeStats struct {
	GoRoutines    int64     `json:"goroutines"`
	HeapAlloc     int64     `json:"heap_alloc_bytes"`
	HeapSystem    int64     `json:"heap_system_bytes"`
	GCCount       uint32    `json:"gc_count"`
	ProcessUptime float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// Collect reads the runtime statistics and records them.
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := RuntimeStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapAlloc:     int64(memStats.HeapAlloc),
		HeapSystem:    int64(memStats.HeapSys),
		GCCount:       memStats.NumGC,
		ProcessUptime: time.Since(startTime).Seconds(),
		Timestamp:     time.Now(),
	}

	rm.goRoutines.Record(ctx, stats.GoRoutines)
	rm.heapAlloc.Record(ctx, stats.HeapAlloc)
	rm.heapSystem.Record(ctx, stats.HeapSystem)
	rm.gcCount.Record(ctx, int64(stats.GCCount))
	rm.processUptime.Record(ctx, stats.ProcessUptime)

	return stats
}

// RuntimeCollector samples RuntimeMetrics on an interval.
type RuntimeCollector struct {
	metrics   *RuntimeMetrics
	startTime time.Time
	interval  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRuntimeCollector creates a collector sampling every interval.
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &RuntimeCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start collects until ctx is done or Stop is called. It blocks.
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.metrics.Collect(ctx, c.startTime)

	for {
		select {
		case <-ticker.C:
			c.metrics.Collect(ctx, c.startTime)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection. It is safe to call more than once.
func (c *RuntimeCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Snapshot collects and returns the current statistics.
func (c *RuntimeCollector) Snapshot(ctx context.Context) RuntimeStats {
	return c.metrics.Collect(ctx, c.startTime)
}
