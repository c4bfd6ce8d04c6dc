package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("jobwatch/perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var rssGauge, _ = meter.Int64Gauge("rss_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// PerfStats is one sample of process statistics.
type PerfStats struct {
	CPUPercent  float64
	AllocatedMB int64
	RSSMB       int64
	Goroutines  int64
}

// SamplePerfStats reads the current process statistics. Values gopsutil cannot read
// on this platform are left at zero.
func SamplePerfStats(ctx context.Context) PerfStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := PerfStats{
		AllocatedMB: int64(memStats.Alloc / 1_000_000),
		Goroutines:  int64(runtime.NumGoroutine()),
	}

	// 0 compares against the previous call instead of blocking
	cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
	if err == nil && len(cpuUsage) > 0 {
		stats.CPUPercent = cpuUsage[0]
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err == nil {
		mem, err := proc.MemoryInfoWithContext(ctx)
		if err == nil {
			stats.RSSMB = int64(mem.RSS / 1_000_000)
		}
	}

	return stats
}

// InstrumentPerfStats records process statistics every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := SamplePerfStats(ctx)
				cpuGauge.Record(ctx, stats.CPUPercent)
				memoryGauge.Record(ctx, stats.AllocatedMB)
				rssGauge.Record(ctx, stats.RSSMB)
				goroutineGauge.Record(ctx, stats.Goroutines)
				slog.DebugContext(
					ctx, "perf stats",
					"cpu", stats.CPUPercent,
					"allocated_mb", stats.AllocatedMB,
					"rss_mb", stats.RSSMB,
					"goroutines", stats.Goroutines,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
