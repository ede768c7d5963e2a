package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is a point-in-time view of host and process load.
type Snapshot struct {
	Taken         time.Time
	LogicalCPUs   int
	HostCPU       float64 // percent over the sampling interval
	HostMemUsed   uint64
	HostMemTotal  uint64
	ProcessCPU    float64 // percent since process start
	ProcessRSS    uint64
	NumGoroutines int
}

// TakeSnapshot samples host CPU over interval. Fields that cannot be read on
// this platform stay zero.
func TakeSnapshot(ctx context.Context, interval time.Duration) (Snapshot, error) {
	s := Snapshot{Taken: time.Now(), NumGoroutines: runtime.NumGoroutine()}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.LogicalCPUs = n
	}
	if pct, err := cpu.PercentWithContext(ctx, interval, false); err == nil && len(pct) > 0 {
		s.HostCPU = pct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("virtual memory: %w", err)
	}
	s.HostMemUsed = vm.Used
	s.HostMemTotal = vm.Total

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("process %d: %w", os.Getpid(), err)
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		s.ProcessCPU = pct
	}
	if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
		s.ProcessRSS = mi.RSS
	}
	return s, nil
}

// ExportStats summarises one finished export.
type ExportStats struct {
	Build    string
	Artifact string
	Quality  string
	Frames   int
	Recorded time.Duration
	Convert  time.Duration
	Total    time.Duration
	Host     Snapshot
}

func (e ExportStats) EffectiveFPS() float64 {
	if e.Recorded <= 0 {
		return 0
	}
	return float64(e.Frames) / e.Recorded.Seconds()
}

// Report formats the console performance report.
func (e ExportStats) Report() string {
	var b strings.Builder
	b.WriteString("--- [PERFORMANCE REPORT] ---\n")
	fmt.Fprintf(&b, "Build: %s\n", e.Build)
	fmt.Fprintf(&b, "Artifact: %s\n", filepath.Base(e.Artifact))
	fmt.Fprintf(&b, "Quality: %s\n", e.Quality)
	fmt.Fprintf(&b, "Total Time: %.2fs\n", e.Total.Seconds())
	fmt.Fprintf(&b, "Recording: %.2fs\n", e.Recorded.Seconds())
	fmt.Fprintf(&b, "Conversion: %.2fs\n", e.Convert.Seconds())
	fmt.Fprintf(&b, "Effective FPS: %.2f\n", e.EffectiveFPS())
	fmt.Fprintf(&b, "Host CPU: %.1f%% of %d cores\n", e.Host.HostCPU, e.Host.LogicalCPUs)
	fmt.Fprintf(&b, "Host Memory: %s / %s\n", formatBytes(e.Host.HostMemUsed), formatBytes(e.Host.HostMemTotal))
	fmt.Fprintf(&b, "Process: CPU %.1f%% | RSS %s | goroutines %d\n", e.Host.ProcessCPU, formatBytes(e.Host.ProcessRSS), e.Host.NumGoroutines)
	b.WriteString("----------------------------\n")
	return b.String()
}

// AppendBenchmarkLog appends a one-line summary to path.
func AppendBenchmarkLog(path string, e ExportStats) error {
	line := fmt.Sprintf("[%s] Build: %s | Artifact: %s | Quality: %s | Frames: %d | Total: %.2fs | Record: %.2fs | Convert: %.2fs | FPS: %.2f\n",
		e.Host.Taken.Format("2006-01-02 15:04:05"),
		e.Build,
		filepath.Base(e.Artifact),
		e.Quality,
		e.Frames,
		e.Total.Seconds(),
		e.Recorded.Seconds(),
		e.Convert.Seconds(),
		e.EffectiveFPS(),
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
