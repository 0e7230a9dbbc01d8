package metrics

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// ProcessReporter samples this process's RSS and CPU percentage on a slow
// timer and pushes them into Metrics' process gauges. Grounded on this
// lineage's gopsutil usage (internal/render/chrome's gopsutil/v4/mem
// reads) extended from a one-shot read to a periodic background sampler,
// in the same ticker-loop shape as internal/cachedaemon's scheduler.
type ProcessReporter struct {
	m        *Metrics
	proc     *process.Process
	interval time.Duration
	logger   *zap.Logger
}

// NewProcessReporter builds a reporter for the current OS process.
func NewProcessReporter(m *Metrics, interval time.Duration, logger *zap.Logger) (*ProcessReporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &ProcessReporter{m: m, proc: proc, interval: interval, logger: logger}, nil
}

// Run samples on every tick until ctx is cancelled. Intended to run in its
// own goroutine for the lifetime of the process.
func (r *ProcessReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sample()
		case <-ctx.Done():
			return
		}
	}
}

func (r *ProcessReporter) sample() {
	memInfo, err := r.proc.MemoryInfo()
	if err != nil {
		r.logger.Warn("process metrics: memory info read failed", zap.Error(err))
		return
	}
	cpuPct, err := r.proc.CPUPercent()
	if err != nil {
		r.logger.Warn("process metrics: cpu percent read failed", zap.Error(err))
		return
	}
	r.m.setProcessStats(memInfo.RSS, cpuPct)
}
