package supervisor

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Watcher passively observes a worker PID. Nothing else.
type Watcher struct {
	pid       int32
	startTime time.Time
}

// NewWatcher creates a watcher for a worker PID.
func NewWatcher(pid int) *Watcher {
	return &Watcher{
		pid:       int32(pid),
		startTime: time.Now(),
	}
}

// Alive checks whether the worker process still exists.
func (w *Watcher) Alive() bool {
	exists, err := process.PidExists(w.pid)
	return err == nil && exists
}

// Stats is a point-in-time snapshot of the worker process.
type Stats struct {
	RSSBytes   uint64
	CPUPercent float64
	Uptime     time.Duration
}

// Snapshot collects current process stats, best effort.
func (w *Watcher) Snapshot() (*Stats, error) {
	proc, err := process.NewProcess(w.pid)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Uptime: time.Since(w.startTime)}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats, nil
}

// Duration returns how long we have been observing.
func (w *Watcher) Duration() time.Duration {
	return time.Since(w.startTime)
}
