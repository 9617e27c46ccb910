package limits

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/monitoring"
)

// Thresholds define the observation levels at which the monitor warns.
// The session registry, not this monitor, is the admission gate; warnings
// here give operators lead time before PTY or fd allocation starts failing.
type Thresholds struct {
	MaxMemoryMB   float64
	MaxGoroutines int
	MaxOpenFDs    int
}

// DefaultThresholds returns sensible defaults for small hosts
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxMemoryMB:   512,
		MaxGoroutines: 1000,
		MaxOpenFDs:    1000,
	}
}

// Monitor periodically observes process-level resource usage, feeding the
// metrics gauges and logging when usage approaches the thresholds
type Monitor struct {
	thresholds Thresholds
	metrics    *monitoring.Collector

	warnAt float64

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a resource monitor
func NewMonitor(thresholds Thresholds, metrics *monitoring.Collector) *Monitor {
	return &Monitor{
		thresholds: thresholds,
		metrics:    metrics,
		warnAt:     0.8,
		stopChan:   make(chan struct{}),
	}
}

// Start begins periodic observation until Stop is called
func (m *Monitor) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.observe()
			case <-m.stopChan:
				return
			}
		}
	}()

	logrus.WithField("interval", interval).Info("Started resource monitoring")
}

// Stop halts the monitor. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

func (m *Monitor) observe() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	memoryMB := float64(mem.Alloc) / 1024 / 1024

	goroutines := runtime.NumGoroutine()
	openFDs := countOpenFDs()

	m.metrics.ObserveResources(goroutines, memoryMB, openFDs)

	if memoryMB > m.thresholds.MaxMemoryMB*m.warnAt {
		logrus.WithFields(logrus.Fields{
			"memory_mb":     memoryMB,
			"max_memory_mb": m.thresholds.MaxMemoryMB,
		}).Warn("High memory usage")
	}

	if float64(goroutines) > float64(m.thresholds.MaxGoroutines)*m.warnAt {
		logrus.WithFields(logrus.Fields{
			"goroutines":     goroutines,
			"max_goroutines": m.thresholds.MaxGoroutines,
		}).Warn("High goroutine count")
	}

	if openFDs > 0 && float64(openFDs) > float64(m.thresholds.MaxOpenFDs)*m.warnAt {
		logrus.WithFields(logrus.Fields{
			"open_fds": openFDs,
			"max_fds":  m.thresholds.MaxOpenFDs,
		}).Warn("High file descriptor usage")
	}
}

// countOpenFDs counts this process's open descriptors. Returns 0 where
// /proc is unavailable.
func countOpenFDs() int {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return 0
	}
	return len(entries)
}
