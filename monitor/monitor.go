package monitor

import (
	"context"
	"time"

	"github.com/rhansen/go-kairos/kairos"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peerd-dev/peerd/sysinfo"
)

// Collector produces a system resource sample.
type Collector interface {
	Collect() (sysinfo.Sample, error)
}

// Appender retains samples and keeps the retention bounded.
type Appender interface {
	Put(sample sysinfo.Sample) error
	Trim(keep int) error
}

// Monitor periodically collects system resource information, logs a summary
// and appends the sample to the journal. A failed collection or store is
// reported and skipped, the loop keeps going.
type Monitor struct {
	ctx   context.Context
	wait  func() error
	timer *kairos.Timer

	collector Collector
	journal   Appender
	interval  time.Duration
	retention int
}

func NewMonitor(collector Collector, journal Appender, interval time.Duration, retention int) *Monitor {
	return &Monitor{
		timer:     kairos.NewStoppedTimer(),
		collector: collector,
		journal:   journal,
		interval:  interval,
		retention: retention,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	g, gc := errgroup.WithContext(ctx)
	m.ctx = gc
	m.wait = g.Wait
	m.timer.Reset(m.interval)

	g.Go(m.handleEvents)
}

func (m *Monitor) Shutdown() {
	if err := m.wait(); err != nil {
		zap.S().Warnf("Failed to shutdown Monitor: %v", err)
	}
	zap.S().Info("Monitor shutdown successfully")
}

func (m *Monitor) handleEvents() error {
	for {
		select {
		case <-m.ctx.Done():
			return nil
		case <-m.timer.C:
			m.collectAndStore()
			m.timer.Reset(m.interval)
		}
	}
}

func (m *Monitor) collectAndStore() {
	sample, err := m.collector.Collect()
	if err != nil {
		zap.S().Warnf("[MON] Failed to collect system info: %v", err)
		return
	}
	zap.S().Infof("[MON] %s", sample.String())
	if pErr := m.journal.Put(sample); pErr != nil {
		zap.S().Warnf("[MON] Failed to store sample: %v", pErr)
		return
	}
	if m.retention > 0 {
		if tErr := m.journal.Trim(m.retention); tErr != nil {
			zap.S().Warnf("[MON] Failed to trim journal: %v", tErr)
		}
	}
}
