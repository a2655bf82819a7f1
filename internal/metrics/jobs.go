package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/leefowlercu/dron/internal/monitor"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// JobsProvider refreshes the unit and job gauges from the monitor and keeps
// the latest entries for the /entries endpoint.
type JobsProvider struct {
	backend    servicemanager.Backend
	aggregator *monitor.Aggregator
	params     monitor.Params

	mu        sync.RWMutex
	entries   []monitor.Entry
	updatedAt time.Time
	lastErr   error
}

// NewJobsProvider creates a provider reading from backend.
func NewJobsProvider(backend servicemanager.Backend, aggregator *monitor.Aggregator, params monitor.Params) *JobsProvider {
	return &JobsProvider{
		backend:    backend,
		aggregator: aggregator,
		params:     params,
	}
}

// CollectMetrics implements MetricsProvider.
func (p *JobsProvider) CollectMetrics(ctx context.Context) error {
	records, err := p.backend.QueryState(ctx, false)
	if err != nil {
		p.setErr(err)
		return err
	}

	entries, err := p.aggregator.GetEntries(ctx, records, p.params)
	if err != nil {
		p.setErr(err)
		return err
	}

	p.Update(records, entries)
	return nil
}

// Update publishes a snapshot. Jobs missing from the snapshot are dropped from
// the gauges.
func (p *JobsProvider) Update(records []servicemanager.UnitRecord, entries []monitor.Entry) {
	UnitsManaged.Reset()
	for _, r := range records {
		UnitsManaged.WithLabelValues(string(servicemanager.KindOf(r.Name()))).Inc()
	}

	JobStatusOK.Reset()
	JobRunning.Reset()
	JobSuccessRate.Reset()
	for _, e := range entries {
		JobStatusOK.WithLabelValues(e.Unit, e.Schedule).Set(boolFloat(e.StatusOK))
		JobRunning.WithLabelValues(e.Unit).Set(boolFloat(e.Running()))
		if e.SuccessRate != nil {
			JobSuccessRate.WithLabelValues(e.Unit).Set(*e.SuccessRate)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = entries
	p.updatedAt = time.Now()
	p.lastErr = nil
}

func (p *JobsProvider) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
}

// Entries returns the latest snapshot, its time, and the last collection error.
func (p *JobsProvider) Entries() ([]monitor.Entry, time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries, p.updatedAt, p.lastErr
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
