package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leefowlercu/dron/internal/reconcile"
)

// MetricsProvider is an interface for components that provide metrics.
type MetricsProvider interface {
	// CollectMetrics collects current metrics from the component.
	CollectMetrics(ctx context.Context) error
}

// Collector manages metric collection from various components.
type Collector struct {
	mu        sync.RWMutex
	providers map[string]MetricsProvider
	interval  time.Duration
	stopCh    chan struct{}
	running   bool
}

// NewCollector creates a new metrics collector.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		providers: make(map[string]MetricsProvider),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Register adds a metrics provider to the collector.
func (c *Collector) Register(name string, provider MetricsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = provider
}

// Start collects once, then periodically in the background.
func (c *Collector) Start(ctx context.Context, version, platform string) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	Info.WithLabelValues(version, runtime.Version(), platform).Set(1)

	c.collect(ctx)
	go c.run(ctx)
}

// Stop halts periodic metric collection.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	close(c.stopCh)
	c.running = false
}

func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	c.mu.RLock()
	providers := make(map[string]MetricsProvider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	for name, provider := range providers {
		if err := provider.CollectMetrics(ctx); err != nil {
			ProviderUp.WithLabelValues(name).Set(0)
		} else {
			ProviderUp.WithLabelValues(name).Set(1)
		}
	}
	LastCollectTime.Set(float64(time.Now().Unix()))
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a handler for a specific registry.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordApply records the outcome of an apply run.
func RecordApply(result reconcile.ApplyResult, duration time.Duration, err error) {
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "error"
	case result.Changed():
		outcome = "changed"
	}
	ApplyRunsTotal.WithLabelValues(outcome).Inc()
	ApplyDuration.Observe(duration.Seconds())

	ApplyActionsTotal.WithLabelValues("delete").Add(float64(len(result.Deleted)))
	ApplyActionsTotal.WithLabelValues("update").Add(float64(len(result.Updated)))
	ApplyActionsTotal.WithLabelValues("add").Add(float64(len(result.Added)))
}
