package storage

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "furlorn_storage_operations_total",
			Help: "Total number of object store operations",
		},
		[]string{"backend", "operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "furlorn_storage_operation_duration_seconds",
			Help:    "Latency of object store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	cleanupDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "furlorn_storage_cleanup_deletes_total",
			Help: "Objects deleted to undo or follow a database change",
		},
		[]string{"result"},
	)
)

// Instrumented records Prometheus metrics around another ObjectStore.
type Instrumented struct {
	next    ObjectStore
	backend string
}

var _ ObjectStore = (*Instrumented)(nil)

// Instrument wraps next; backend labels the metrics.
func Instrument(next ObjectStore, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (i *Instrumented) observe(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(i.backend, operation, result).Inc()
	operationDuration.WithLabelValues(i.backend, operation).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) Save(ctx context.Context, name string, content []byte) (string, error) {
	start := time.Now()
	out, err := i.next.Save(ctx, name, content)
	i.observe("save", start, err)
	return out, err
}

func (i *Instrumented) Exists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, name)
	i.observe("exists", start, err)
	return ok, err
}

func (i *Instrumented) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := i.next.Delete(ctx, name)
	i.observe("delete", start, err)
	return err
}

func (i *Instrumented) URL(ctx context.Context, name string, ttl time.Duration) *string {
	start := time.Now()
	u := i.next.URL(ctx, name, ttl)
	result := "success"
	if u == nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(i.backend, "url", result).Inc()
	operationDuration.WithLabelValues(i.backend, "url").Observe(time.Since(start).Seconds())
	return u
}

// AvailableName runs the name search through the instrumented Exists.
func (i *Instrumented) AvailableName(ctx context.Context, name string) (string, error) {
	return AvailableName(ctx, i, name)
}
