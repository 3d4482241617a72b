package pets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var petWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "furlorn_pet_writes_total",
	Help: "Composite pet writes by operation and result.",
}, []string{"operation", "result"})

func observeWrite(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	petWritesTotal.WithLabelValues(operation, result).Inc()
}
