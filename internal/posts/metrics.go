package posts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "furlorn_post_writes_total",
	Help: "Composite post writes by operation and result.",
}, []string{"operation", "result"})

func observeWrite(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	postWritesTotal.WithLabelValues(operation, result).Inc()
}
