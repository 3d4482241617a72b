package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "furlorn_feed_clients",
		Help: "Websocket clients subscribed to the live feed.",
	})

	droppedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furlorn_feed_dropped_clients_total",
		Help: "Feed clients disconnected because they could not keep up.",
	})

	publishedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furlorn_feed_events_total",
		Help: "Events queued for the live feed by type.",
	}, []string{"type"})
)
