package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsHandled counts chat events by type tag and outcome ("ok" or "error").
	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatapp_events_total",
			Help: "Total chat events handled",
		},
		[]string{"type", "outcome"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatapp_predictions_total",
			Help: "Total generative model calls",
		},
		[]string{"prompt", "status"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatapp_prediction_duration_seconds",
			Help:    "Generative model call duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"prompt"},
	)
)
