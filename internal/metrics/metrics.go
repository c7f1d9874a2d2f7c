package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	KindCharacter = "character"
	KindScene     = "scene"
	KindVariation = "variation"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	imageGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyboard",
		Name:      "image_generations_total",
		Help:      "Image-generation calls by kind and outcome.",
	}, []string{"kind", "outcome"})

	imageGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storyboard",
		Name:      "image_generation_duration_seconds",
		Help:      "Latency of image-generation calls.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
	}, []string{"kind"})

	statusReverts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storyboard",
		Name:      "status_reverts_total",
		Help:      "Story status rollbacks after a failed generation.",
	}, []string{"kind"})
)

func ObserveGeneration(kind string, err error, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	imageGenerations.WithLabelValues(kind, outcome).Inc()
	imageGenerationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func StatusReverted(kind string) {
	statusReverts.WithLabelValues(kind).Inc()
}
