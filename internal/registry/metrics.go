package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "registry",
			Name:      "loads_total",
			Help:      "Total model loads by framework and outcome",
		},
		[]string{"framework", "outcome"},
	)

	fallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "visiond",
			Subsystem: "registry",
			Name:      "placeholder_fallbacks_total",
			Help:      "Total placeholder syntheses for missing or unloadable artifacts",
		},
	)

	loadedModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "visiond",
			Subsystem: "registry",
			Name:      "loaded_models",
			Help:      "Number of models currently cached",
		},
	)

	predictDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visiond",
			Subsystem: "registry",
			Name:      "predict_duration_seconds",
			Help:      "Duration of predict calls in seconds by framework",
			Buckets:   prometheus.DefBuckets,
		},
		// Labeled by framework, not model name: model names are caller
		// supplied and would make the label set unbounded.
		[]string{"framework"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, fallbacksTotal, loadedModels, predictDuration)
}

// Load outcome labels.
const (
	outcomeOK          = "ok"
	outcomePlaceholder = "placeholder"
	outcomeMissing     = "artifact_missing"
	outcomeError       = "error"
)
