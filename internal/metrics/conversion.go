// Package metrics provides Prometheus metrics for the engine and conversions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "videosqueeze"

// Conversion results used as label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "total",
		Help:      "Finished conversions by result",
	}, []string{"result", "method"})

	conversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "duration_seconds",
		Help:      "Wall time of successful conversions",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"method"})

	bytesIn = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "input_bytes_total",
		Help:      "Bytes of input read by successful conversions",
	})

	bytesOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "output_bytes_total",
		Help:      "Bytes of output produced by successful conversions",
	})

	lastRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "last_ratio",
		Help:      "Output size divided by input size of the latest conversion",
	})

	activeConversions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "active",
		Help:      "Conversions currently compressing",
	})

	engineLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "loaded",
		Help:      "1 when the engine is ready",
	})

	engineLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "load_failures_total",
		Help:      "Failed engine loads",
	})

	liveBlobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "blob",
		Name:      "live",
		Help:      "Blob URLs created and not yet revoked",
	})
)

// RecordSuccess records a finished conversion.
func RecordSuccess(method string, elapsed time.Duration, inSize, outSize int64) {
	conversionsTotal.WithLabelValues(ResultSuccess, method).Inc()
	conversionDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	bytesIn.Add(float64(inSize))
	bytesOut.Add(float64(outSize))
	if inSize > 0 {
		lastRatio.Set(float64(outSize) / float64(inSize))
	}
}

// RecordFailure records a failed conversion.
func RecordFailure(method string) {
	conversionsTotal.WithLabelValues(ResultFailure, method).Inc()
}

// ConversionStarted increments the active gauge; call the returned func when done.
func ConversionStarted() (done func()) {
	activeConversions.Inc()
	return activeConversions.Dec
}

// SetEngineLoaded records the engine state.
func SetEngineLoaded(loaded bool) {
	if loaded {
		engineLoaded.Set(1)
	} else {
		engineLoaded.Set(0)
	}
}

// RecordEngineLoadFailure counts a failed load.
func RecordEngineLoadFailure() {
	engineLoadFailures.Inc()
}

// SetLiveBlobs records the live blob count.
func SetLiveBlobs(n int) {
	liveBlobs.Set(float64(n))
}
