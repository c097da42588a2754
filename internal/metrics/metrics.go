// Package metrics provides Prometheus collectors for engine calls and
// session lifecycle.
package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thesyncim/libntgcalls/internal/ffi"
)

const namespace = "ntgcalls"

// Teardown paths.
const (
	PathExplicit = "explicit"
	PathImplicit = "implicit"
)

var (
	// nativeCallsTotal is a counter of engine entry-point invocations.
	nativeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_calls_total",
			Help:      "Total number of engine entry-point invocations",
		},
		[]string{"op", "result"}, // result: ok or the error kind name
	)

	// nativeCallDuration is a histogram of engine call duration in seconds.
	nativeCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "native_call_duration_seconds",
			Help:      "Duration of engine entry-point invocations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"op"},
	)

	// sessionsActive is a gauge of engine instances not yet destroyed.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of engine instances not yet destroyed",
		},
	)

	// teardownFailuresTotal is a counter of failed engine destroy calls.
	teardownFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardown_failures_total",
			Help:      "Total number of failed engine instance teardowns",
		},
		[]string{"path"}, // path: explicit, implicit
	)

	// callbackPanicsTotal is a counter of recovered panics in event handlers.
	callbackPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_panics_total",
			Help:      "Total number of panics recovered from event handlers",
		},
		[]string{"event"},
	)

	allMetrics = []prometheus.Collector{
		nativeCallsTotal,
		nativeCallDuration,
		sessionsActive,
		teardownFailuresTotal,
		callbackPanicsTotal,
	}

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// Register adds every collector to reg. Collectors already registered with
// reg are accepted.
func Register(reg prometheus.Registerer) error {
	for _, c := range allMetrics {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// SetEnabled turns recording on or off. Recording is on by default.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether recording is on.
func Enabled() bool {
	return enabled.Load()
}

// RecordNativeCall records one engine call and its outcome.
func RecordNativeCall(op string, err error, elapsed time.Duration) {
	if !enabled.Load() {
		return
	}
	nativeCallsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	nativeCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordSessionCreated records a new engine instance.
func RecordSessionCreated() {
	if enabled.Load() {
		sessionsActive.Inc()
	}
}

// RecordSessionDestroyed records a released engine instance.
func RecordSessionDestroyed() {
	if enabled.Load() {
		sessionsActive.Dec()
	}
}

// RecordTeardownFailure records a failed destroy on the given path.
func RecordTeardownFailure(path string) {
	if enabled.Load() {
		teardownFailuresTotal.WithLabelValues(path).Inc()
	}
}

// RecordCallbackPanic records a panic recovered from an event handler.
func RecordCallbackPanic(event string) {
	if enabled.Load() {
		callbackPanicsTotal.WithLabelValues(event).Inc()
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var kind ffi.ErrorKind
	if errors.As(err, &kind) {
		return kind.String()
	}
	return "error"
}
