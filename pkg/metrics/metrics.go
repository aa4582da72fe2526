// Package metrics содержит Prometheus-метрики хранилища и конвейера изображений.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "baphomet_images"

// Observer принимает события хранилища и конвейера. Реализации должны быть безопасны для nil.
type Observer interface {
	ObserveStore(op string, bytes int64, err error, dur time.Duration)
	ExistenceCheckFailed()
	ObserveStage(stage string, err error, dur time.Duration)
}

// Metrics реализует Observer поверх prometheus.
type Metrics struct {
	storeOps         *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	storeBytes       *prometheus.CounterVec
	existenceFailure prometheus.Counter
	stageOps         *prometheus.CounterVec
	stageLatency     *prometheus.HistogramVec
}

// New регистрирует метрики в reg. Повторная регистрация переиспользует уже зарегистрированные коллекторы.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "ops_total",
			Help:      "Object store requests by operation and result.",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "op_duration_seconds",
			Help:      "Object store request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		storeBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "bytes_total",
			Help:      "Bytes written to the object store.",
		}, []string{"op"}),
		existenceFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "existence_check_failures_total",
			Help:      "HEAD requests that failed for reasons other than a missing object.",
		}),
		stageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Pipeline stage executions by result.",
		}, []string{"stage", "result"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	var err error
	if m.storeOps, err = registerOrReuse(reg, m.storeOps); err != nil {
		return nil, err
	}
	if m.storeLatency, err = registerOrReuse(reg, m.storeLatency); err != nil {
		return nil, err
	}
	if m.storeBytes, err = registerOrReuse(reg, m.storeBytes); err != nil {
		return nil, err
	}
	if m.existenceFailure, err = registerOrReuse(reg, m.existenceFailure); err != nil {
		return nil, err
	}
	if m.stageOps, err = registerOrReuse(reg, m.stageOps); err != nil {
		return nil, err
	}
	if m.stageLatency, err = registerOrReuse(reg, m.stageLatency); err != nil {
		return nil, err
	}

	return m, nil
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) ObserveStore(op string, bytes int64, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op, result(err)).Inc()
	m.storeLatency.WithLabelValues(op).Observe(dur.Seconds())
	if err == nil && bytes > 0 {
		m.storeBytes.WithLabelValues(op).Add(float64(bytes))
	}
}

func (m *Metrics) ExistenceCheckFailed() {
	if m == nil {
		return
	}
	m.existenceFailure.Inc()
}

func (m *Metrics) ObserveStage(stage string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageOps.WithLabelValues(stage, result(err)).Inc()
	m.stageLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Nop - Observer, который ничего не записывает.
type Nop struct{}

func (Nop) ObserveStore(string, int64, error, time.Duration) {}
func (Nop) ExistenceCheckFailed()                            {}
func (Nop) ObserveStage(string, error, time.Duration)        {}
