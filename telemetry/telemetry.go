// Package telemetry captures metrics emitted by the store, cell and queue
// layers.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives telemetry events from the runtime.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They must be inexpensive to call because hooks run
// inline with queue operations and store writes.
type Collector interface {
	IncEnqueued(queue string)
	IncDequeued(queue string)
	IncRejected(queue, reason string)
	SetQueueDepth(queue string, depth int)
	IncStoreWrite(backend string)
}

// Rejection reasons reported through IncRejected.
const (
	ReasonFull  = "full"
	ReasonEmpty = "empty"
)

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncEnqueued(string)         {}
func (noopCollector) IncDequeued(string)         {}
func (noopCollector) IncRejected(string, string) {}
func (noopCollector) SetQueueDepth(string, int)  {}
func (noopCollector) IncStoreWrite(string)       {}

// PrometheusCollector exposes the runtime counters via Prometheus.
type PrometheusCollector struct {
	enqueued    *prometheus.CounterVec
	dequeued    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	depth       *prometheus.GaugeVec
	storeWrites *prometheus.CounterVec
}

var (
	registeredMu      sync.Mutex
	enqueuedCounter   *prometheus.CounterVec
	dequeuedCounter   *prometheus.CounterVec
	rejectedCounter   *prometheus.CounterVec
	depthGauge        *prometheus.GaugeVec
	storeWriteCounter *prometheus.CounterVec
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Passing nil uses the default registerer. Metrics registered by
// an earlier collector instance are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registeredMu.Lock()
	defer registeredMu.Unlock()

	var err error
	if enqueuedCounter, err = registerCounter(reg, enqueuedCounter, prometheus.CounterOpts{
		Name: "prefstore_queue_enqueued_total",
		Help: "Number of elements successfully enqueued per queue.",
	}, []string{"queue"}); err != nil {
		return nil, err
	}
	if dequeuedCounter, err = registerCounter(reg, dequeuedCounter, prometheus.CounterOpts{
		Name: "prefstore_queue_dequeued_total",
		Help: "Number of elements successfully dequeued per queue.",
	}, []string{"queue"}); err != nil {
		return nil, err
	}
	if rejectedCounter, err = registerCounter(reg, rejectedCounter, prometheus.CounterOpts{
		Name: "prefstore_queue_rejected_total",
		Help: "Number of queue operations rejected, partitioned by reason.",
	}, []string{"queue", "reason"}); err != nil {
		return nil, err
	}
	if depthGauge, err = registerGauge(reg, depthGauge, prometheus.GaugeOpts{
		Name: "prefstore_queue_depth",
		Help: "Current number of elements held per queue.",
	}, []string{"queue"}); err != nil {
		return nil, err
	}
	if storeWriteCounter, err = registerCounter(reg, storeWriteCounter, prometheus.CounterOpts{
		Name: "prefstore_store_writes_total",
		Help: "Number of mutating store operations per backend.",
	}, []string{"backend"}); err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		enqueued:    enqueuedCounter,
		dequeued:    dequeuedCounter,
		rejected:    rejectedCounter,
		depth:       depthGauge,
		storeWrites: storeWriteCounter,
	}, nil
}

func registerCounter(reg prometheus.Registerer, existing *prometheus.CounterVec, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	if existing != nil {
		return existing, nil
	}
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reused, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return reused, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, existing *prometheus.GaugeVec, opts prometheus.GaugeOpts, labels []string) (*prometheus.GaugeVec, error) {
	if existing != nil {
		return existing, nil
	}
	gauge := prometheus.NewGaugeVec(opts, labels)
	if err := reg.Register(gauge); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reused, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return reused, nil
			}
		}
		return nil, err
	}
	return gauge, nil
}

// IncEnqueued counts a successful enqueue.
func (p *PrometheusCollector) IncEnqueued(queue string) {
	if p == nil || p.enqueued == nil {
		return
	}
	p.enqueued.WithLabelValues(queue).Inc()
}

// IncDequeued counts a successful dequeue.
func (p *PrometheusCollector) IncDequeued(queue string) {
	if p == nil || p.dequeued == nil {
		return
	}
	p.dequeued.WithLabelValues(queue).Inc()
}

// IncRejected counts a rejected queue operation.
func (p *PrometheusCollector) IncRejected(queue, reason string) {
	if p == nil || p.rejected == nil {
		return
	}
	p.rejected.WithLabelValues(queue, reason).Inc()
}

// SetQueueDepth updates the gauge tracking a queue's element count.
func (p *PrometheusCollector) SetQueueDepth(queue string, depth int) {
	if p == nil || p.depth == nil {
		return
	}
	p.depth.WithLabelValues(queue).Set(float64(depth))
}

// IncStoreWrite counts a mutating store operation.
func (p *PrometheusCollector) IncStoreWrite(backend string) {
	if p == nil || p.storeWrites == nil {
		return
	}
	p.storeWrites.WithLabelValues(backend).Inc()
}
