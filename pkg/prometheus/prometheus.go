// Package prometheus provides a beacon.MetricsProvider backed by
// Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/beacon"
)

// Provider records marker and binding activity as Prometheus metrics.
// One Provider may be shared by any number of markers and bindings.
type Provider struct {
	transitions        *prometheus.CounterVec
	creates            *prometheus.HistogramVec
	setters            *prometheus.HistogramVec
	skipped            *prometheus.CounterVec
	events             *prometheus.CounterVec
	bindings           *prometheus.GaugeVec
	declarations       prometheus.Counter
	declarationFailure *prometheus.HistogramVec
}

// New creates a Provider and registers its collectors with reg under
// namespace.
func New(reg prometheus.Registerer, namespace string) (*Provider, error) {
	p := &Provider{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marker",
				Name:      "state_transitions_total",
				Help:      "Marker state transitions",
			},
			[]string{"from", "to"},
		),
		creates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "marker",
				Name:      "create_duration_seconds",
				Help:      "Duration of remote marker creation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		setters: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "marker",
				Name:      "setter_duration_seconds",
				Help:      "Duration of remote setter calls, including lane queueing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"field", "result"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marker",
				Name:      "setter_skipped_total",
				Help:      "Setters skipped because the value factory produced nothing",
			},
			[]string{"field"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "marker",
				Name:      "events_delivered_total",
				Help:      "Remote events delivered to subscribers",
			},
			[]string{"event"},
		),
		bindings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "binding",
				Name:      "state",
				Help:      "Bindings per state",
			},
			[]string{"state"},
		),
		declarations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "binding",
				Name:      "declarations_received_total",
				Help:      "Declarations received from watchers",
			},
		),
		declarationFailure: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "binding",
				Name:      "declaration_failure_duration_seconds",
				Help:      "Duration of failed declaration processing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}

	for _, c := range []prometheus.Collector{
		p.transitions, p.creates, p.setters, p.skipped,
		p.events, p.bindings, p.declarations, p.declarationFailure,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) OnStateChange(from, to beacon.State) {
	p.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (p *Provider) OnCreateSuccess(d time.Duration) {
	p.creates.WithLabelValues("success").Observe(d.Seconds())
}

func (p *Provider) OnCreateFailure(d time.Duration) {
	p.creates.WithLabelValues("failure").Observe(d.Seconds())
}

func (p *Provider) OnSetterSuccess(field string, d time.Duration) {
	p.setters.WithLabelValues(field, "success").Observe(d.Seconds())
}

func (p *Provider) OnSetterFailure(field string, d time.Duration) {
	p.setters.WithLabelValues(field, "failure").Observe(d.Seconds())
}

func (p *Provider) OnSetterSkipped(field string) {
	p.skipped.WithLabelValues(field).Inc()
}

func (p *Provider) OnEventDelivered(event string) {
	p.events.WithLabelValues(event).Inc()
}

// OnBindingStateChange moves one binding from the from gauge to the to
// gauge. A binding starts counted in neither, so the first transition out
// of loading only increments.
func (p *Provider) OnBindingStateChange(from, to beacon.BindingState) {
	if from != beacon.BindingLoading {
		p.bindings.WithLabelValues(from.String()).Dec()
	}
	p.bindings.WithLabelValues(to.String()).Inc()
}

func (p *Provider) OnDeclarationReceived() {
	p.declarations.Inc()
}

func (p *Provider) OnDeclarationFailure(stage string, d time.Duration) {
	p.declarationFailure.WithLabelValues(stage).Observe(d.Seconds())
}

var _ beacon.MetricsProvider = (*Provider)(nil)
