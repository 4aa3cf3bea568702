// Package metrics exports controller events in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/gpioled/internal/events"
)

const namespace = "gpioled"

// Exporter keeps Prometheus collectors in step with the event bus.
type Exporter struct {
	registry *prometheus.Registry
	handler  http.Handler
	unsubs   []func()

	sessionsOpened   prometheus.Counter
	sessionsRejected prometheus.Counter
	sessionHeld      prometheus.GaugeFunc
	commands         *prometheus.CounterVec
	ledOn            prometheus.Gauge
	transferFaults   prometheus.Counter
	state            *prometheus.GaugeVec
}

// NewExporter creates an exporter with its own registry. Pass a nil registry
// to get a fresh one that also carries the Go and process collectors.
// held is sampled at scrape time for session_held; nil reports 0.
func NewExporter(registry *prometheus.Registry, held func() bool) *Exporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	e := &Exporter{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Control sessions admitted.",
		}),
		sessionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rejected_total",
			Help:      "Open attempts refused because the LED was held.",
		}),
		sessionHeld: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_held",
			Help:      "1 while a control session holds the LED.",
		}, func() float64 {
			if held != nil && held() {
				return 1
			}
			return 0
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands applied to the line.",
		}, []string{"command"}),
		ledOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "led_on",
			Help:      "1 when the last applied command turned the LED on.",
		}),
		transferFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_faults_total",
			Help:      "Writes whose payload could not be read.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_state",
			Help:      "1 for the current lifecycle state.",
		}, []string{"state"}),
	}

	registry.MustRegister(
		e.sessionsOpened,
		e.sessionsRejected,
		e.sessionHeld,
		e.commands,
		e.ledOn,
		e.transferFaults,
		e.state,
	)
	return e
}

// Attach subscribes the exporter to bus.
func (e *Exporter) Attach(bus *events.Bus) {
	e.unsubs = append(e.unsubs,
		bus.Subscribe(func(events.SessionOpenedEvent) {
			e.sessionsOpened.Inc()
		}),
		bus.Subscribe(func(events.SessionRejectedEvent) {
			e.sessionsRejected.Inc()
		}),
		bus.Subscribe(func(ev events.LineChangedEvent) {
			e.commands.WithLabelValues(ev.Command).Inc()
			if ev.Command == "on" {
				e.ledOn.Set(1)
			} else {
				e.ledOn.Set(0)
			}
		}),
		bus.Subscribe(func(events.TransferFaultEvent) {
			e.transferFaults.Inc()
		}),
		bus.Subscribe(func(ev events.StateChangedEvent) {
			e.state.WithLabelValues(ev.From).Set(0)
			e.state.WithLabelValues(ev.To).Set(1)
		}),
	)
}

// Handler serves the registry.
func (e *Exporter) Handler() http.Handler {
	return e.handler
}

// Close unsubscribes from the bus.
func (e *Exporter) Close() {
	for _, unsub := range e.unsubs {
		unsub()
	}
	e.unsubs = nil
}
