package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eunsilkim-ELSA/family-calendar/internal/event_bus"
	"github.com/eunsilkim-ELSA/family-calendar/internal/rest"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "familycal"

// Metrics owns a private registry so tests can create as many instances as they need.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	storeChanges    *prometheus.CounterVec
	slotsWritten    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		storeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_changes_total",
			Help:      "Committed calendar changes by kind.",
		}, []string{"kind"}),
		slotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_slots_written_total",
			Help:      "Slot records written by added or moved events.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.storeChanges,
		m.slotsWritten,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records every request routed by mux under its path template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := rest.NewStatusRecorder(w)

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.Status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Subscribe counts the store changes published on bus. The returned function removes the
// subscriptions.
func (m *Metrics) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	kinds := map[event_bus.EventType]string{
		event_bus.CalendarEventAdded:   "added",
		event_bus.CalendarEventUpdated: "updated",
		event_bus.CalendarEventDeleted: "deleted",
	}
	unsubscribers := make([]func(), 0, len(kinds))
	for eventType, kind := range kinds {
		unsubscribers = append(unsubscribers, event_bus.SubscribeTyped(bus, eventType,
			func(e event_bus.EventT[event_bus.CalendarEventChanged]) error {
				m.storeChanges.WithLabelValues(kind).Inc()
				if e.Type == event_bus.CalendarEventAdded || e.Data.Moved {
					m.slotsWritten.Add(float64(len(e.Data.SlotKeys)))
				}
				return nil
			}))
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}
