package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "frontdesk", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frontdesk", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "frontdesk", Name: "api_requests_total", Help: "Console requests to the hotel API."},
		[]string{"endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frontdesk", Name: "api_request_duration_seconds",
			Help:    "Console request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "frontdesk", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	BookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "frontdesk", Name: "booking_transitions_total", Help: "Committed booking transitions."},
		[]string{"status"},
	)
	PushEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "frontdesk", Name: "push_events_total", Help: "Room events sent or received."},
		[]string{"direction", "event"}, // direction: out|in
	)
	PushConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "frontdesk", Name: "push_connections", Help: "Open push channel connections."},
	)
	RefreshExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "frontdesk", Name: "token_refresh_total", Help: "Refresh-token exchanges."},
		[]string{"result"},
	)
)

// Serve exposes the default registry on addr in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency,
		CacheEvents, BookingTransitions,
		PushEvents, PushConnections, RefreshExchanges,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveTransition(status string) {
	BookingTransitions.WithLabelValues(status).Inc()
}

func ObservePush(direction, event string) {
	PushEvents.WithLabelValues(direction, event).Inc()
}

func ObserveRefresh(ok bool) {
	if ok {
		RefreshExchanges.WithLabelValues("ok").Inc()
		return
	}
	RefreshExchanges.WithLabelValues("failed").Inc()
}
