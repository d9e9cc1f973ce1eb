// Package metrics registra las métricas Prometheus del servicio y expone
// helpers para instrumentar requests HTTP, llamadas a proveedores y flujos OAuth.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once   sync.Once
	regErr error

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Proveedores
	providerFetchTotal    *prometheus.CounterVec
	providerFetchDuration *prometheus.HistogramVec

	// OAuth
	oauthFlowsTotal *prometheus.CounterVec
)

// Register crea y registra las métricas una única vez. Devuelve el handler de /metrics.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	once.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método",
		}, []string{"method"})

		providerFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_fetch_total",
			Help: "Llamadas de analytics a proveedores por resultado",
		}, []string{"provider", "outcome"}) // outcome: ok|rejected|unreachable|not_connected|error

		providerFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_fetch_duration_seconds",
			Help:    "Duración de las llamadas de analytics a proveedores",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"})

		oauthFlowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_flows_total",
			Help: "Pasos del flujo OAuth por proveedor y resultado",
		}, []string{"provider", "result"}) // result: initiated|connected|denied|invalid_state|failed|disconnected

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			providerFetchTotal, providerFetchDuration, oauthFlowsTotal,
		} {
			if err := registerCollector(reg, c); err != nil {
				regErr = err
				return
			}
		}
	})
	if regErr != nil {
		return nil, regErr
	}
	return promhttp.Handler(), nil
}

// WithMetrics instrumenta requests HTTP. El label path usa el patrón de
// chi cuando está disponible, así /analytics/{provider} es una sola serie.
func WithMetrics(next http.Handler) http.Handler {
	if httpRequestsTotal == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		httpInflight.WithLabelValues(method).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			httpInflight.WithLabelValues(method).Dec()
			path := routePattern(r)
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

// ObserveProviderFetch registra una llamada de analytics.
func ObserveProviderFetch(provider, outcome string, d time.Duration) {
	if providerFetchTotal == nil {
		return
	}
	providerFetchTotal.WithLabelValues(provider, outcome).Inc()
	providerFetchDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncOAuthFlow registra un paso del flujo OAuth.
func IncOAuthFlow(provider, result string) {
	if oauthFlowsTotal == nil {
		return
	}
	oauthFlowsTotal.WithLabelValues(provider, result).Inc()
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return normalizePath(r.URL.Path)
}

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// normalizePath colapsa segmentos dinámicos (uuids, tokens, números) para
// acotar la cardinalidad cuando no hubo match de ruta.
func normalizePath(p string) string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			seg = ":param"
		}
		out = append(out, seg)
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 || uuidSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
