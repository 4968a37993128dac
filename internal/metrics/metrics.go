// Package metrics define o gravador de métricas injetado nos
// componentes. Nenhum contador vive como estado global de pacote:
// testes substituem por Nop.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder é a capacidade de métricas passada a cada componente.
type Recorder interface {
	RequestObserved(method, path string, status int, dur time.Duration)
	ReleaseOperation(op string, success bool)
	BreakerOpened()
}

// Prometheus implementa Recorder com contadores prometheus.
type Prometheus struct {
	registry *prometheus.Registry
	requests *prometheus.HistogramVec
	releases *prometheus.CounterVec
	breaker  prometheus.Counter
}

// NewPrometheus cria o Recorder com um registry próprio.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helmdesk_http_request_duration_seconds",
			Help:    "Duração das requisições HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helmdesk_release_operations_total",
			Help: "Operações de release por tipo e resultado.",
		}, []string{"op", "result"}),
		breaker: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helmdesk_db_breaker_opened_total",
			Help: "Vezes que o circuit breaker do banco abriu.",
		}),
	}
	reg.MustRegister(p.requests, p.releases, p.breaker)
	return p
}

// Handler expõe o endpoint /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) RequestObserved(method, path string, status int, dur time.Duration) {
	p.requests.WithLabelValues(method, path, strconv.Itoa(status)).Observe(dur.Seconds())
}

func (p *Prometheus) ReleaseOperation(op string, success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	p.releases.WithLabelValues(op, result).Inc()
}

func (p *Prometheus) BreakerOpened() {
	p.breaker.Inc()
}

// Nop descarta todas as métricas; usado em testes.
type Nop struct{}

func (Nop) RequestObserved(string, string, int, time.Duration) {}
func (Nop) ReleaseOperation(string, bool)                      {}
func (Nop) BreakerOpened()                                     {}
