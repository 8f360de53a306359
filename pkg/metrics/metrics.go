package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExplorerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "esplora_explorer_requests_total", Help: "Explorer calls by route and outcome"},
		[]string{"route", "outcome"},
	)
	ExplorerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "esplora_explorer_attempts_total", Help: "HTTP attempts including retries"},
		[]string{"route"},
	)
	ExplorerUp = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "esplora_explorer_up", Help: "1 if the startup probe reached the explorer"},
	)
	MethodCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "esplora_method_calls_total", Help: "Backend method calls by outcome"},
		[]string{"method", "outcome"},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(ExplorerRequests, ExplorerAttempts, ExplorerUp, MethodCalls)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
