package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectGauge is the current number of finger connections being served.
	ConnectGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "finger_connections_active",
		Help: "Current number of finger connections being served",
	}, []string{"host"})

	// ConnectCounter is the total number of accepted finger connections.
	ConnectCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finger_connections_total",
		Help: "Total number of accepted finger connections",
	}, []string{"host"})

	// ForwardCounter is the total number of forwarded requests by next hop.
	ForwardCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finger_forwards_total",
		Help: "Total number of forwarded finger requests",
	}, []string{"next_hop"})

	// ForwardErrorCounter is the total number of failed forward hops.
	ForwardErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finger_forward_errors_total",
		Help: "Total number of forward hops that failed at the transport",
	}, []string{"next_hop"})

	// DeniedCounter is the total number of forward requests refused by policy.
	DeniedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finger_forwards_denied_total",
		Help: "Total number of forward requests refused by policy",
	}, []string{"host"})
)

func init() {
	// Register the metrics.
	prometheus.MustRegister(ConnectGauge, ConnectCounter, ForwardCounter, ForwardErrorCounter, DeniedCounter)
}

func StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}
