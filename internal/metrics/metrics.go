// Package metrics exposes Prometheus counters and gauges for the server
// binary over an optional HTTP endpoint.
package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every metric this module exports.
type Registry struct {
	reg *prometheus.Registry

	CallsInFlight  prometheus.Gauge
	FramesRead     prometheus.Counter
	FramesWritten  prometheus.Counter
	DevicesTracked prometheus.Gauge
	DevicesOpen    prometheus.Gauge
	TransfersTotal *prometheus.CounterVec
}

// New builds a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		CallsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "libusb_proxy",
			Name:      "calls_in_flight",
			Help:      "Number of RPC calls currently awaiting a response.",
		}),
		FramesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "libusb_proxy",
			Name:      "frames_read_total",
			Help:      "Total wire frames read from any connection.",
		}),
		FramesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "libusb_proxy",
			Name:      "frames_written_total",
			Help:      "Total wire frames written to any connection.",
		}),
		DevicesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "libusb_proxy",
			Name:      "devices_tracked",
			Help:      "Number of device records in the server's device table.",
		}),
		DevicesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "libusb_proxy",
			Name:      "devices_open",
			Help:      "Number of devices with an open native handle.",
		}),
		TransfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libusb_proxy",
			Name:      "transfers_total",
			Help:      "Total submit_transfer calls, labeled by outcome.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		r.CallsInFlight,
		r.FramesRead,
		r.FramesWritten,
		r.DevicesTracked,
		r.DevicesOpen,
		r.TransfersTotal,
	)
	return r
}

// Serve runs an HTTP server exposing /metrics on l until ctx is cancelled.
func (r *Registry) Serve(ctx context.Context, l net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
