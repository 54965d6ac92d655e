// Package metrics wraps github.com/VictoriaMetrics/metrics counters and
// gauges for the handful of numbers operators actually page on: online
// client count, total successful assignments, per-client errors, TUN
// throughput, and broadcast fan-out volume.
package metrics

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// Registry holds one private metrics.Set so multiple server instances
// in a test binary don't collide on the global default set.
type Registry struct {
	set *metrics.Set

	clientsOnline   *metrics.Gauge
	clientsAssigned *metrics.Counter
	clientErrors    *metrics.Counter
	tunBytesRead    *metrics.Counter
	tunBytesWritten *metrics.Counter
	broadcastFrames *metrics.Counter

	online atomic.Uint64 // backing value for clientsOnline's callback
}

// New constructs a Registry with all series pre-registered.
func New() *Registry {
	s := metrics.NewSet()
	r := &Registry{set: s}
	r.clientsOnline = s.NewGauge("teavpn2_clients_online", func() float64 {
		return float64(r.online.Load())
	})
	r.clientsAssigned = s.NewCounter("teavpn2_clients_assigned_total")
	r.clientErrors = s.NewCounter("teavpn2_client_errors_total")
	r.tunBytesRead = s.NewCounter("teavpn2_tun_bytes_read_total")
	r.tunBytesWritten = s.NewCounter("teavpn2_tun_bytes_written_total")
	r.broadcastFrames = s.NewCounter("teavpn2_broadcast_frames_total")
	return r
}

func (r *Registry) SetOnline(n int) { r.online.Store(uint64(n)) }

func (r *Registry) IncAssigned()        { r.clientsAssigned.Inc() }
func (r *Registry) IncClientError()     { r.clientErrors.Inc() }
func (r *Registry) AddTUNRead(n int)    { r.tunBytesRead.Add(n) }
func (r *Registry) AddTUNWritten(n int) { r.tunBytesWritten.Add(n) }
func (r *Registry) IncBroadcastFrame()  { r.broadcastFrames.Inc() }

// ServeDebugHTTP starts a loopback-only debug listener exposing the
// registry in Prometheus text format at /metrics. It blocks; callers
// run it in a goroutine and only do so when a debug address was
// explicitly configured (see config.Debug.Addr). An addr whose host is
// not "localhost" or a loopback IP is rejected with an error.
func (r *Registry) ServeDebugHTTP(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("metrics: debug address %q is not a loopback address", addr)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		r.set.WritePrometheus(w)
	})
	return http.ListenAndServe(addr, mux)
}
