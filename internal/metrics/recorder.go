// Package metrics exposes wifimgr counters to Prometheus and serves them,
// optionally next to pprof, on a small HTTP server.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "wifimgr"

// Recorder implements notifier.Recorder and monitor.Recorder.
type Recorder struct {
	reg *prom.Registry

	events         *prom.CounterVec
	sends          *prom.CounterVec
	hostsAvailable prom.Gauge
	scanSize       prom.Gauge
	tickErrors     prom.Counter
	restarts       *prom.CounterVec
}

// NewRecorder registers every metric on a fresh registry, plus the Go and
// process collectors.
func NewRecorder() *Recorder {
	reg := prom.NewRegistry()
	r := &Recorder{
		reg: reg,
		events: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dispatched notification events by kind",
		}, []string{"kind"}),
		sends: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Delivery attempts by channel and result",
		}, []string{"channel", "result"}),
		hostsAvailable: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "gntp_hosts_available",
			Help:      "GNTP hosts currently accepting notifications",
		}),
		scanSize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_networks",
			Help:      "Networks seen in the last scan",
		}),
		tickErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "Failed adapter queries",
		}),
		restarts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "goroutine_restarts_total",
			Help:      "Supervised loops restarted after an error or panic",
		}, []string{"name"}),
	}
	reg.MustRegister(
		r.events, r.sends, r.hostsAvailable, r.scanSize, r.tickErrors, r.restarts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Registry() *prom.Registry { return r.reg }

func (r *Recorder) Event(kind string) { r.events.WithLabelValues(kind).Inc() }

func (r *Recorder) Send(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	r.sends.WithLabelValues(channelLabel(channel), result).Inc()
}

func (r *Recorder) HostsAvailable(n int) { r.hostsAvailable.Set(float64(n)) }
func (r *Recorder) ScanSize(n int)       { r.scanSize.Set(float64(n)) }
func (r *Recorder) TickError()           { r.tickErrors.Inc() }

// Restart matches supervisor.WithRestartHook.
func (r *Recorder) Restart(name string, _ error) { r.restarts.WithLabelValues(name).Inc() }

// channelLabel keeps label cardinality bounded: "gntp:10.0.0.5:23053"
// becomes "gntp".
func channelLabel(ch string) string {
	for i := 0; i < len(ch); i++ {
		if ch[i] == ':' {
			return ch[:i]
		}
	}
	return ch
}
