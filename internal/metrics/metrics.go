// Package metrics exposes control region state to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/shm-procctl/pkg/procctl"
)

const namespace = "procctl"

var (
	stopRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stop_requests_total",
			Help:      "Number of stop requests written by this process.",
		}, []string{"slot"},
	)

	slotUpDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "slot", "up"),
		"Whether the process in the slot has published that it is up (1) or not (0).",
		[]string{"slot"}, nil,
	)
	slotStopDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "slot", "stop_requested"),
		"Whether a stop request is pending for the slot.",
		[]string{"slot"}, nil,
	)
)

// Register registers the package counters with r. Registering with the same
// registerer again is a no-op.
func Register(r prometheus.Registerer) error {
	if err := r.Register(stopRequests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
	}
	return nil
}

// Handler returns an http.Handler serving metrics from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// IncStopRequest counts a stop request for slot.
func IncStopRequest(slot int) {
	stopRequests.WithLabelValues(strconv.Itoa(slot)).Inc()
}

// Collector reads every slot of a region on each scrape.
type Collector struct {
	ctrl *procctl.Controller
}

// NewCollector returns a collector over r.
func NewCollector(r *procctl.Region) *Collector {
	return &Collector{ctrl: procctl.NewController(r)}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- slotUpDesc
	ch <- slotStopDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	states, err := c.ctrl.Snapshot()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(slotUpDesc, err)
		return
	}
	for _, s := range states {
		slot := strconv.Itoa(s.Index)
		ch <- prometheus.MustNewConstMetric(slotUpDesc, prometheus.GaugeValue, boolValue(s.Up), slot)
		ch <- prometheus.MustNewConstMetric(slotStopDesc, prometheus.GaugeValue, boolValue(s.Command == procctl.CommandStop), slot)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
