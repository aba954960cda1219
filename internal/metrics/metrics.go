// Package metrics exposes Prometheus instrumentation for a single RDT
// connection: packet-level counters driven off internal/events, plus
// gauges sampled directly from queue depths.
//
// Grounded on the pack's github.com/prometheus/client_golang dependency
// (0xinfinitykernel-telepresence/go.mod); the teacher itself ships no
// metrics at all, so this package has no teacher counterpart to adapt —
// it is new code wiring a pack dependency the spec's ambient stack calls
// for.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ventosilenzioso/go-rdt/internal/events"
)

// Collector bundles the counters and gauges for one Conn. Callers
// register it with a prometheus.Registerer of their choosing (or use the
// default one via NewCollector(prometheus.DefaultRegisterer, sessionID)).
type Collector struct {
	sent          prometheus.Counter
	acked         prometheus.Counter
	retransmitted prometheus.Counter
	dropped       prometheus.Counter
	delivered     prometheus.Counter

	windowOccupancy prometheus.Gauge
	inQueueDepth    prometheus.Gauge
	outQueueDepth   prometheus.Gauge
	fromSrcDepth    prometheus.Gauge
	toSnkDepth      prometheus.Gauge
}

// NewCollector builds a Collector labeled with sessionID and registers
// its metrics with reg. Pass a prometheus.NewRegistry() in tests to
// avoid colliding with other Conns' metrics under the same process.
func NewCollector(reg prometheus.Registerer, sessionID string) *Collector {
	labels := prometheus.Labels{"session": sessionID}

	newCounter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rdt",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		reg.MustRegister(c)
		return c
	}
	newGauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "rdt",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		reg.MustRegister(g)
		return g
	}

	return &Collector{
		sent:          newCounter("packets_sent_total", "DATA packets handed to the Sender"),
		acked:         newCounter("packets_acked_total", "ACKs processed, clearing a send-buffer slot"),
		retransmitted: newCounter("packets_retransmitted_total", "DATA packets retransmitted after timeout"),
		dropped:       newCounter("packets_dropped_total", "inbound packets dropped because inQueue was full"),
		delivered:     newCounter("payloads_delivered_total", "payloads handed to the application in order"),

		windowOccupancy: newGauge("window_occupancy", "current length of the resend list"),
		inQueueDepth:    newGauge("in_queue_depth", "current depth of the substrate inbound queue"),
		outQueueDepth:   newGauge("out_queue_depth", "current depth of the substrate outbound queue"),
		fromSrcDepth:    newGauge("from_src_queue_depth", "current depth of the application send queue"),
		toSnkDepth:      newGauge("to_snk_queue_depth", "current depth of the application receive queue"),
	}
}

// ObserveEvent updates the packet-level counters from a lifecycle event
// fired by internal/events. Register it with an events.Manager via
// em.On(kind, c.ObserveEvent) for every Kind the collector cares about.
func (c *Collector) ObserveEvent(e events.Event) {
	switch e.Kind {
	case events.PacketSent:
		c.sent.Inc()
	case events.PacketAcked:
		c.acked.Inc()
	case events.PacketRetransmitted:
		c.retransmitted.Inc()
	case events.PacketDropped:
		c.dropped.Inc()
	case events.PayloadDelivered:
		c.delivered.Inc()
	}
}

// QueueDepths is a snapshot of the four bounded-queue lengths plus the
// current window occupancy, sampled by the caller (Conn) on a ticker.
type QueueDepths struct {
	Window   int
	InQueue  int
	OutQueue int
	FromSrc  int
	ToSnk    int
}

// SetQueueDepths updates the gauges from a fresh snapshot.
func (c *Collector) SetQueueDepths(d QueueDepths) {
	c.windowOccupancy.Set(float64(d.Window))
	c.inQueueDepth.Set(float64(d.InQueue))
	c.outQueueDepth.Set(float64(d.OutQueue))
	c.fromSrcDepth.Set(float64(d.FromSrc))
	c.toSnkDepth.Set(float64(d.ToSnk))
}
