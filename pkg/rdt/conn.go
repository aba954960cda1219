// Package rdt is the application-facing API: Conn opens a UDP socket,
// wires the Receiver/Sender substrate tasks to the RDT engine, and
// exposes a Send/Receive interface backed by the bounded queues spec'd
// for the rest of the system.
//
// Grounded on the teacher's Server type in source/server/server.go
// (Start/Stop lifecycle, goroutine-per-loop supervision) generalized
// from a many-client listener to a single two-peer connection, and
// supervised with golang.org/x/sync/errgroup instead of unmanaged `go`
// statements, matching the pack's 0xinfinitykernel-telepresence stack.
package rdt

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ventosilenzioso/go-rdt/internal/config"
	"github.com/ventosilenzioso/go-rdt/internal/engine"
	"github.com/ventosilenzioso/go-rdt/internal/events"
	"github.com/ventosilenzioso/go-rdt/internal/metrics"
	"github.com/ventosilenzioso/go-rdt/internal/substrate"
	"github.com/ventosilenzioso/go-rdt/pkg/logger"
	"github.com/ventosilenzioso/go-rdt/pkg/rdt/packet"
)

// FromSrcCapacity and ToSnkCapacity are the bounded application-facing
// queue sizes mandated by spec §3 (same bound as the substrate queues).
const (
	FromSrcCapacity = 1000
	ToSnkCapacity   = 1000
)

const metricsSampleInterval = time.Second

// Conn is a single RDT connection: one UDP socket, one engine, two
// substrate tasks. Every Conn carries its own session id, used to tag
// log lines and Prometheus labels so multiple Conns in one process never
// collide.
type Conn struct {
	sessionID string
	log       logger.Entry

	conn *net.UDPConn
	peer *substrate.PeerSlot

	receiver *substrate.Receiver
	sender   *substrate.Sender
	engine   *engine.Engine

	events  *events.Manager
	metrics *metrics.Collector

	fromSrc  chan []byte
	toSnk    chan []byte
	inQueue  chan packet.Packet
	outQueue chan packet.Packet

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New binds a UDP socket per cfg and wires the substrate and engine
// together, but does not start any goroutines — call Start for that.
// If cfg.PeerAddr is set, it is pre-seeded into the peer slot so Sends
// can begin immediately instead of waiting to learn the peer from an
// inbound datagram.
func New(cfg config.Config, reg prometheus.Registerer) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving listen address: %w", err)
	}
	sock, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding udp socket: %w", err)
	}

	sessionID := uuid.NewString()
	log := logger.For("conn", map[string]interface{}{"session": sessionID})

	peer := substrate.NewPeerSlot()
	if cfg.PeerAddr != "" {
		peerAddr, err := net.ResolveUDPAddr("udp", cfg.PeerAddr)
		if err != nil {
			sock.Close()
			return nil, fmt.Errorf("resolving peer address: %w", err)
		}
		peer.TrySet(peerAddr)
	}

	em := events.NewManager()
	var coll *metrics.Collector
	if reg != nil {
		coll = metrics.NewCollector(reg, sessionID)
		em.On(events.PacketSent, coll.ObserveEvent)
		em.On(events.PacketAcked, coll.ObserveEvent)
		em.On(events.PacketRetransmitted, coll.ObserveEvent)
		em.On(events.PacketDropped, coll.ObserveEvent)
		em.On(events.PayloadDelivered, coll.ObserveEvent)
	}

	inQueue := make(chan packet.Packet, substrate.InQueueCapacity)
	outQueue := make(chan packet.Packet, substrate.OutQueueCapacity)
	fromSrc := make(chan []byte, FromSrcCapacity)
	toSnk := make(chan []byte, ToSnkCapacity)

	receiver := substrate.NewReceiver(sock, peer, inQueue, em, logger.For("receiver", map[string]interface{}{"session": sessionID}))
	sender := substrate.NewSender(sock, peer, outQueue, cfg.DiscProb, logger.For("sender", map[string]interface{}{"session": sessionID}))

	eng := engine.New(engine.Config{
		WSize:           cfg.WSize,
		Timeout:         cfg.Timeout,
		InQueue:         inQueue,
		OutQueue:        outQueue,
		FromSrc:         fromSrc,
		ToSnk:           toSnk,
		StrictAdmission: cfg.StrictAdmission,
		Sender:          sender,
		Events:          em,
		Log:             logger.For("engine", map[string]interface{}{"session": sessionID}),
	})

	return &Conn{
		sessionID: sessionID,
		log:       log,
		conn:      sock,
		peer:      peer,
		receiver:  receiver,
		sender:    sender,
		engine:    eng,
		events:    em,
		metrics:   coll,
		fromSrc:   fromSrc,
		toSnk:     toSnk,
		inQueue:   inQueue,
		outQueue:  outQueue,
	}, nil
}

// Start launches the Receiver, Sender, and engine tasks, plus a metrics
// sampling loop if a Collector was configured. It returns immediately;
// errors from any task surface from Stop.
func (c *Conn) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	c.group = g

	// quit tears down the Receiver and Sender tasks. It must not close
	// until the engine has actually drained its send buffer: per spec
	// §5/§9, the engine "continues until the send buffer drains" while
	// Receiver/Sender self-terminate on idle, so outstanding ACKs and
	// retransmissions still need a live substrate underneath the engine
	// while it finishes draining.
	quit := make(chan struct{})

	g.Go(func() error { return c.receiver.Run(quit) })
	g.Go(func() error { return c.sender.Run(quit) })
	g.Go(func() error {
		go c.engine.Run()
		<-gctx.Done()
		c.engine.Stop()
		<-c.engine.Done()
		close(quit)
		return nil
	})
	if c.metrics != nil {
		g.Go(func() error { return c.sampleMetrics(gctx) })
	}

	c.log.Info("connection started, listening on %s", c.conn.LocalAddr())
}

func (c *Conn) sampleMetrics(ctx context.Context) error {
	ticker := time.NewTicker(metricsSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.metrics.SetQueueDepths(metrics.QueueDepths{
				Window:   c.engine.WindowOccupancy(),
				InQueue:  len(c.inQueue),
				OutQueue: len(c.outQueue),
				FromSrc:  len(c.fromSrc),
				ToSnk:    len(c.toSnk),
			})
		}
	}
}

// Stop requests every task to wind down and blocks until they have.
func (c *Conn) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.group != nil {
		err = c.group.Wait()
	}
	c.conn.Close()
	c.log.Info("connection stopped")
	return err
}

// Ready reports whether fromSrc has room, i.e. whether Send would
// enqueue without blocking.
func (c *Conn) Ready() bool {
	return len(c.fromSrc) < cap(c.fromSrc)
}

// Send enqueues payload for transmission, blocking until fromSrc has
// room or ctx is done.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	select {
	case c.fromSrc <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next in-order payload is available or ctx is
// done.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-c.toSnk:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Incoming exposes the delivery channel directly, for callers that want
// to select on it alongside other events instead of calling Receive in a
// loop.
func (c *Conn) Incoming() <-chan []byte {
	return c.toSnk
}

// SessionID returns the UUID tagging this Conn's logs and metrics.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// LocalAddr returns the bound UDP address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}
