package substrate

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/ventosilenzioso/go-rdt/internal/events"
	"github.com/ventosilenzioso/go-rdt/pkg/logger"
	"github.com/ventosilenzioso/go-rdt/pkg/rdt/packet"
)

// idleReadTimeout bounds each blocking ReadFromUDP call so the Receiver
// can notice a closed conn or a quit signal instead of blocking forever,
// matching the spec's "~100 ms" substrate poll cadence.
const idleReadTimeout = 100 * time.Millisecond

// receiverIdleShutdown is how long the Receiver keeps running without a
// datagram arriving, counted from the last one and only once a first
// datagram has been received, before it gives up on its own, per spec
// §4.2's self-termination note.
const receiverIdleShutdown = 5 * time.Second

// Receiver owns the read half of the UDP socket. It learns the peer on
// the first datagram received, decodes every subsequent datagram, and
// pushes successfully decoded packets onto inQueue — dropping on a full
// queue rather than blocking, since a slow engine must never stall the
// socket read loop.
//
// Grounded on the teacher's Server.listen() loop (source/server/server.go),
// which also dispatches work per received UDP datagram; here the dispatch
// target is a bounded channel instead of a per-session goroutine.
type Receiver struct {
	conn    *net.UDPConn
	peer    *PeerSlot
	inQueue chan packet.Packet
	events  *events.Manager
	log     logger.Entry

	received atomic.Uint64
	dropped  atomic.Uint64

	peerAnnounced bool
}

// NewReceiver constructs a Receiver reading from conn, writing decoded
// packets to inQueue, and recording the peer's address into peer.
func NewReceiver(conn *net.UDPConn, peer *PeerSlot, inQueue chan packet.Packet, em *events.Manager, log logger.Entry) *Receiver {
	return &Receiver{conn: conn, peer: peer, inQueue: inQueue, events: em, log: log}
}

// Run blocks, servicing the socket until quit is closed or the idle
// shutdown fires (both return nil), or until a non-timeout read error, a
// datagram from an unexpected peer, or a malformed datagram (each
// returned as an error). It is meant to be run under an errgroup.
func (r *Receiver) Run(quit <-chan struct{}) error {
	buf := make([]byte, packet.MaxPayloadSize+64)
	idleSince := time.Now()

	for {
		select {
		case <-quit:
			return nil
		default:
		}

		r.conn.SetReadDeadline(time.Now().Add(idleReadTimeout))
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if time.Since(idleSince) > receiverIdleShutdown && r.peerAnnounced {
					r.log.Debug("receiver idle for %s after last packet, stopping", receiverIdleShutdown)
					return nil
				}
				continue
			}
			r.log.Warn("udp read error: %v", err)
			return err
		}
		idleSince = time.Now()

		// Per spec §4.2/§7, a datagram from a second, different sender
		// once the peer is known is a fatal protocol error, not a
		// packet to discard: this substrate only ever speaks to one
		// peer.
		if !r.peer.TrySet(addr) {
			err := fmt.Errorf("datagram from unexpected peer %s (expected %s)", addr, r.peer.Get())
			r.log.Error("%v", err)
			return err
		}
		if !r.peerAnnounced {
			r.peerAnnounced = true
			r.events.Fire(events.Event{Kind: events.PeerLearned, Timestamp: idleSince})
		}

		pkt, err := packet.Decode(buf[:n])
		if err != nil {
			err = fmt.Errorf("malformed datagram from %s: %w", addr, err)
			r.log.Error("%v", err)
			return err
		}

		r.received.Add(1)

		select {
		case r.inQueue <- pkt:
		default:
			r.dropped.Add(1)
			r.events.Fire(events.Event{Kind: events.PacketDropped, SeqNum: pkt.SeqNum, Timestamp: idleSince})
			r.log.Debug("inQueue full, dropping packet seq=%d", pkt.SeqNum)
		}
	}
}

// Stats reports a snapshot of the receive-side counters.
func (r *Receiver) Stats() Stats {
	return Stats{Received: r.received.Load(), Dropped: r.dropped.Load()}
}
