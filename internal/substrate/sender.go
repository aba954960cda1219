package substrate

import (
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/ventosilenzioso/go-rdt/pkg/logger"
	"github.com/ventosilenzioso/go-rdt/pkg/rdt/packet"
)

// idleDequeueTimeout bounds each blocking dequeue from outQueue so the
// Sender notices quit without a separate select-on-everything loop.
const idleDequeueTimeout = 100 * time.Millisecond

// senderIdleShutdown mirrors receiverIdleShutdown for the send side.
const senderIdleShutdown = 3 * time.Second

// Sender owns the write half of the UDP socket. It waits for the peer
// address to be known, then drains outQueue, optionally dropping a
// fraction of packets to simulate a lossy channel (discProb), and writes
// the rest to the socket.
//
// Grounded on the teacher's Server.updateLoop(), which likewise drains a
// per-session send queue on a timer (source/server/server.go); here the
// queue is the shared outQueue channel instead of Session.SendQueue.
type Sender struct {
	conn     *net.UDPConn
	peer     *PeerSlot
	outQueue chan packet.Packet
	discProb float64
	rng      *rand.Rand
	log      logger.Entry

	sent   atomic.Uint64
	dashed atomic.Uint64
}

// NewSender constructs a Sender writing to conn, addressed at whatever
// peer becomes known, draining outQueue, dropping discProb fraction of
// packets before they hit the wire (0 disables loss injection).
func NewSender(conn *net.UDPConn, peer *PeerSlot, outQueue chan packet.Packet, discProb float64, log logger.Entry) *Sender {
	return &Sender{
		conn:     conn,
		peer:     peer,
		outQueue: outQueue,
		discProb: discProb,
		rng:      rand.New(rand.NewSource(1)),
		log:      log,
	}
}

// Ready reports whether outQueue has remaining capacity, per spec §4.3.
// The engine consults this before admitting a new DATA packet; it does
// not gate on peer discovery (a not-yet-known peer simply means writeOne
// has nowhere to send yet, not that the queue is full).
func (s *Sender) Ready() bool {
	return len(s.outQueue) < cap(s.outQueue)
}

// Run blocks, servicing outQueue until quit is closed.
func (s *Sender) Run(quit <-chan struct{}) error {
	select {
	case <-s.peer.Known():
	case <-quit:
		return nil
	}

	idleSince := time.Now()
	timer := time.NewTimer(idleDequeueTimeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(idleDequeueTimeout)

		select {
		case <-quit:
			return nil
		case pkt := <-s.outQueue:
			idleSince = time.Now()
			s.writeOne(pkt)
		case <-timer.C:
			if time.Since(idleSince) > senderIdleShutdown {
				s.log.Debug("sender idle for %s, stopping", senderIdleShutdown)
				return nil
			}
		}
	}
}

func (s *Sender) writeOne(pkt packet.Packet) {
	if s.discProb > 0 && s.rng.Float64() < s.discProb {
		s.dashed.Add(1)
		s.log.Debug("loss-injecting packet seq=%d", pkt.SeqNum)
		return
	}

	buf, err := packet.Encode(pkt)
	if err != nil {
		s.log.Error("failed to encode outbound packet seq=%d: %v", pkt.SeqNum, err)
		return
	}

	addr := s.peer.Get()
	if addr == nil {
		return
	}
	if _, err := s.conn.WriteToUDP(buf, addr); err != nil {
		s.log.Warn("udp write error: %v", err)
		return
	}
	s.sent.Add(1)
}

// Stats reports a snapshot of the send-side counters.
func (s *Sender) Stats() Stats {
	return Stats{Sent: s.sent.Load(), LossInject: s.dashed.Load()}
}
