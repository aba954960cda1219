// Package substrate implements the lossy packet channel the RDT engine
// sits on top of: a Receiver task and a Sender task sharing one UDP
// socket split by direction, plus the one-shot peer-address slot the
// Receiver uses to tell the Sender who to talk to.
//
// Grounded on the teacher's Server.listen()/updateLoop()/
// sessionCleanupLoop() goroutine-per-loop shape in source/server/server.go,
// generalized from a many-client SA-MP server to a single two-peer RDT
// channel.
package substrate

import (
	"net"
	"sync"

	"github.com/ventosilenzioso/go-rdt/pkg/rdt/packet"
)

// InQueueCapacity and OutQueueCapacity are the bounded FIFO sizes
// mandated by spec §3.
const (
	InQueueCapacity  = 1000
	OutQueueCapacity = 1000
)

// PeerSlot is a one-shot settable address: the Receiver sets it once on
// the first datagram observed (unless pkg/rdt.New has already pre-seeded
// it from a configured peer address), and the Sender only ever reads it
// afterward. This replaces the teacher's
// approach of storing the peer directly as a mutable Session.Addr field
// guarded by a general-purpose mutex, per spec §9's recommendation to
// route this through a one-shot primitive.
type PeerSlot struct {
	mu   sync.Mutex
	addr *net.UDPAddr
	set  chan struct{}
	once sync.Once
}

// NewPeerSlot creates an unset slot.
func NewPeerSlot() *PeerSlot {
	return &PeerSlot{set: make(chan struct{})}
}

// TrySet adopts addr as the peer if the slot is still unset. It reports
// whether addr matches the already-adopted peer (true if unset-then-set,
// or already set to the same address; false on a genuine mismatch).
func (p *PeerSlot) TrySet(addr *net.UDPAddr) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.addr == nil {
		p.addr = addr
		p.once.Do(func() { close(p.set) })
		return true
	}
	return p.addr.IP.Equal(addr.IP) && p.addr.Port == addr.Port
}

// Get returns the adopted address, or nil if none has been set yet.
func (p *PeerSlot) Get() *net.UDPAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// Known returns a channel that closes once the peer address has been
// adopted.
func (p *PeerSlot) Known() <-chan struct{} {
	return p.set
}

// Decoded is a packet paired with arrival bookkeeping the engine does not
// need but the substrate does (none today — kept for symmetry with the
// outbound side and to leave room for per-packet receive timestamps).
type Decoded struct {
	Packet packet.Packet
}

// Stats are the counters the Receiver/Sender maintain for observability.
type Stats struct {
	Received   uint64
	Dropped    uint64 // inQueue was full
	Sent       uint64
	LossInject uint64 // discProb claimed the packet
}
