// Package engine implements the single-threaded RDT core: the send
// buffer and resend list, the receive buffer and in-order delivery walk,
// and the four-action priority loop that drives them.
//
// Grounded on the teacher's Session.Update/HandleDataPacket/HandleACK/
// HandleNACK methods in source/protocol/raknet.go — an ACK dedup set, a
// recovery queue keyed by sequence number, and NACK-triggered resend from
// that queue — generalized from RakNet's ACK-range/NACK-range wire format
// to this protocol's per-packet cumulative-free ACKs, and cross-checked
// against the oldest-unacked-cursor bookkeeping in the pack's
// AhmadMuzakkir-reliable/conn.go.
package engine

import (
	"container/list"
	"sync/atomic"
	"time"

	"github.com/ventosilenzioso/go-rdt/internal/events"
	"github.com/ventosilenzioso/go-rdt/pkg/logger"
	"github.com/ventosilenzioso/go-rdt/pkg/rdt/packet"
	"github.com/ventosilenzioso/go-rdt/pkg/rdt/seqnum"
)

// idleSleep is the loop's back-off when no action fires in a pass.
const idleSleep = time.Millisecond

// Config holds the engine's tunables.
type Config struct {
	WSize    uint16
	Timeout  time.Duration
	InQueue  chan packet.Packet
	OutQueue chan packet.Packet
	FromSrc  chan []byte
	ToSnk    chan []byte

	// StrictAdmission selects the admission bound recorded as an open
	// question in spec §4.4: true uses the historical `< wSize - 1`
	// (one slot held back for the packet about to be sent), false uses
	// the nominal selective-repeat bound `< wSize`. The zero value
	// (false) selects `< wSize`; config.Default sets it to true,
	// matching the teacher's conservative-by-default posture.
	StrictAdmission bool

	Sender interface{ Ready() bool }
	Events *events.Manager
	Log    logger.Entry
}

// resendEntry is the payload kept alongside each node in resendList.
type resendEntry struct {
	seq uint16
}

// Engine is the sliding-window protocol core. It owns all window state
// exclusively and must only ever be driven by its own Run goroutine —
// nothing else may touch sendBuffer/receiveBuffer/resendList.
type Engine struct {
	space seqnum.Space
	cfg   Config

	sendBuffer  map[uint16]packet.Packet
	resendTimes map[uint16]time.Time
	resendList  *list.List
	resendNode  map[uint16]*list.Element

	nextSequenceNumber uint16

	receiveBuffer      map[uint16][]byte
	nextExpectedPacket uint16

	// windowOccupancy mirrors len(sendBuffer), updated atomically so
	// WindowOccupancy can be read from a metrics-sampling goroutine
	// without touching sendBuffer itself, which only the Run goroutine
	// may access.
	windowOccupancy atomic.Int64

	quit chan struct{}
	done chan struct{}
}

// New constructs an Engine over cfg. cfg.WSize must be > 0.
func New(cfg Config) *Engine {
	space := seqnum.New(cfg.WSize)
	return &Engine{
		space:         space,
		cfg:           cfg,
		sendBuffer:    make(map[uint16]packet.Packet),
		resendTimes:   make(map[uint16]time.Time),
		resendList:    list.New(),
		resendNode:    make(map[uint16]*list.Element),
		receiveBuffer: make(map[uint16][]byte),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Stop requests the engine to drain its send buffer and exit. It does
// not block; wait on Done() to observe actual termination.
func (e *Engine) Stop() {
	select {
	case <-e.quit:
	default:
		close(e.quit)
	}
}

// Done returns a channel closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// WindowOccupancy reports the current number of outstanding (unacked)
// send-buffer slots. Safe to call from any goroutine.
func (e *Engine) WindowOccupancy() int {
	return int(e.windowOccupancy.Load())
}

// Run executes the four-action priority loop until stopped and drained.
// It is meant to be the engine's only goroutine.
func (e *Engine) Run() {
	defer close(e.done)

	for {
		didWork := e.uploadOrderedPayloads()
		if !didWork {
			didWork = e.processOneInbound()
		}
		if !didWork {
			didWork = e.retransmitOne()
		}
		if !didWork {
			didWork = e.admitOne()
		}

		if e.stopRequested() && len(e.sendBuffer) == 0 {
			return
		}

		if !didWork {
			time.Sleep(idleSleep)
		}
	}
}

func (e *Engine) stopRequested() bool {
	select {
	case <-e.quit:
		return true
	default:
		return false
	}
}

// uploadOrderedPayloads is Action 1: deliver every contiguous, buffered
// payload starting at nextExpectedPacket to the application.
func (e *Engine) uploadOrderedPayloads() bool {
	if _, ok := e.receiveBuffer[e.nextExpectedPacket]; !ok {
		return false
	}

	for {
		payload, ok := e.receiveBuffer[e.nextExpectedPacket]
		if !ok {
			return true
		}
		select {
		case e.cfg.ToSnk <- payload:
			delete(e.receiveBuffer, e.nextExpectedPacket)
			e.nextExpectedPacket = e.space.Incr(e.nextExpectedPacket)
			e.fireDelivered(payload)
		default:
			return true // guard was true even though delivery is currently blocked
		}
	}
}

func (e *Engine) fireDelivered(payload []byte) {
	if e.cfg.Events == nil {
		return
	}
	e.cfg.Events.Fire(events.Event{Kind: events.PayloadDelivered, Timestamp: time.Now()})
	_ = payload
}

// processOneInbound is Action 2: handle exactly one packet from inQueue.
func (e *Engine) processOneInbound() bool {
	select {
	case p := <-e.cfg.InQueue:
		switch p.Type {
		case packet.Data:
			e.handleData(p)
		case packet.Ack:
			e.handleAck(p)
		}
		return true
	default:
		return false
	}
}

func (e *Engine) handleData(p packet.Packet) {
	// Acks must be robust to loss of the original ack: always re-ack.
	e.send(packet.Packet{Type: packet.Ack, SeqNum: p.SeqNum})

	d := e.space.Diff(p.SeqNum, e.nextExpectedPacket)
	if d >= e.space.WSize {
		// Outside the receiver window: a duplicate of an already
		// delivered packet. Still acked above, never buffered.
		return
	}
	e.receiveBuffer[p.SeqNum] = p.Payload
}

func (e *Engine) handleAck(p packet.Packet) {
	if _, ok := e.sendBuffer[p.SeqNum]; !ok {
		return // duplicate ack for an already-cleared slot: no-op
	}
	delete(e.sendBuffer, p.SeqNum)
	delete(e.resendTimes, p.SeqNum)
	if node, ok := e.resendNode[p.SeqNum]; ok {
		e.resendList.Remove(node)
		delete(e.resendNode, p.SeqNum)
	}
	e.windowOccupancy.Add(-1)
	if e.cfg.Events != nil {
		e.cfg.Events.Fire(events.Event{Kind: events.PacketAcked, SeqNum: p.SeqNum, Timestamp: time.Now()})
	}
}

// retransmitOne is Action 3: retransmit the single oldest timed-out
// outstanding packet, if any exists.
func (e *Engine) retransmitOne() bool {
	head := e.resendList.Front()
	if head == nil {
		return false
	}
	seq := head.Value.(resendEntry).seq

	if time.Since(e.resendTimes[seq]) <= e.cfg.Timeout {
		return true // guard met, inspection counts as progress
	}

	pkt := e.sendBuffer[seq]
	e.send(pkt)
	e.resendTimes[seq] = time.Now()
	e.resendList.MoveToBack(head)

	if e.cfg.Events != nil {
		e.cfg.Events.Fire(events.Event{Kind: events.PacketRetransmitted, SeqNum: seq, Timestamp: time.Now()})
	}
	return true
}

// admitOne is Action 4: admit one new payload from the application into
// the send window, if the window and the Sender both have capacity.
func (e *Engine) admitOne() bool {
	// Guards are checked before the non-blocking dequeue below: fromSrc
	// must stay strictly FIFO, so a payload is never pulled off only to
	// be pushed back (that would reorder it behind whatever Send()
	// enqueues next).
	if !e.windowHasCapacity() {
		return false
	}
	if e.cfg.Sender != nil && !e.cfg.Sender.Ready() {
		return false
	}

	select {
	case payload := <-e.cfg.FromSrc:
		seq := e.nextSequenceNumber
		pkt := packet.Packet{Type: packet.Data, SeqNum: seq, Payload: payload}
		e.sendBuffer[seq] = pkt
		e.resendTimes[seq] = time.Now()
		e.resendNode[seq] = e.resendList.PushBack(resendEntry{seq: seq})
		e.send(pkt)
		e.nextSequenceNumber = e.space.Incr(seq)
		e.windowOccupancy.Add(1)
		if e.cfg.Events != nil {
			e.cfg.Events.Fire(events.Event{Kind: events.PacketSent, SeqNum: seq, Timestamp: time.Now()})
		}
		return true
	default:
		return false
	}
}

func (e *Engine) windowHasCapacity() bool {
	if e.resendList.Len() == 0 {
		return true
	}
	head := e.resendList.Front().Value.(resendEntry).seq
	d := e.space.Diff(e.nextSequenceNumber, head)
	if e.cfg.StrictAdmission {
		return d < e.space.WSize-1
	}
	return d < e.space.WSize
}

func (e *Engine) send(p packet.Packet) {
	select {
	case e.cfg.OutQueue <- p:
	default:
		if e.cfg.Log.IsZero() {
			return
		}
		e.cfg.Log.Debug("outQueue full, dropping packet type=%v seq=%d", p.Type, p.SeqNum)
	}
}
