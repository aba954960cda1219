// Package events provides a small register/trigger pub-sub used to fan
// protocol lifecycle notifications out to the logging and metrics layers.
//
// Adapted from the teacher's core/events/events.go EventManager, which
// registered handlers for SA-MP game events (player connect, spawn,
// death, ...). The register/trigger shape is unchanged; the event
// vocabulary below is the RDT engine's, not a game's.
package events

import "time"

// Kind identifies a protocol lifecycle event.
type Kind int

const (
	// PeerLearned fires once, when the substrate first observes a
	// datagram and adopts its sender as the peer address.
	PeerLearned Kind = iota
	// PacketRetransmitted fires each time the engine retransmits a
	// timed-out send-buffer slot.
	PacketRetransmitted
	// PacketDropped fires when the Receiver task discards an inbound
	// packet because inQueue is full.
	PacketDropped
	// PayloadDelivered fires each time a payload is handed to the
	// application's toSnk queue.
	PayloadDelivered
	// PacketSent fires each time the engine admits a new payload and
	// hands its DATA packet to the Sender for the first time (excludes
	// retransmissions, which fire PacketRetransmitted instead).
	PacketSent
	// PacketAcked fires each time the engine clears a send-buffer slot
	// in response to an ACK (a duplicate ACK for an already-cleared
	// slot does not fire this again).
	PacketAcked
)

// Event is a single lifecycle notification.
type Event struct {
	Kind      Kind
	SeqNum    uint16
	Timestamp time.Time
}

// Handler receives events of a registered Kind.
type Handler func(Event)

// Manager dispatches events to registered handlers.
type Manager struct {
	handlers map[Kind][]Handler
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{handlers: make(map[Kind][]Handler)}
}

// On registers handler to be called whenever an event of kind fires.
func (m *Manager) On(kind Kind, handler Handler) {
	m.handlers[kind] = append(m.handlers[kind], handler)
}

// Fire dispatches event to every handler registered for its Kind.
func (m *Manager) Fire(event Event) {
	for _, handler := range m.handlers[event.Kind] {
		handler(event)
	}
}
