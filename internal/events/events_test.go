package events

import "testing"

func TestFireCallsRegisteredHandlers(t *testing.T) {
	m := NewManager()

	var got []Event
	m.On(PacketRetransmitted, func(e Event) { got = append(got, e) })

	m.Fire(Event{Kind: PacketRetransmitted, SeqNum: 5})
	m.Fire(Event{Kind: PeerLearned})

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if got[0].SeqNum != 5 {
		t.Errorf("SeqNum = %d, want 5", got[0].SeqNum)
	}
}

func TestFireWithNoHandlersIsNoop(t *testing.T) {
	m := NewManager()
	m.Fire(Event{Kind: PeerLearned})
}

func TestMultipleHandlersAllCalled(t *testing.T) {
	m := NewManager()
	calls := 0
	m.On(PayloadDelivered, func(Event) { calls++ })
	m.On(PayloadDelivered, func(Event) { calls++ })

	m.Fire(Event{Kind: PayloadDelivered})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
