package reliability

import (
	"testing"
	"time"

	"reliudp/internal/wire"
)

func mkFrag(id, total, offset, length uint32) *wire.MessageFragment {
	return &wire.MessageFragment{
		FragID:         id,
		Reliable:       true,
		TotalLength:    total,
		Offset:         offset,
		FragmentLength: length,
		Payload:        make([]byte, length),
	}
}

func TestOnAckFullCoverageClears(t *testing.T) {
	e := New()
	now := time.Unix(0, 0)
	e.Track(now, mkFrag(1, 100, 0, 50))

	if e.InFlightCount() != 1 {
		t.Fatal("expected 1 in-flight entry")
	}
	e.OnAck(&wire.Ack{FragID: 1, Offset: 0, Length: 50})
	if e.InFlightCount() != 0 {
		t.Fatal("expected in-flight entry to clear on full ack")
	}
}

func TestOnAckPartialCoverageSplitsRemainder(t *testing.T) {
	e := New()
	now := time.Unix(0, 0)
	e.Track(now, mkFrag(1, 100, 0, 50))

	// Ack only the middle [10,30).
	e.OnAck(&wire.Ack{FragID: 1, Offset: 10, Length: 20})
	if e.InFlightCount() != 2 {
		t.Fatalf("expected 2 remaining sub-ranges, got %d", e.InFlightCount())
	}

	// Ack the rest.
	e.OnAck(&wire.Ack{FragID: 1, Offset: 0, Length: 10})
	e.OnAck(&wire.Ack{FragID: 1, Offset: 30, Length: 20})
	if e.InFlightCount() != 0 {
		t.Fatal("expected all sub-ranges cleared")
	}
}

func TestRetransmitDueAfterRTO(t *testing.T) {
	e := New()
	now := time.Unix(0, 0)
	e.Track(now, mkFrag(1, 100, 0, 50))

	due := e.RetransmitDue(now.Add(10*time.Millisecond), 50*time.Millisecond)
	if len(due) != 0 {
		t.Fatal("should not be due before RTO elapses")
	}

	due = e.RetransmitDue(now.Add(100*time.Millisecond), 50*time.Millisecond)
	if len(due) != 1 {
		t.Fatalf("expected 1 due retransmission, got %d", len(due))
	}
	if due[0].FragID != 1 || due[0].TotalLength != 100 {
		t.Fatalf("retransmitted fragment malformed: %+v", due[0])
	}

	// Immediately after, it should not be due again (send time was reset).
	due = e.RetransmitDue(now.Add(110*time.Millisecond), 50*time.Millisecond)
	if len(due) != 0 {
		t.Fatal("retransmission should reset the send timer")
	}
}

func TestAckQueueFlush(t *testing.T) {
	e := New()
	if e.HasPendingAcks() {
		t.Fatal("expected no pending acks initially")
	}
	e.QueueAck(1, 0, 10)
	e.QueueAck(2, 0, 20)
	if !e.HasPendingAcks() {
		t.Fatal("expected pending acks")
	}
	acks := e.FlushAcks()
	if len(acks) != 2 {
		t.Fatalf("got %d acks, want 2", len(acks))
	}
	if e.HasPendingAcks() {
		t.Fatal("expected queue cleared after flush")
	}
}
