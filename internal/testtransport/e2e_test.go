package testtransport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"reliudp/internal/clock"
	"reliudp/internal/conn"
	"reliudp/internal/mux"
)

type addr string

func (a addr) Network() string { return "test" }
func (a addr) String() string  { return string(a) }

func scenarioConfig() mux.Config {
	cfg := mux.DefaultConfig()
	cfg.Conn.ProtocolID = 7
	cfg.Conn.HeartbeatInterval = 50 * time.Millisecond
	cfg.Conn.LivenessTimeout = 300 * time.Millisecond
	cfg.Conn.HandshakeInterval = 50 * time.Millisecond
	cfg.Conn.HandshakeTimeout = 1 * time.Second
	cfg.Conn.MinRTO = 20 * time.Millisecond
	cfg.Conn.InitialRTO = 40 * time.Millisecond
	cfg.Conn.MaxRTO = 200 * time.Millisecond
	return cfg
}

// handshake drives both sides until each has produced its Connected event,
// returning b's handle to a's connection (discovered from its Connected
// event) for tests that need to inspect b's Stats.
func handshake(t *testing.T, clk *clock.Manual, a, b *mux.Multiplexer, ha mux.Handle) mux.Handle {
	t.Helper()
	var hb mux.Handle
	for i := 0; i < 20; i++ {
		for _, e := range a.Poll() {
			if e.Kind == conn.EventConnected && e.Handle == ha {
				return hb
			}
		}
		for _, e := range b.Poll() {
			if e.Kind == conn.EventConnected {
				hb = e.Handle
			}
		}
		clk.Advance(20 * time.Millisecond)
	}
	t.Fatal("handshake did not complete")
	return hb
}

func TestScenarioSmallReliableExchange(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	aAddr, bAddr := addr("a"), addr("b")
	aIO, bIO := NewPair(aAddr, bAddr, 1)

	cfg := scenarioConfig()
	a := mux.New(cfg, clk, aIO)
	b := mux.New(cfg, clk, bIO)

	ha := a.Open(bAddr)
	hb := handshake(t, clk, a, b, ha)

	if err := a.Send(ha, []byte("hello"), true); err != nil {
		t.Fatal(err)
	}

	var message []byte
	for i := 0; i < 10 && message == nil; i++ {
		a.Poll()
		for _, e := range b.Poll() {
			if e.Kind == conn.EventMessage {
				message = e.Message
			}
		}
		clk.Advance(20 * time.Millisecond)
	}
	if string(message) != "hello" {
		t.Fatalf("message = %q, want %q", message, "hello")
	}

	if err := a.Close(ha); err != nil {
		t.Fatal(err)
	}
	var sawRemoteClosed bool
	for i := 0; i < 10 && !sawRemoteClosed; i++ {
		a.Poll()
		for _, e := range b.Poll() {
			if e.Kind == conn.EventDisconnected && e.Reason == conn.ReasonRemoteClosed && e.Handle == hb {
				sawRemoteClosed = true
			}
		}
		clk.Advance(20 * time.Millisecond)
	}
	if !sawRemoteClosed {
		t.Fatal("expected b to observe RemoteClosed")
	}
}

func TestScenarioFragmentedReliableWithDroppedFragments(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	aAddr, bAddr := addr("a"), addr("b")
	aIO, bIO := NewPair(aAddr, bAddr, 2)

	cfg := scenarioConfig()
	cfg.Conn.MTU = 40
	a := mux.New(cfg, clk, aIO)
	b := mux.New(cfg, clk, bIO)

	ha := a.Open(bAddr)
	handshake(t, clk, a, b, ha)

	payload := bytes.Repeat([]byte{0x42}, 200)
	if err := a.Send(ha, payload, true); err != nil {
		t.Fatal(err)
	}

	// Drop the 2nd and 4th fragment sends on first transmission only.
	base := aIO.SentCount()
	aIO.DropIndices = map[int]bool{base + 2: true, base + 4: true}

	var message []byte
	for i := 0; i < 30 && message == nil; i++ {
		a.Poll()
		for _, e := range b.Poll() {
			if e.Kind == conn.EventMessage {
				message = e.Message
			}
		}
		clk.Advance(30 * time.Millisecond)
	}
	if !bytes.Equal(message, payload) {
		t.Fatalf("message length = %d, want %d matching 0x42 bytes", len(message), len(payload))
	}

	stats, ok := a.Stats(ha)
	if !ok {
		t.Fatal("expected a's connection to still exist")
	}
	for i := 0; i < 10 && stats.InFlightRanges != 0; i++ {
		a.Poll()
		b.Poll()
		clk.Advance(30 * time.Millisecond)
		stats, _ = a.Stats(ha)
	}
	if stats.InFlightRanges != 0 {
		t.Fatalf("in-flight ranges = %d, want 0 once all acks land", stats.InFlightRanges)
	}
}

func TestScenarioDroppedFinalAckStillSuppressesDuplicate(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	aAddr, bAddr := addr("a"), addr("b")
	aIO, bIO := NewPair(aAddr, bAddr, 3)

	cfg := scenarioConfig()
	cfg.Conn.MTU = 50
	a := mux.New(cfg, clk, aIO)
	b := mux.New(cfg, clk, bIO)

	ha := a.Open(bAddr)
	handshake(t, clk, a, b, ha)

	payload := bytes.Repeat([]byte{0x7}, 100)
	if err := a.Send(ha, payload, true); err != nil {
		t.Fatal(err)
	}

	var message []byte
	messageCount := 0
	droppedOneAck := false
	for i := 0; i < 30; i++ {
		a.Poll()

		if !droppedOneAck {
			// Drop b's ack for the final fragment, once. At MTU 50 the four
			// acks b sends this pass are packed as [1,2,3] then [4], so the
			// second datagram carries the final ack.
			base := bIO.SentCount()
			bIO.DropIndices = map[int]bool{base + 2: true}
			droppedOneAck = true
		} else {
			bIO.DropIndices = nil
		}

		for _, e := range b.Poll() {
			if e.Kind == conn.EventMessage {
				message = e.Message
				messageCount++
			}
		}
		clk.Advance(30 * time.Millisecond)
	}

	if messageCount != 1 {
		t.Fatalf("message delivered %d times, want exactly 1 (at-most-once)", messageCount)
	}
	if !bytes.Equal(message, payload) {
		t.Fatal("delivered message does not match sent payload")
	}

	stats, _ := a.Stats(ha)
	for i := 0; i < 10 && stats.InFlightRanges != 0; i++ {
		a.Poll()
		b.Poll()
		clk.Advance(30 * time.Millisecond)
		stats, _ = a.Stats(ha)
	}
	if stats.InFlightRanges != 0 {
		t.Fatal("expected a's in-flight set to clear once the retransmit is acked")
	}
}

func TestScenarioUnreliableLossNoRetransmits(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	aAddr, bAddr := addr("a"), addr("b")
	aIO, bIO := NewPair(aAddr, bAddr, 4)

	cfg := scenarioConfig()
	cfg.Conn.MTU = 30 // forces one unreliable message per packet, so the
	// 30% drop below applies per-message rather than per-batch.
	a := mux.New(cfg, clk, aIO)
	b := mux.New(cfg, clk, bIO)

	ha := a.Open(bAddr)
	handshake(t, clk, a, b, ha)

	aIO.DropFraction = 0.3

	for i := 0; i < 100; i++ {
		if err := a.Send(ha, bytes.Repeat([]byte{byte(i)}, 4), false); err != nil {
			t.Fatal(err)
		}
	}

	received := 0
	for i := 0; i < 5; i++ {
		a.Poll()
		for _, e := range b.Poll() {
			if e.Kind == conn.EventMessage {
				received++
			}
		}
		clk.Advance(10 * time.Millisecond)
	}

	if received == 0 || received > 100 {
		t.Fatalf("received = %d, want a partial subset of 100", received)
	}
	stats, _ := a.Stats(ha)
	if stats.RetransmitCount != 0 {
		t.Fatalf("retransmit count = %d, want 0 for unreliable traffic", stats.RetransmitCount)
	}
}

func TestScenarioHandshakeMismatch(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	aAddr, bAddr := addr("a"), addr("b")
	aIO, bIO := NewPair(aAddr, bAddr, 5)

	aCfg := scenarioConfig()
	bCfg := scenarioConfig()
	bCfg.Conn.ProtocolID = 99

	a := mux.New(aCfg, clk, aIO)
	b := mux.New(bCfg, clk, bIO)

	ha := a.Open(bAddr)

	var aDead bool
	for i := 0; i < 60 && !aDead; i++ {
		for _, e := range a.Poll() {
			if e.Handle == ha && e.Kind == conn.EventDisconnected {
				if e.Reason != conn.ReasonHandshakeTimeout {
					t.Fatalf("reason = %v, want HandshakeTimeout", e.Reason)
				}
				aDead = true
			}
		}
		for _, e := range b.Poll() {
			if e.Kind == conn.EventConnected {
				t.Fatal("b must never see Connected with a mismatched protocol id")
			}
		}
		clk.Advance(20 * time.Millisecond)
	}
	if !aDead {
		t.Fatal("expected a to reach HandshakeTimeout")
	}
}

func TestScenarioGracefulCloseRace(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	aAddr, bAddr := addr("a"), addr("b")
	aIO, bIO := NewPair(aAddr, bAddr, 6)

	cfg := scenarioConfig()
	a := mux.New(cfg, clk, aIO)
	b := mux.New(cfg, clk, bIO)

	ha := a.Open(bAddr)
	hb := handshake(t, clk, a, b, ha)

	if err := a.Close(ha); err != nil {
		t.Fatal(err)
	}
	aIO.DropFraction = 1.0 // drop everything a sends from here on

	var disconnectCount int
	var reason conn.DisconnectReason
	for i := 0; i < 40; i++ {
		a.Poll()
		for _, e := range b.Poll() {
			if e.Kind == conn.EventDisconnected && e.Handle == hb {
				disconnectCount++
				reason = e.Reason
			}
		}
		clk.Advance(20 * time.Millisecond)
	}

	if disconnectCount != 1 {
		t.Fatalf("b saw %d Disconnected events, want exactly 1", disconnectCount)
	}
	if reason != conn.ReasonTimeout {
		t.Fatalf("reason = %v, want Timeout", reason)
	}
}

var _ net.Addr = addr("")
