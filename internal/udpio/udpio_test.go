package udpio

import (
	"testing"
	"time"
)

func TestSendToPollRecvRoundTrip(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.SendTo([]byte("hello"), b.LocalAddr()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, addr, ok := b.PollRecv()
		if ok {
			if string(data) != "hello" {
				t.Fatalf("data = %q, want %q", data, "hello")
			}
			if addr == nil {
				t.Fatal("expected a non-nil source address")
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for datagram")
}

func TestPollRecvEmptyReturnsFalse(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, _, ok := a.PollRecv(); ok {
		t.Fatal("expected no datagram waiting")
	}
}
