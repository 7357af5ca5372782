package fragment

import "testing"

func TestSendEmptyMessageIsOneEmptyFragment(t *testing.T) {
	f := New()
	id, frags := f.Send(nil, true, 200)
	if len(frags) != 1 {
		t.Fatalf("got %d fragments, want 1", len(frags))
	}
	if frags[0].FragID != id || frags[0].TotalLength != 0 || frags[0].FragmentLength != 0 {
		t.Fatalf("unexpected empty fragment: %+v", frags[0])
	}
}

func TestSendSplitsAcrossMTU(t *testing.T) {
	f := New()
	mtu := 40
	msg := make([]byte, 200)
	for i := range msg {
		msg[i] = 0x42
	}

	id, frags := f.Send(msg, true, mtu)
	if len(frags) < 2 {
		t.Fatalf("expected multiple fragments for 200 bytes at mtu=%d, got %d", mtu, len(frags))
	}

	var reassembled []byte
	for _, fr := range frags {
		if fr.FragID != id {
			t.Fatalf("fragment id mismatch: %d != %d", fr.FragID, id)
		}
		if fr.Offset+fr.FragmentLength > fr.TotalLength {
			t.Fatalf("fragment out of bounds: %+v", fr)
		}
		raw, err := fr.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		if len(raw)+2 > mtu {
			t.Fatalf("fragment %d marshals to %d bytes, exceeds mtu %d", fr.Offset, len(raw), mtu)
		}
		reassembled = append(reassembled, fr.Payload...)
	}
	if string(reassembled) != string(msg) {
		t.Fatal("reassembled payload does not match original message")
	}
}

func TestFragIDsMonotonicallyIncrease(t *testing.T) {
	f := New()
	id1, _ := f.Send([]byte("a"), false, 200)
	id2, _ := f.Send([]byte("b"), false, 200)
	if id2 != id1+1 {
		t.Fatalf("ids not monotonic: %d then %d", id1, id2)
	}
}
