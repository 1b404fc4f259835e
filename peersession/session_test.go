package peersession

import (
	"testing"

	"github.com/xdagjgo/xdagd/dagconfig"
	"github.com/xdagjgo/xdagd/msgqueue"
	"github.com/xdagjgo/xdagd/xdagtype"
	"github.com/xdagjgo/xdagd/xdagwire"
)

func newTestSession(t *testing.T, inbound bool, onReady func(), onDisconnect func(xdagwire.DisconnectReason)) (*Session, *[]xdagwire.Message) {
	t.Helper()
	var sent []xdagwire.Message
	q := msgqueue.New(0, func(msg xdagwire.Message) error {
		sent = append(sent, msg)
		return nil
	})
	q.Activate()
	s := New(dagconfig.DevNetParams, q, Options{Inbound: inbound, OnReady: onReady, OnDisconnect: onDisconnect})
	return s, &sent
}

func TestOutboundHandshakeSendsHelloThenBecomesReady(t *testing.T) {
	ready := false
	s, sent := newTestSession(t, false, func() { ready = true }, nil)

	if err := s.BeginHandshake(xdagtype.ZeroHash, 8001, [20]byte{1}); err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}
	if err := s.queue.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(*sent) != 1 || (*sent)[0].Opcode() != xdagwire.OpHello {
		t.Fatalf("expected one HELLO to be sent, got %v", *sent)
	}

	world := &xdagwire.MsgHello{NetworkID: uint32(dagconfig.DevNetParams.NetworkID), Version: 1}
	if err := s.HandleMessage(world, xdagtype.ZeroHash, 8001, [20]byte{1}); err != nil {
		t.Fatalf("HandleMessage(WORLD): %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("state = %s, want READY", s.State())
	}
	if !ready {
		t.Fatal("onReady callback was not invoked")
	}
}

func TestInboundHandshakeRepliesWithWorld(t *testing.T) {
	s, sent := newTestSession(t, true, nil, nil)
	if err := s.BeginHandshake(xdagtype.ZeroHash, 8001, [20]byte{2}); err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}
	if err := s.queue.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("inbound session should not send first, got %v", *sent)
	}

	hello := &xdagwire.MsgHello{NetworkID: uint32(dagconfig.DevNetParams.NetworkID), Version: 1}
	if err := s.HandleMessage(hello, xdagtype.ZeroHash, 8001, [20]byte{2}); err != nil {
		t.Fatalf("HandleMessage(HELLO): %v", err)
	}
	if err := s.queue.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(*sent) != 1 || (*sent)[0].Opcode() != xdagwire.OpHello {
		t.Fatalf("expected a WORLD reply, got %v", *sent)
	}
	if s.State() != StateReady {
		t.Fatalf("state = %s, want READY", s.State())
	}
}

func TestMismatchedNetworkIDDisconnects(t *testing.T) {
	var gotReason xdagwire.DisconnectReason
	disconnected := false
	s, _ := newTestSession(t, true, nil, func(r xdagwire.DisconnectReason) {
		disconnected = true
		gotReason = r
	})
	if err := s.BeginHandshake(xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}

	hello := &xdagwire.MsgHello{NetworkID: uint32(dagconfig.MainNetParams.NetworkID)}
	if err := s.HandleMessage(hello, xdagtype.ZeroHash, 8001, [20]byte{}); err == nil {
		t.Fatal("expected an error for mismatched network ID")
	}
	if !disconnected || gotReason != xdagwire.ReasonBadNetwork {
		t.Fatalf("got disconnected=%v reason=%s, want BAD_NETWORK", disconnected, gotReason)
	}
}

func TestPingBeforeReadyDisconnects(t *testing.T) {
	disconnected := false
	s, _ := newTestSession(t, true, nil, func(xdagwire.DisconnectReason) { disconnected = true })
	if err := s.BeginHandshake(xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}

	if err := s.HandleMessage(&xdagwire.MsgPing{Nonce: 1}, xdagtype.ZeroHash, 8001, [20]byte{}); err == nil {
		t.Fatal("expected ErrUnexpectedMessage for a ping before handshake completes")
	}
	if !disconnected {
		t.Fatal("expected disconnect for out-of-state ping")
	}
}

func TestSendPingEchoClearsMissedCount(t *testing.T) {
	s, sent := newTestSession(t, false, nil, nil)
	if err := s.BeginHandshake(xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}
	world := &xdagwire.MsgHello{NetworkID: uint32(dagconfig.DevNetParams.NetworkID)}
	if err := s.HandleMessage(world, xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("HandleMessage(WORLD): %v", err)
	}

	if err := s.SendPing(); err != nil {
		t.Fatalf("SendPing: %v", err)
	}
	if err := s.queue.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	last := (*sent)[len(*sent)-1].(*xdagwire.MsgPing)

	if err := s.HandleMessage(&xdagwire.MsgPing{Nonce: last.Nonce}, xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("HandleMessage(pong echo): %v", err)
	}
	s.mu.Lock()
	missed := s.missedPongs
	s.mu.Unlock()
	if missed != 0 {
		t.Fatalf("missedPongs = %d, want 0 after echoed pong", missed)
	}
}

func TestMaxMissedPongsDisconnects(t *testing.T) {
	disconnected := false
	var reason xdagwire.DisconnectReason
	s, _ := newTestSession(t, false, nil, func(r xdagwire.DisconnectReason) {
		disconnected = true
		reason = r
	})
	if err := s.BeginHandshake(xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("BeginHandshake: %v", err)
	}
	world := &xdagwire.MsgHello{NetworkID: uint32(dagconfig.DevNetParams.NetworkID)}
	if err := s.HandleMessage(world, xdagtype.ZeroHash, 8001, [20]byte{}); err != nil {
		t.Fatalf("HandleMessage(WORLD): %v", err)
	}

	for i := 0; i <= dagconfig.DevNetParams.MaxMissedPongs; i++ {
		if err := s.SendPing(); err != nil {
			t.Fatalf("SendPing %d: %v", i, err)
		}
	}
	if !disconnected || reason != xdagwire.ReasonTimeout {
		t.Fatalf("got disconnected=%v reason=%s, want TIMEOUT", disconnected, reason)
	}
}
