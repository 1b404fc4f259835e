package syncctl

import (
	"sync"
	"testing"
	"time"

	"github.com/xdagjgo/xdagd/dagconfig"
	"github.com/xdagjgo/xdagd/xdagtype"
	"github.com/xdagjgo/xdagd/xdagwire"
)

type fakeRequester struct {
	mu          sync.Mutex
	peers       []PeerID
	sent        []xdagwire.Message
	disconnects []PeerID
}

func (f *fakeRequester) SendTo(peer PeerID, msg xdagwire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeRequester) Peers() []PeerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PeerID, len(f.peers))
	copy(out, f.peers)
	return out
}

func (f *fakeRequester) Disconnect(peer PeerID, reason xdagwire.DisconnectReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, peer)
}

func (f *fakeRequester) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func noopAdmit(raw []byte) error { return nil }

func TestStartBelowLagThresholdStaysSync(t *testing.T) {
	req := &fakeRequester{peers: []PeerID{"p1"}}
	c := New(dagconfig.DevNetParams, req, noopAdmit)

	if err := c.Start(10, 11); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateSync {
		t.Fatalf("state = %s, want SYNC", c.State())
	}
	if req.sentCount() != 0 {
		t.Fatalf("expected no requests issued while in SYNC")
	}
}

func TestStartAboveLagThresholdEntersSyncingAndFillsWindow(t *testing.T) {
	req := &fakeRequester{peers: []PeerID{"p1"}}
	c := New(dagconfig.DevNetParams, req, noopAdmit)

	remoteHeight := dagconfig.DevNetParams.SyncWindowSize + 50
	if err := c.Start(0, remoteHeight); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateSyncing {
		t.Fatalf("state = %s, want SYNCING", c.State())
	}
	wantWindow := int(dagconfig.DevNetParams.SyncWindowSize)
	if c.InFlight() != wantWindow {
		t.Fatalf("InFlight = %d, want %d", c.InFlight(), wantWindow)
	}
}

func TestHandleHeaderKnownBlockSkipsBodyFetch(t *testing.T) {
	req := &fakeRequester{peers: []PeerID{"p1"}}
	c := New(dagconfig.DevNetParams, req, noopAdmit)
	remoteHeight := uint64(dagconfig.DevNetParams.SyncLagThreshold) + 1
	if err := c.Start(0, remoteHeight); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateSyncing {
		t.Fatalf("state = %s, want SYNCING", c.State())
	}

	hash := xdagtype.HashData([]byte("known block")).LowHash()
	before := req.sentCount()
	for h := uint64(1); h <= remoteHeight; h++ {
		err := c.HandleHeader(&xdagwire.MsgMainBlockHeader{Height: h, HashLow: hash}, func(xdagtype.Hash256) bool { return true })
		if err != nil {
			t.Fatalf("HandleHeader(%d): %v", h, err)
		}
	}
	if req.sentCount() != before {
		t.Fatalf("a known block should not trigger a body fetch")
	}
	if c.State() != StateSync {
		t.Fatalf("state = %s, want SYNC after reaching tip", c.State())
	}
}

func TestHandleHeaderUnknownBlockRequestsBody(t *testing.T) {
	req := &fakeRequester{peers: []PeerID{"p1"}}
	c := New(dagconfig.DevNetParams, req, noopAdmit)
	if err := c.Start(0, 5); err != nil {
		t.Fatalf("Start: %v", err)
	}

	hash := xdagtype.HashData([]byte("unknown block")).LowHash()
	before := req.sentCount()
	err := c.HandleHeader(&xdagwire.MsgMainBlockHeader{Height: 1, HashLow: hash}, func(xdagtype.Hash256) bool { return false })
	if err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	if req.sentCount() != before+1 {
		t.Fatalf("expected a GET_MAIN_BLOCK request to be issued")
	}
}

func TestTickReissuesTimedOutRequestToDifferentPeer(t *testing.T) {
	req := &fakeRequester{peers: []PeerID{"p1", "p2"}}
	c := New(dagconfig.DevNetParams, req, noopAdmit)
	remoteHeight := uint64(dagconfig.DevNetParams.SyncLagThreshold) + 1
	if err := c.Start(0, remoteHeight); err != nil {
		t.Fatalf("Start: %v", err)
	}

	timeout := time.Duration(dagconfig.DevNetParams.SyncRequestTimeoutMillis) * time.Millisecond
	future := time.Now().Add(timeout + time.Second)
	if err := c.Tick(future); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if c.InFlight() != int(remoteHeight) {
		t.Fatalf("InFlight = %d, want %d (requests should still be pending, just re-issued)", c.InFlight(), remoteHeight)
	}
	c.mu.Lock()
	peer := c.inFlight[1].peer
	c.mu.Unlock()
	if peer != "p2" {
		t.Fatalf("height 1 re-issued to %s, want p2", peer)
	}
}

func TestTickDisconnectsAfterMaxReissues(t *testing.T) {
	req := &fakeRequester{peers: []PeerID{"p1"}}
	c := New(dagconfig.DevNetParams, req, noopAdmit)
	if err := c.Start(0, uint64(dagconfig.DevNetParams.SyncLagThreshold)+1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	timeout := time.Duration(dagconfig.DevNetParams.SyncRequestTimeoutMillis) * time.Millisecond
	now := time.Now()
	for i := 0; i <= dagconfig.DevNetParams.SyncMaxReissues; i++ {
		now = now.Add(timeout + time.Second)
		if err := c.Tick(now); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}

	req.mu.Lock()
	disconnects := len(req.disconnects)
	req.mu.Unlock()
	if disconnects == 0 {
		t.Fatal("expected a disconnect after exceeding SyncMaxReissues")
	}
}
