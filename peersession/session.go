// Package peersession implements the per-connection state machine of
// spec.md §6: the HELLO/WORLD handshake, ping/pong liveness, and
// disconnect-reason propagation. It owns exactly one msgqueue.Queue and
// is driven by whatever transport loop reads xdagwire frames off the
// socket; peersession itself never touches net.Conn.
package peersession

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/dagconfig"
	"github.com/xdagjgo/xdagd/internal/logs"
	"github.com/xdagjgo/xdagd/msgqueue"
	"github.com/xdagjgo/xdagd/xdagtype"
	"github.com/xdagjgo/xdagd/xdagwire"
)

var log = logs.Get(logs.TagPEER)

// State is a session's position in the handshake/liveness lifecycle.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateReady:
		return "READY"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// ErrUnexpectedMessage is returned by HandleMessage when an opcode
// arrives that the current state does not permit (spec.md §6): e.g. a
// MAIN_BLOCK before the handshake has completed.
var ErrUnexpectedMessage = errors.New("peersession: unexpected message for current state")

// Session is one peer connection's handshake and liveness state
// machine. All exported methods are safe for concurrent use; the
// session itself has no goroutine of its own — the caller must call
// SendPing periodically if liveness checking is wanted.
type Session struct {
	params dagconfig.Params
	queue  *msgqueue.Queue

	mu             sync.Mutex
	state          State
	inbound        bool
	pendingNonce   uint64
	nonceSeq       uint64
	missedPongs    int
	peerNetworkID  uint32
	peerTipLow     xdagtype.Hash256
	peerNodeID     [20]byte
	handshakeTimer *time.Timer

	onReady      func()
	onDisconnect func(xdagwire.DisconnectReason)
}

// Options configures a new Session.
type Options struct {
	Inbound      bool
	OnReady      func()
	OnDisconnect func(xdagwire.DisconnectReason)
}

// New creates a Session in StateConnecting, bound to queue for sending.
func New(params dagconfig.Params, queue *msgqueue.Queue, opts Options) *Session {
	return &Session{
		params:       params,
		queue:        queue,
		state:        StateConnecting,
		inbound:      opts.Inbound,
		onReady:      opts.OnReady,
		onDisconnect: opts.OnDisconnect,
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginHandshake moves the session into StateHandshaking. An outbound
// session sends HELLO immediately; an inbound session simply starts
// waiting for one, per spec.md §6's "direction is contextual" framing
// of the HELLO/WORLD opcode. A handshake that doesn't complete within
// HandshakeTimeoutMillis disconnects with ReasonTimeout.
func (s *Session) BeginHandshake(selfTip xdagtype.Hash256, selfPort uint16, selfNodeID [20]byte) error {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return errors.Errorf("peersession: BeginHandshake called in state %s", s.state)
	}
	s.state = StateHandshaking
	s.handshakeTimer = time.AfterFunc(time.Duration(s.params.HandshakeTimeoutMillis)*time.Millisecond, func() {
		s.disconnect(xdagwire.ReasonTimeout)
	})
	s.mu.Unlock()

	if !s.inbound {
		hello := &xdagwire.MsgHello{
			NetworkID: uint32(s.params.NetworkID),
			Version:   1,
			TipLow:    selfTip,
			Port:      selfPort,
			NodeID:    selfNodeID,
		}
		return s.sendOrDisconnect(hello)
	}
	return nil
}

// sendOrDisconnect sends msg and, if the queue has overflowed, finishes
// tearing the session down. The queue has already enqueued its own
// DISCONNECT(MESSAGE_QUEUE_FULL) and closed itself (spec.md §4.5); this
// just runs the same state-transition-and-callback path disconnect uses
// for every other disconnect reason.
func (s *Session) sendOrDisconnect(msg xdagwire.Message) error {
	err := s.queue.Send(msg)
	if errors.Is(err, msgqueue.ErrQueueFull) {
		s.disconnect(xdagwire.ReasonMessageQueueFull)
	}
	return err
}

// HandleMessage dispatches an inbound frame according to the session's
// current state (spec.md §6's opcode-switch dispatch, generalized to a
// state machine so an out-of-order message becomes a clean disconnect
// instead of undefined behavior).
func (s *Session) HandleMessage(msg xdagwire.Message, selfTip xdagtype.Hash256, selfPort uint16, selfNodeID [20]byte) error {
	switch m := msg.(type) {
	case *xdagwire.MsgHello:
		return s.handleHello(m, selfTip, selfPort, selfNodeID)
	case *xdagwire.MsgPing:
		return s.handlePing(m)
	case *xdagwire.MsgDisconnect:
		s.mu.Lock()
		s.state = StateDisconnected
		cb := s.onDisconnect
		s.mu.Unlock()
		if cb != nil {
			cb(m.Reason)
		}
		return nil
	default:
		s.mu.Lock()
		ready := s.state == StateReady
		s.mu.Unlock()
		if !ready {
			s.disconnect(xdagwire.ReasonUnexpectedMessage)
			return ErrUnexpectedMessage
		}
		return nil
	}
}

func (s *Session) handleHello(m *xdagwire.MsgHello, selfTip xdagtype.Hash256, selfPort uint16, selfNodeID [20]byte) error {
	s.mu.Lock()
	if s.state != StateHandshaking {
		s.mu.Unlock()
		s.disconnect(xdagwire.ReasonUnexpectedMessage)
		return ErrUnexpectedMessage
	}
	if m.NetworkID != uint32(s.params.NetworkID) {
		s.mu.Unlock()
		s.disconnect(xdagwire.ReasonBadNetwork)
		return errors.Errorf("peersession: peer network %d does not match ours %d", m.NetworkID, s.params.NetworkID)
	}

	s.peerNetworkID = m.NetworkID
	s.peerTipLow = m.TipLow
	s.peerNodeID = m.NodeID
	s.state = StateReady
	if s.handshakeTimer != nil {
		s.handshakeTimer.Stop()
	}
	cb := s.onReady
	inbound := s.inbound
	s.mu.Unlock()

	if inbound {
		world := &xdagwire.MsgHello{
			NetworkID: uint32(s.params.NetworkID),
			Version:   1,
			TipLow:    selfTip,
			Port:      selfPort,
			NodeID:    selfNodeID,
		}
		if err := s.sendOrDisconnect(world); err != nil {
			return err
		}
	}

	if cb != nil {
		cb()
	}
	return nil
}

func (s *Session) handlePing(m *xdagwire.MsgPing) error {
	s.mu.Lock()
	ready := s.state == StateReady
	awaiting := s.pendingNonce != 0 && m.Nonce == s.pendingNonce
	if awaiting {
		s.pendingNonce = 0
		s.missedPongs = 0
	}
	s.mu.Unlock()

	if awaiting {
		return nil // this was our own nonce echoed back as a PONG
	}
	if !ready {
		s.disconnect(xdagwire.ReasonUnexpectedMessage)
		return ErrUnexpectedMessage
	}
	return s.sendOrDisconnect(&xdagwire.MsgPing{Nonce: m.Nonce}) // echo as PONG
}

// SendPing issues a liveness probe and advances the missed-pong
// counter, disconnecting with ReasonTimeout once that counter exceeds
// MaxMissedPongs. The caller invokes it, e.g. once per
// PingIntervalMillis from its own ticker.
func (s *Session) SendPing() error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil
	}
	s.nonceSeq++
	nonce := s.nonceSeq
	s.pendingNonce = nonce
	s.missedPongs++
	missed := s.missedPongs
	s.mu.Unlock()

	if missed > s.params.MaxMissedPongs {
		s.disconnect(xdagwire.ReasonTimeout)
		return nil
	}
	return s.sendOrDisconnect(&xdagwire.MsgPing{Nonce: nonce})
}

// disconnect transitions to StateDisconnected, enqueues a DISCONNECT
// frame (best-effort — a full queue or already-closed queue is not an
// error here), and invokes the registered callback exactly once.
func (s *Session) disconnect(reason xdagwire.DisconnectReason) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	if s.handshakeTimer != nil {
		s.handshakeTimer.Stop()
	}
	cb := s.onDisconnect
	s.mu.Unlock()

	_ = s.queue.Send(&xdagwire.MsgDisconnect{Reason: reason})
	if cb != nil {
		cb(reason)
	}
}

// Disconnect is the externally triggered counterpart of disconnect, for
// callers that need to close a session for a reason peersession itself
// didn't detect (e.g. a sync-controller strike-out).
func (s *Session) Disconnect(reason xdagwire.DisconnectReason) {
	s.disconnect(reason)
}

// PeerTipLow reports the low hash the peer last claimed as its tip.
func (s *Session) PeerTipLow() xdagtype.Hash256 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTipLow
}
