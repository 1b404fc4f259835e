package main

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/dagconsensus"
	"github.com/xdagjgo/xdagd/internal/logs"
	"github.com/xdagjgo/xdagd/msgqueue"
	"github.com/xdagjgo/xdagd/peersession"
	"github.com/xdagjgo/xdagd/syncctl"
	"github.com/xdagjgo/xdagd/xdagtype"
	"github.com/xdagjgo/xdagd/xdagwire"
)

var peerLog = logs.Get(logs.TagPEER)

// peerConn owns one TCP connection: a msgqueue.Queue for outbound
// framing, a peersession.Session for the handshake/liveness state
// machine, and the read loop that feeds both.
type peerConn struct {
	id      string
	conn    net.Conn
	queue   *msgqueue.Queue
	session *peersession.Session
	node    *node
}

func newPeerConn(n *node, conn net.Conn, inbound bool) *peerConn {
	pc := &peerConn{
		id:   conn.RemoteAddr().String(),
		conn: conn,
		node: n,
	}
	pc.queue = msgqueue.New(256, func(msg xdagwire.Message) error {
		return xdagwire.WriteFrame(conn, msg)
	})
	pc.session = peersession.New(n.cfg.netParams, pc.queue, peersession.Options{
		Inbound: inbound,
		OnReady: func() {
			peerLog.Infof("Peer %s ready (tip %s)", pc.id, pc.session.PeerTipLow())
			n.onPeerReady(pc)
		},
		OnDisconnect: func(reason xdagwire.DisconnectReason) {
			peerLog.Warnf("Peer %s disconnected: %s", pc.id, reason)
			n.onPeerGone(pc)
			_ = conn.Close()
		},
	})
	return pc
}

// run activates the connection's queue, performs the handshake, and
// blocks reading frames until the connection closes.
func (pc *peerConn) run() {
	pc.queue.Activate()
	n := pc.node

	tip := n.engineTip()
	if err := pc.session.BeginHandshake(tip, uint16(n.cfg.Port), n.nodeID); err != nil {
		peerLog.Errorf("handshake with %s: %+v", pc.id, err)
		return
	}

	n.scheduler.Register(pc.queue, 10*time.Millisecond)
	defer n.scheduler.Unregister(pc.queue)

	for {
		msg, err := xdagwire.ReadFrame(pc.conn)
		if err != nil {
			peerLog.Debugf("read loop for %s ended: %v", pc.id, err)
			n.onPeerGone(pc)
			return
		}

		tip := n.engineTip()
		if err := pc.session.HandleMessage(msg, tip, uint16(n.cfg.Port), n.nodeID); err != nil {
			peerLog.Debugf("handling message from %s: %v", pc.id, err)
			continue
		}

		if err := n.dispatch(pc, msg); err != nil {
			peerLog.Warnf("dispatching %s from %s: %v", msg.Opcode(), pc.id, err)
			if errors.Is(err, msgqueue.ErrQueueFull) {
				pc.session.Disconnect(xdagwire.ReasonMessageQueueFull)
			}
		}
	}
}

// dispatch routes a successfully-handled-by-the-session message into
// the rest of the node: block admission, sync replies, relay.
func (n *node) dispatch(pc *peerConn, msg xdagwire.Message) error {
	switch m := msg.(type) {
	case *xdagwire.MsgNewBlock:
		return n.engine.SubmitBlock(xdagtype.Encode(m.Block))
	case *xdagwire.MsgMainBlock:
		if n.sync != nil {
			header, err := n.store.GetInfo(xdagtype.Hash(m.Block).LowHash())
			height := uint64(0)
			if err == nil {
				height = header.Height
			}
			return n.sync.HandleBlock(xdagtype.Encode(m.Block), height)
		}
		return nil
	case *xdagwire.MsgMainBlockHeader:
		if n.sync != nil {
			return n.sync.HandleHeader(m, func(h xdagtype.Hash256) bool {
				has, _ := n.store.Has(h)
				return has
			})
		}
		return nil
	case *xdagwire.MsgGetMainBlock:
		raw, err := n.store.Get(m.LowHash)
		if err != nil {
			return nil // we don't have it; silently ignore per spec's minimal error surface
		}
		block, err := xdagtype.Decode(raw)
		if err != nil {
			return err
		}
		return pc.queue.Send(&xdagwire.MsgMainBlock{Block: block})
	case *xdagwire.MsgGetMainBlockHeader:
		infos, err := n.store.IterateByHeight(m.Height, m.Height)
		if err != nil || len(infos) == 0 {
			return nil
		}
		info := infos[0]
		return pc.queue.Send(&xdagwire.MsgMainBlockHeader{
			Height:     info.Height,
			HashLow:    info.HashLow,
			Difficulty: info.Difficulty,
			Timestamp:  info.Timestamp,
		})
	default:
		return nil
	}
}

// dial connects outbound to addr and runs the resulting connection the
// same way an accepted inbound connection would.
func (n *node) dial(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return errors.Wrapf(err, "dialing %s", addr)
	}
	pc := newPeerConn(n, conn, false)
	n.registerPeer(pc)
	go pc.run()
	return nil
}

// consensusTicker invokes the engine's per-second main-chain election
// epoch; it is registered on the same scheduler that drains peer
// queues, matching spec.md §5's "shared scheduled executor" model.
type consensusTicker struct {
	engine *dagconsensus.Engine
}

func (t *consensusTicker) Tick() error {
	return t.engine.Tick(time.Now())
}

// syncTicker drives the sync controller's timeout/re-issue sweep
// (spec.md §4.6) from the same shared scheduler.
type syncTicker struct {
	sync *syncctl.Controller
}

func (t *syncTicker) Tick() error {
	return t.sync.Tick(time.Now())
}
