// Command xdagd is the node process: it opens the block store, starts
// the consensus engine's single dedicated goroutine, and serves peer
// connections over the wire protocol of spec.md §6.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/blockstore"
	"github.com/xdagjgo/xdagd/blockstore/leveldbkv"
	"github.com/xdagjgo/xdagd/dagconsensus"
	"github.com/xdagjgo/xdagd/internal/logs"
	"github.com/xdagjgo/xdagd/msgqueue"
	"github.com/xdagjgo/xdagd/syncctl"
	"github.com/xdagjgo/xdagd/xdagecdsa"
	"github.com/xdagjgo/xdagd/xdagtype"
	"github.com/xdagjgo/xdagd/xdagwire"
)

// Exit codes, spec.md §6.
const (
	exitOK              = 0
	exitInvalidConfig   = 1
	exitStoreCorruption = 2
	exitCryptoFailure   = 3
)

var mainLog = logs.Get(logs.TagXDAG)

// node wires together every long-lived component of the running
// process: the consensus engine, the peer set, and the shared
// scheduler that drains every peer's message queue and ticks the
// engine's epoch clock (spec.md §5).
type node struct {
	cfg       *config
	store     *blockstore.Store
	engine    *dagconsensus.Engine
	scheduler *msgqueue.Scheduler
	signer    xdagecdsa.Signer
	nodeID    [20]byte

	mu    sync.Mutex
	peers map[string]*peerConn
	sync  *syncctl.Controller
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xdagd: %v\n", err)
		return exitInvalidConfig
	}

	if err := logs.InitLogRotator(filepath.Join(cfg.DataDir, "logs", "xdagd.log")); err != nil {
		fmt.Fprintf(os.Stderr, "xdagd: %v\n", err)
		return exitInvalidConfig
	}
	if err := logs.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		fmt.Fprintf(os.Stderr, "xdagd: %v\n", err)
		return exitInvalidConfig
	}

	signer, nodeID, err := loadOrCreateIdentity(cfg.DataDir)
	if err != nil {
		mainLog.Errorf("loading node identity: %+v", err)
		return exitCryptoFailure
	}

	kv, err := leveldbkv.Open(filepath.Join(cfg.DataDir, "blocks"))
	if err != nil {
		mainLog.Errorf("opening block store: %+v", err)
		return exitStoreCorruption
	}
	defer kv.Close()
	store := blockstore.New(kv)

	engine, err := dagconsensus.New(cfg.netParams, store)
	if err != nil {
		mainLog.Errorf("initializing consensus engine: %+v", err)
		return exitStoreCorruption
	}

	n := &node{
		cfg:       cfg,
		store:     store,
		engine:    engine,
		scheduler: msgqueue.NewScheduler(),
		signer:    signer,
		nodeID:    nodeID,
		peers:     make(map[string]*peerConn),
	}
	n.sync = syncctl.New(cfg.netParams, &peerRequester{n: n}, engine.SubmitBlock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			mainLog.Errorf("consensus engine exited: %+v", err)
		}
	}()

	n.scheduler.Register(&consensusTicker{engine: engine}, time.Second)
	n.scheduler.Register(&syncTicker{sync: n.sync}, time.Second)
	go n.scheduler.Run(func(t msgqueue.Ticker, err error) {
		mainLog.Warnf("scheduler tick failed: %v", err)
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		mainLog.Errorf("listening on port %d: %+v", cfg.Port, err)
		return exitInvalidConfig
	}
	defer listener.Close()
	mainLog.Infof("xdagd listening on %s, network %s, tip height %d", listener.Addr(), cfg.netParams.Name, engine.TipHeight())

	go n.acceptLoop(listener)

	for _, addr := range cfg.bootstrapPeers() {
		addr := addr
		go func() {
			if err := n.dial(addr); err != nil {
				mainLog.Warnf("dialing bootstrap peer %s: %v", addr, err)
			}
		}()
	}

	waitForShutdownSignal()
	mainLog.Infof("xdagd shutting down")
	cancel()
	n.scheduler.Stop()
	wg.Wait()
	return exitOK
}

func (n *node) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			mainLog.Debugf("accept loop ended: %v", err)
			return
		}
		pc := newPeerConn(n, conn, true)
		n.registerPeer(pc)
		go pc.run()
	}
}

func (n *node) registerPeer(pc *peerConn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[pc.id] = pc
}

// onPeerReady evaluates a freshly handshaked peer as a sync source. The
// wire protocol has no stats exchange carrying a peer's exact
// main-chain height (spec.md §9), so an unrecognized tip hash is
// treated as "at least one window ahead" rather than blocking on an
// opcode this protocol doesn't define; the window naturally refills
// itself as headers resolve and localHeight catches up.
func (n *node) onPeerReady(pc *peerConn) {
	if n.sync.State() == syncctl.StateSyncing {
		return
	}

	local := n.engine.TipHeight()
	remote := local
	if has, _ := n.store.Has(pc.session.PeerTipLow()); !has {
		remote = local + n.cfg.netParams.SyncWindowSize
	}

	if err := n.sync.Start(local, remote); err != nil {
		mainLog.Warnf("starting sync against %s: %v", pc.id, err)
	}
}

func (n *node) onPeerGone(pc *peerConn) {
	n.mu.Lock()
	delete(n.peers, pc.id)
	n.mu.Unlock()
}

func (n *node) engineTip() xdagtype.Hash256 {
	// TipHeight alone doesn't carry the hash; callers that need the
	// actual tip hash for a HELLO go through the store's meta record.
	meta, err := n.store.GetMeta()
	if err != nil {
		return xdagtype.ZeroHash
	}
	return meta.TipLowHash
}

// peerRequester adapts node's peer map to syncctl.Requester.
type peerRequester struct{ n *node }

func (r *peerRequester) SendTo(peer syncctl.PeerID, msg xdagwire.Message) error {
	r.n.mu.Lock()
	pc, ok := r.n.peers[string(peer)]
	r.n.mu.Unlock()
	if !ok {
		return fmt.Errorf("peer %s is no longer connected", peer)
	}
	err := pc.queue.Send(msg)
	if errors.Is(err, msgqueue.ErrQueueFull) {
		pc.session.Disconnect(xdagwire.ReasonMessageQueueFull)
	}
	return err
}

func (r *peerRequester) Peers() []syncctl.PeerID {
	r.n.mu.Lock()
	defer r.n.mu.Unlock()
	out := make([]syncctl.PeerID, 0, len(r.n.peers))
	for id := range r.n.peers {
		out = append(out, syncctl.PeerID(id))
	}
	return out
}

func (r *peerRequester) Disconnect(peer syncctl.PeerID, reason xdagwire.DisconnectReason) {
	r.n.mu.Lock()
	pc, ok := r.n.peers[string(peer)]
	r.n.mu.Unlock()
	if ok {
		pc.session.Disconnect(reason)
	}
}
