// Package dagconsensus is the DAG engine of spec.md §4.3-§4.4: the
// admission pipeline that links, validates, and applies blocks, and
// the main-chain election that elects applied blocks onto the
// canonical spine.
//
// All mutation flows through a single dedicated goroutine — the
// "consensus thread" of spec.md §5 — reached only via the jobs
// channel Engine.Run drains. This is the generalised form of this
// package's teacher's dagLock-guarded BlockDAG: instead of a mutex
// shared by arbitrary goroutines, mutation is an explicit dependency
// reached by posting a closure, so there is no static singleton and
// no lock a caller can forget to take.
package dagconsensus

import (
	"context"
	"time"

	"github.com/xdagjgo/xdagd/blockstore"
	"github.com/xdagjgo/xdagd/dagconfig"
	"github.com/xdagjgo/xdagd/dagconsensus/dagerrors"
	"github.com/xdagjgo/xdagd/dagconsensus/u256"
	"github.com/xdagjgo/xdagd/internal/logs"
	"github.com/xdagjgo/xdagd/xdagecdsa"
	"github.com/xdagjgo/xdagd/xdagtype"
)

var log = logs.Get(logs.TagDAG)

// epochWindow is the width of the main-block election window
// (spec.md §4.4, glossary "Epoch").
const epochWindow = time.Second

// Engine owns the block store and orphan pool and serialises every
// mutation through its jobs channel.
type Engine struct {
	params dagconfig.Params
	store  *blockstore.Store
	orphan *orphanPool

	jobs chan func()

	// tip* mirror the persisted meta record; they are only ever read
	// or written from the consensus goroutine, so no lock guards them.
	tipLowHash xdagtype.Hash256
	tipHeight  uint64
	tipCumDiff u256.U256

	// epochCandidates buckets applied-but-not-main blocks by the
	// one-second epoch their timestamp falls in, for main-chain
	// election (spec.md §4.4).
	epochCandidates map[int64][]xdagtype.Hash256
}

// New constructs an Engine over store, seeding tip state from the
// persisted meta record if present, or treating the network's genesis
// as the tip otherwise.
func New(params dagconfig.Params, store *blockstore.Store) (*Engine, error) {
	e := &Engine{
		params:          params,
		store:           store,
		orphan:          newOrphanPool(),
		jobs:            make(chan func(), 256),
		epochCandidates: make(map[int64][]xdagtype.Hash256),
	}

	meta, err := store.GetMeta()
	if err == blockstore.ErrNotFound {
		if err := e.seedGenesis(); err != nil {
			return nil, err
		}
		return e, nil
	}
	if err != nil {
		return nil, dagerrors.StoreIO(err, "reading persisted meta record")
	}
	e.tipLowHash = meta.TipLowHash
	e.tipHeight = meta.TipHeight
	if info, infoErr := store.GetInfo(meta.TipLowHash); infoErr == nil {
		e.tipCumDiff = u256.FromBytes32(info.Difficulty)
	}
	return e, nil
}

// seedGenesis inserts the network's genesis block as the initial
// main-chain-reachable root: height 0, MAIN_CHAIN but not MAIN (the
// MAIN invariant requires height > 0, spec.md §3 invariant (b)), so
// that the first real main block can walk back to it.
func (e *Engine) seedGenesis() error {
	block := dagconfig.GenesisBlock()
	hash := xdagtype.Hash(block)
	lowHash := hash.LowHash()

	info := blockstore.BlockInfo{
		Difficulty: blockDifficulty(hash).Bytes32(),
		Hash:       hash,
		HashLow:    lowHash,
		Timestamp:  block.Timestamp,
		Flags:      blockstore.FlagApplied | blockstore.FlagMainChain,
	}
	if err := e.store.Put(lowHash, xdagtype.Encode(block), info); err != nil {
		return dagerrors.StoreIO(err, "seeding genesis block")
	}

	e.tipLowHash = lowHash
	e.tipHeight = 0
	e.tipCumDiff = u256.FromBytes32(info.Difficulty)

	return e.store.PutMeta(blockstore.Meta{
		SchemaVersion:  1,
		NetworkID:      uint32(e.params.NetworkID),
		GenesisLowHash: lowHash,
		TipLowHash:     lowHash,
		TipHeight:      0,
	})
}

// Run drains the jobs channel until ctx is cancelled. It is the
// consensus thread's event loop; callers run it in its own goroutine.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-e.jobs:
			job()
		}
	}
}

// post schedules fn on the consensus thread and blocks until it runs,
// returning whatever error fn reports.
func (e *Engine) post(fn func() error) error {
	result := make(chan error, 1)
	e.jobs <- func() {
		result <- fn()
	}
	return <-result
}

// SubmitBlock decodes and admits a single wire-format block, applying
// it and unparking any orphans it unblocks (spec.md §4.3).
func (e *Engine) SubmitBlock(raw []byte) error {
	return e.post(func() error {
		return e.admit(raw)
	})
}

// Tick runs the per-second main-chain election epoch (spec.md §4.4).
// Callers invoke it once per second from the shared scheduler.
func (e *Engine) Tick(now time.Time) error {
	return e.post(func() error {
		return e.electEpoch(now)
	})
}

// TipHeight returns the current main-chain tip height. The read runs as
// a job on the consensus goroutine, so it waits until Run picks it up.
func (e *Engine) TipHeight() uint64 {
	var height uint64
	_ = e.post(func() error {
		height = e.tipHeight
		return nil
	})
	return height
}

// admit runs the admission pipeline for one block, then drains any
// orphans it unblocks in a breadth-first loop rather than recursion
// (spec.md §4.3 step 7).
func (e *Engine) admit(raw []byte) error {
	block, err := xdagtype.Decode(raw)
	if err != nil {
		return dagerrors.Wrap(err, dagerrors.KindInvalidBlock, "decoding block")
	}

	queue := []*xdagtype.Block{block}
	var firstErr error
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		lowHash := xdagtype.Hash(b).LowHash()
		unblocked, err := e.admitOne(b, lowHash)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		queue = append(queue, unblocked...)
	}
	return firstErr
}

// admitOne runs steps 1-7 of the admission pipeline for a single
// block and returns the orphans it unblocked on success.
func (e *Engine) admitOne(b *xdagtype.Block, lowHash xdagtype.Hash256) ([]*xdagtype.Block, error) {
	// Step 1: syntactic check (composition is already validated by
	// Decode; only the timestamp tolerance remains).
	now := time.Now().UnixMilli()
	if b.Timestamp > now+e.params.FutureTimestampToleranceMillis {
		return nil, dagerrors.Invalid("timestamp too far in the future")
	}

	if has, err := e.store.Has(lowHash); err != nil {
		return nil, dagerrors.StoreIO(err, "checking block presence")
	} else if has {
		return nil, nil // already admitted, idempotent no-op
	}

	// Step 2: link resolution.
	inputs := b.InputLinks()
	outputs := b.OutputLinks()
	linkedInfo := make(map[xdagtype.Hash256]blockstore.BlockInfo)
	var missing []xdagtype.Hash256

	for _, link := range append(append([]xdagtype.LinkField{}, inputs...), outputs...) {
		ref := link.LowHash()
		if _, ok := linkedInfo[ref]; ok {
			continue
		}
		info, err := e.store.GetInfo(ref)
		if err == blockstore.ErrNotFound {
			missing = append(missing, ref)
			continue
		}
		if err != nil {
			return nil, dagerrors.StoreIO(err, "resolving link")
		}
		linkedInfo[ref] = info
	}
	if len(missing) > 0 {
		e.orphan.park(lowHash, b, missing)
		log.Debugf("Parked %s as orphan, waiting on %d links", lowHash, len(missing))
		return nil, dagerrors.MissingLinks("waiting on links")
	}

	// Step 3: signature check.
	if err := verifySignatures(b, linkedInfo, e.store); err != nil {
		return nil, err
	}

	// Step 4: arithmetic check.
	var sumIn, sumOut uint64
	for _, l := range inputs {
		sum, ok := addChecked(sumIn, uint64(l.Amount))
		if !ok {
			return nil, dagerrors.Invalid("input amount overflow")
		}
		sumIn = sum
	}
	for _, l := range outputs {
		sum, ok := addChecked(sumOut, uint64(l.Amount))
		if !ok {
			return nil, dagerrors.Invalid("output amount overflow")
		}
		sumOut = sum
	}
	if sumIn < sumOut {
		return nil, dagerrors.Invalid("outputs exceed inputs")
	}
	fee := sumIn - sumOut

	// Check available balance on each spent input (prevents double-spend).
	for _, l := range inputs {
		ref := l.LowHash()
		info := linkedInfo[ref]
		if uint64(info.Amount) < uint64(l.Amount) {
			return nil, dagerrors.Invalid("insufficient-funds")
		}
	}

	// Step 5: difficulty.
	hash := xdagtype.Hash(b)
	blockDiff := blockDifficulty(hash)
	cumDiff, ref, maxDiffLink := e.selectMaxDiffLink(b, linkedInfo)
	cumDiff = cumDiff.Add(blockDiff)

	// Step 6: apply — debit inputs, credit outputs, then insert this
	// block's own info. Each of these is a separate store commit, not
	// one atomic batch: a failure part-way leaves the earlier writes in
	// place.
	for _, l := range inputs {
		ref := l.LowHash()
		info := linkedInfo[ref]
		info.Amount -= l.Amount
		if err := e.store.UpdateInfo(ref, info); err != nil {
			return nil, dagerrors.StoreIO(err, "debiting input link")
		}
	}
	for _, l := range outputs {
		ref := l.LowHash()
		info := linkedInfo[ref]
		info.Amount = info.Amount.SaturatingAdd(l.Amount)
		if err := e.store.UpdateInfo(ref, info); err != nil {
			return nil, dagerrors.StoreIO(err, "crediting output link")
		}
	}

	remark, hasRemark := b.Remark()
	info := blockstore.BlockInfo{
		Difficulty:  cumDiff.Bytes32(),
		Ref:         ref,
		MaxDiffLink: maxDiffLink,
		Fee:         xdagtype.XAmount(fee),
		Hash:        hash,
		HashLow:     lowHash,
		Timestamp:   b.Timestamp,
		Flags:       blockstore.FlagApplied,
		Remark:      remark,
	}
	if hasRemark {
		info.Flags |= blockstore.FlagRemark
	}
	if err := e.store.Put(lowHash, xdagtype.Encode(b), info); err != nil {
		return nil, dagerrors.StoreIO(err, "inserting applied block")
	}

	epoch := b.Timestamp / epochWindow.Milliseconds()
	e.epochCandidates[epoch] = append(e.epochCandidates[epoch], lowHash)
	log.Tracef("Applied block %s at timestamp %d, fee %d", lowHash, b.Timestamp, fee)

	// Step 7: unblock orphans.
	unblocked := e.orphan.unblock(lowHash)
	return unblocked, nil
}

func addChecked(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

// selectMaxDiffLink computes the max-cumulative-difficulty predecessor
// among all of b's links (spec.md §4.3 step 5), returning that
// predecessor's cumulative difficulty (zero if b has no links), the
// chosen reference link, and the chosen max-diff predecessor. Every
// applied block's own Difficulty is already its cumulative difficulty
// along its own max-diff-link path, so picking the maximum here chains
// transitively through any applied predecessor — not only ones
// currently flagged MAIN_CHAIN — matching the glossary's "sum along
// the maximum-difficulty ancestor path" definition of cumulative
// difficulty rather than restricting accumulation to the chain
// currently adopted as main.
func (e *Engine) selectMaxDiffLink(b *xdagtype.Block, linkedInfo map[xdagtype.Hash256]blockstore.BlockInfo) (u256.U256, xdagtype.Hash256, xdagtype.Hash256) {
	var best u256.U256
	var maxDiffLink, ref xdagtype.Hash256
	first := true

	outputs := b.OutputLinks()
	if len(outputs) > 0 {
		ref = outputs[0].LowHash()
	}

	for hash, info := range linkedInfo {
		cd := u256.FromBytes32(info.Difficulty)
		if first || cd.GreaterThan(best) {
			best = cd
			maxDiffLink = hash
			first = false
		}
	}
	if first {
		return u256.Zero, ref, xdagtype.ZeroHash
	}
	return best, ref, maxDiffLink
}

// verifySignatures implements spec.md §4.3 step 3: in-signatures
// recover a public key that must hash to a public-key field declared
// on the linked output block (the spending authorisation);
// out-signatures must verify against a public-key field declared on
// this very block (a self-attestation over the block's own body with
// every out-signature slot zeroed).
func verifySignatures(b *xdagtype.Block, linkedInfo map[xdagtype.Hash256]blockstore.BlockInfo, store *blockstore.Store) error {
	inSigs := b.InSignatures()
	if len(inSigs) > 0 {
		digest := xdagtype.HashData(signingBytes(b))
		for _, sig := range inSigs {
			recovered, err := xdagecdsa.Recover(sig, digest)
			if err != nil {
				return dagerrors.Wrap(err, dagerrors.KindInvalidBlock, "recovering in-signature public key")
			}
			recoveredHash := xdagecdsa.PublicKeyHash160(recovered)
			if !authorizedBySomeLink(recoveredHash, b, linkedInfo, store) {
				return dagerrors.Invalid("in-signature does not match any linked output's owner")
			}
		}
	}

	outSigs := b.OutSignatures()
	if len(outSigs) > 0 {
		pubKeys := b.PublicKeys()
		if len(pubKeys) == 0 {
			return dagerrors.Invalid("out-signature present with no public-key field to verify against")
		}
		digest := xdagtype.HashData(signingBytes(b))
		for _, sig := range outSigs {
			ok := false
			for _, pk := range pubKeys {
				if xdagecdsa.Verify(pk, sig, digest) {
					ok = true
					break
				}
			}
			if !ok {
				return dagerrors.Invalid("out-signature does not verify against any declared public key")
			}
		}
	}
	return nil
}

// authorizedBySomeLink checks whether recoveredHash matches the
// public-key field of any input link's referenced block.
func authorizedBySomeLink(recoveredHash [20]byte, b *xdagtype.Block, linkedInfo map[xdagtype.Hash256]blockstore.BlockInfo, store *blockstore.Store) bool {
	for _, link := range b.InputLinks() {
		ref := link.LowHash()
		if _, ok := linkedInfo[ref]; !ok {
			continue
		}
		raw, err := store.Get(ref)
		if err != nil {
			continue
		}
		linkedBlock, err := xdagtype.Decode(raw)
		if err != nil {
			continue
		}
		for _, pk := range linkedBlock.PublicKeys() {
			if xdagecdsa.PublicKeyHash160(pk) == recoveredHash {
				return true
			}
		}
	}
	return false
}

// signingBytes returns b's encoded form with every signature slot
// zeroed, the digest that both in- and out-signatures sign over
// (spec.md §4.3 step 3).
func signingBytes(b *xdagtype.Block) []byte {
	clone := *b
	for i := 0; i < 15; i++ {
		if clone.NibbleAt(i) == xdagtype.FieldInSignature || clone.NibbleAt(i) == xdagtype.FieldOutSignature {
			clone.Slots[i].Data = [32]byte{}
		}
	}
	return xdagtype.Encode(&clone)
}
