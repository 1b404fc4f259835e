package dagconsensus

import (
	"time"

	"github.com/xdagjgo/xdagd/blockstore"
	"github.com/xdagjgo/xdagd/dagconsensus/dagerrors"
	"github.com/xdagjgo/xdagd/dagconsensus/u256"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// electEpoch runs one main-chain election tick (spec.md §4.4): evict
// expired orphans, select a pretop among the epoch that just closed,
// then adopt it if its cumulative difficulty exceeds the current tip's.
func (e *Engine) electEpoch(now time.Time) error {
	expiry := time.Duration(e.params.OrphanExpiryMillis) * time.Millisecond
	if expiry <= 0 {
		expiry = orphanExpiry
	}
	e.orphan.sweepExpired(now, expiry)

	closedEpoch := now.Add(-epochWindow).UnixMilli() / epochWindow.Milliseconds()
	candidates := e.epochCandidates[closedEpoch]
	delete(e.epochCandidates, closedEpoch)
	if len(candidates) == 0 {
		return nil
	}

	pretop, err := e.choosePretop(candidates)
	if err != nil {
		return err
	}

	pretopInfo, err := e.store.GetInfo(pretop)
	if err != nil {
		return dagerrors.StoreIO(err, "reading pretop candidate info")
	}
	if err := e.store.UpdateFlags(pretop, pretopInfo.Flags|blockstore.FlagPretop); err != nil {
		return dagerrors.StoreIO(err, "flagging pretop")
	}

	return e.tryAdopt(pretop, pretopInfo)
}

// choosePretop picks, among candidates, the one maximising cumulative
// difficulty, ties broken by lexicographically smaller low-hash
// (spec.md §4.4).
func (e *Engine) choosePretop(candidates []xdagtype.Hash256) (xdagtype.Hash256, error) {
	var best xdagtype.Hash256
	var bestDiff u256.U256
	first := true

	for _, lowHash := range candidates {
		info, err := e.store.GetInfo(lowHash)
		if err != nil {
			return xdagtype.Hash256{}, dagerrors.StoreIO(err, "reading candidate info")
		}
		if info.Flags.Has(blockstore.FlagMain) {
			continue
		}
		cd := u256.FromBytes32(info.Difficulty)
		switch {
		case first:
			best, bestDiff, first = lowHash, cd, false
		case cd.GreaterThan(bestDiff):
			best, bestDiff = lowHash, cd
		case cd.Cmp(bestDiff) == 0 && lowHash.Less(best):
			best = lowHash
		}
	}
	return best, nil
}

// tryAdopt walks candidate's maxDiffLink chain back to find where it
// forks from the current main chain, then adopts it as the new tip if
// its cumulative difficulty exceeds the current tip's (spec.md §4.4).
func (e *Engine) tryAdopt(candidate xdagtype.Hash256, candidateInfo blockstore.BlockInfo) error {
	candidateDiff := u256.FromBytes32(candidateInfo.Difficulty)
	if !candidateDiff.GreaterThan(e.tipCumDiff) {
		return nil
	}

	forkHeight, chain, err := e.walkToFork(candidate)
	if err != nil {
		return err
	}

	// Revert applied-but-now-off-chain main blocks from fork+1 to the
	// old tip, strictly before applying the new segment (spec.md §4.4,
	// §5 "reverts strictly before applies").
	oldMain, err := e.store.IterateByHeight(forkHeight+1, e.tipHeight)
	if err != nil {
		return dagerrors.StoreIO(err, "reading old main segment to revert")
	}
	for _, info := range oldMain {
		coinbase := coinbaseSubsidy(e.params, info.Height)
		reverted, err := revertCoinbase(info, coinbase)
		if err != nil {
			return dagerrors.ReorgFailure("reverting coinbase: " + err.Error())
		}
		info = reverted
		info.Flags = (info.Flags &^ (blockstore.FlagMain | blockstore.FlagMainChain)) | blockstore.FlagUnwind
		info.Height = 0
		if err := e.store.UpdateInfo(info.HashLow, info); err != nil {
			return dagerrors.ReorgFailure("clearing MAIN flag: " + err.Error())
		}
	}

	// Apply the new main segment in height-ascending order (chain is
	// in tip-to-fork order from the backward walk; reverse it).
	height := forkHeight
	for i := len(chain) - 1; i >= 0; i-- {
		height++
		lowHash := chain[i]
		info, err := e.store.GetInfo(lowHash)
		if err != nil {
			return dagerrors.ReorgFailure("reading new main block: " + err.Error())
		}
		info.Height = height
		info.Flags |= blockstore.FlagMain | blockstore.FlagMainChain
		info.Flags &^= blockstore.FlagUnwind
		coinbase := coinbaseSubsidy(e.params, height)
		info.Amount = info.Amount.SaturatingAdd(xdagtype.XAmount(coinbase))
		if err := e.store.UpdateInfo(lowHash, info); err != nil {
			return dagerrors.ReorgFailure("applying new main block: " + err.Error())
		}
	}

	tipInfo, err := e.store.GetInfo(candidate)
	if err != nil {
		return dagerrors.ReorgFailure("reading new tip info: " + err.Error())
	}
	e.tipLowHash = candidate
	e.tipHeight = tipInfo.Height
	e.tipCumDiff = u256.FromBytes32(tipInfo.Difficulty)

	return e.store.PutMeta(blockstore.Meta{
		SchemaVersion:  1,
		NetworkID:      uint32(e.params.NetworkID),
		GenesisLowHash: e.params.GenesisLowHash,
		TipLowHash:     e.tipLowHash,
		TipHeight:      e.tipHeight,
	})
}

// walkToFork walks candidate's maxDiffLink chain backwards until it
// reaches a block already flagged MAIN_CHAIN, returning that block's
// height (the fork point) and the chain of low-hashes from candidate
// back to (but not including) the fork point.
func (e *Engine) walkToFork(candidate xdagtype.Hash256) (uint64, []xdagtype.Hash256, error) {
	var chain []xdagtype.Hash256
	cur := candidate
	for {
		info, err := e.store.GetInfo(cur)
		if err != nil {
			return 0, nil, dagerrors.StoreIO(err, "walking max-diff-link chain")
		}
		if info.Flags.Has(blockstore.FlagMainChain) {
			return info.Height, chain, nil
		}
		chain = append(chain, cur)
		if info.MaxDiffLink == xdagtype.ZeroHash {
			// reached a root with no main-chain-reachable link: fork at genesis.
			return 0, chain, nil
		}
		cur = info.MaxDiffLink
	}
}

// revertCoinbase subtracts a reverted main block's coinbase reward
// from its own running balance (spec.md §4.4: "subtract their
// coinbase rewards from the coinbase account").
func revertCoinbase(info blockstore.BlockInfo, coinbase uint64) (blockstore.BlockInfo, error) {
	after, ok := info.Amount.CheckedSub(xdagtype.XAmount(coinbase))
	if !ok {
		return info, dagerrors.ReorgFailure("coinbase revert would underflow balance")
	}
	info.Amount = after
	return info, nil
}
