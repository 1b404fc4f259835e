package dagconsensus

import "github.com/xdagjgo/xdagd/dagconfig"

// coinbaseSubsidy computes the fixed mint paid to a main block at the
// given height (spec.md §4.4): BaseSubsidy unchanged for the first
// SubsidyFlatPeriodBlocks main blocks, then halved every
// SubsidyHalvingIntervalBlocks thereafter, rounded down — the same
// shift-based halving shape this package's teacher's coinbase manager
// uses (baseSubsidy >> (height/interval)), generalised with a flat
// period before halving begins.
func coinbaseSubsidy(params dagconfig.Params, height uint64) uint64 {
	base := uint64(params.BaseSubsidy)
	if height <= params.SubsidyFlatPeriodBlocks {
		return base
	}
	// The first block past the flat period already pays the first
	// halving, so the block offset within this interval is zero-based
	// (height-flat-1), not one-based (height-flat) — otherwise every
	// later halving would take effect one block early, at height
	// flat+k*SubsidyHalvingIntervalBlocks instead of one block after it.
	halvings := (height-params.SubsidyFlatPeriodBlocks-1)/params.SubsidyHalvingIntervalBlocks + 1
	if halvings >= 64 {
		return 0
	}
	return base >> halvings
}
