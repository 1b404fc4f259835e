package dagconsensus

import (
	"github.com/xdagjgo/xdagd/dagconfig"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// ExpectedCoinbaseReward reports the coinbase amount a main block at
// height would mint under params' subsidy schedule (spec.md §4.4). It
// is the same computation tryAdopt credits a newly adopted main block
// with, exposed for a future block producer to decide a candidate's
// own coinbase output before submitting it — this module does not
// itself assemble, sign, or submit candidate blocks (see DESIGN.md's
// Open Question on locally-minted block production).
func ExpectedCoinbaseReward(params dagconfig.Params, height uint64) xdagtype.XAmount {
	return xdagtype.XAmount(coinbaseSubsidy(params, height))
}
