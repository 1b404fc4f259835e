package dagconsensus

import (
	"math/big"

	"github.com/xdagjgo/xdagd/dagconsensus/u256"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// two256 is 2^256, used as the dividend of the difficulty derivation.
var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// blockDifficulty computes blockDiff = max(1, 2^256 / lowBits128(hash))
// (spec.md §4.3 step 5). The low 128 bits of the hash stand in for the
// inverse-probability difficulty target the way a reference-counted
// proof-of-work target would.
func blockDifficulty(hash xdagtype.Hash256) u256.U256 {
	low128 := new(big.Int).SetBytes(hash[16:32])
	if low128.Sign() == 0 {
		return u256.Max
	}
	diff := new(big.Int).Div(two256, low128)
	if diff.Sign() == 0 {
		return u256.One
	}
	return u256.FromBig(diff)
}
