package xdagtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// UnitsPerXDAG is the number of base units ("nanoXDAG" in the reference
// implementation, but semantically a binary fraction) in one XDAG:
// 1 XDAG = 2^32 base units (spec.md §3).
const UnitsPerXDAG = 1 << 32

// XAmount is a 64-bit unsigned fixed-point currency value. Addition
// saturates at the uint64 max instead of wrapping; subtraction is
// checked and reports underflow rather than wrapping, matching the
// ledger invariant that balances never go negative (spec.md §3,
// invariant (e)).
type XAmount uint64

// MaxXAmount is the saturation ceiling for SaturatingAdd.
const MaxXAmount XAmount = math.MaxUint64

// SaturatingAdd returns a+b, clamped to MaxXAmount on overflow.
func (a XAmount) SaturatingAdd(b XAmount) XAmount {
	sum := a + b
	if sum < a { // wrapped
		return MaxXAmount
	}
	return sum
}

// CheckedSub returns a-b and true, or (0, false) if b > a.
func (a XAmount) CheckedSub(b XAmount) (XAmount, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// ToXDAG converts the fixed-point value to a float64 number of whole
// XDAG, for display purposes only; consensus code must never use this
// for arithmetic.
func (a XAmount) ToXDAG() float64 {
	return float64(a) / UnitsPerXDAG
}

// XAmountFromXDAG converts a floating-point XDAG amount into its
// fixed-point representation, rounding toward nearest base unit.
func XAmountFromXDAG(xdag float64) XAmount {
	return XAmount(math.Round(xdag * UnitsPerXDAG))
}

// String renders the amount as a decimal XDAG value.
func (a XAmount) String() string {
	return fmt.Sprintf("%.9f XDAG", a.ToXDAG())
}

// PutLittleEndian serialises a into an 8-byte little-endian buffer, the
// wire representation used in every amount-bearing field slot.
func (a XAmount) PutLittleEndian(b []byte) {
	binary.LittleEndian.PutUint64(b, uint64(a))
}

// XAmountFromLittleEndian parses an 8-byte little-endian buffer into an
// XAmount.
func XAmountFromLittleEndian(b []byte) XAmount {
	return XAmount(binary.LittleEndian.Uint64(b))
}
