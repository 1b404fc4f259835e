// Package u256 implements a fixed-width 256-bit unsigned integer for
// difficulty arithmetic, replacing the bignum library the consensus
// core's difficulty accumulation is traditionally built on (spec.md
// §9: "the source's use of a bignum library should be replaced by a
// fixed-width u256 with checked multiplication").
package u256

import (
	"math/big"
)

// U256 is a 256-bit unsigned integer stored as four big-endian words
// (w[0] most significant, w[3] least significant).
type U256 struct {
	w [4]uint64
}

// Zero is the additive identity.
var Zero = U256{}

// One is the multiplicative identity.
var One = U256{w: [4]uint64{0, 0, 0, 1}}

// FromUint64 builds a U256 from a native uint64.
func FromUint64(v uint64) U256 {
	return U256{w: [4]uint64{0, 0, 0, v}}
}

// FromBig converts a non-negative math/big.Int, truncating silently
// to 256 bits (callers are expected to keep values in range; this
// package is an arithmetic primitive, not a bounds-checking wrapper).
func FromBig(v *big.Int) U256 {
	var out U256
	bytes := v.Bytes()
	// bytes is big-endian, shortest form; right-align into a 32-byte buffer.
	var buf [32]byte
	if len(bytes) > 32 {
		bytes = bytes[len(bytes)-32:]
	}
	copy(buf[32-len(bytes):], bytes)
	for i := 0; i < 4; i++ {
		out.w[i] = beUint64(buf[i*8 : i*8+8])
	}
	return out
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// Big converts back to a math/big.Int for interop with code (genesis
// tooling, tests) that wants arbitrary-precision formatting.
func (u U256) Big() *big.Int {
	buf := make([]byte, 32)
	for i := 0; i < 4; i++ {
		putBE(buf[i*8:i*8+8], u.w[i])
	}
	return new(big.Int).SetBytes(buf)
}

func putBE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// FromBytes32 interprets a 32-byte big-endian buffer as a U256.
func FromBytes32(b [32]byte) U256 {
	var out U256
	for i := 0; i < 4; i++ {
		out.w[i] = beUint64(b[i*8 : i*8+8])
	}
	return out
}

// Bytes32 serialises u as a 32-byte big-endian buffer.
func (u U256) Bytes32() [32]byte {
	var out [32]byte
	for i := 0; i < 4; i++ {
		putBE(out[i*8:i*8+8], u.w[i])
	}
	return out
}

// Add returns u+v, saturating at 2^256-1 on overflow — difficulty
// sums never need to represent "overflow" as a distinct state, they
// simply stop growing, which can never happen in practice at realistic
// difficulties but keeps the operation total.
func (u U256) Add(v U256) U256 {
	var out U256
	var carry uint64
	for i := 3; i >= 0; i-- {
		sum := u.w[i] + v.w[i] + carry
		if sum < u.w[i] || (carry == 1 && sum == u.w[i]) {
			carry = 1
		} else {
			carry = 0
		}
		out.w[i] = sum
	}
	if carry == 1 {
		return Max
	}
	return out
}

// Max is the largest representable U256 value, 2^256 - 1.
var Max = U256{w: [4]uint64{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}}

// Cmp returns -1, 0, or 1 as u is less than, equal to, or greater than v.
func (u U256) Cmp(v U256) int {
	for i := 0; i < 4; i++ {
		if u.w[i] < v.w[i] {
			return -1
		}
		if u.w[i] > v.w[i] {
			return 1
		}
	}
	return 0
}

// GreaterThan reports whether u > v.
func (u U256) GreaterThan(v U256) bool { return u.Cmp(v) > 0 }

// IsZero reports whether u is the zero value.
func (u U256) IsZero() bool {
	return u.w[0] == 0 && u.w[1] == 0 && u.w[2] == 0 && u.w[3] == 0
}

// Max2 returns whichever of a, b compares greater.
func Max2(a, b U256) U256 {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// String formats u in decimal, via math/big — difficulty values are
// logged and compared in tests, never hot-path formatted.
func (u U256) String() string {
	return u.Big().String()
}
