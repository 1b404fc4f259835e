// Package hashes collects the cryptographic digest primitives consensus
// relies on: double SHA-256 for block hashing and
// RIPEMD-160-of-SHA-256 for public-key identifiers, plus Keccak-256 and
// HMAC-SHA-512, which no other package in this module calls.
package hashes

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // matches the teacher's own usage in exccutil/hash160.go
	"golang.org/x/crypto/sha3"
)

// Sha256 returns the single SHA-256 digest of data.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sha256D returns SHA-256(SHA-256(data)), the block-hashing primitive
// used by xdagtype.Hash.
func Sha256D(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Keccak256 returns the Keccak-256 digest of data (the original Keccak
// padding, not NIST SHA3-256).
func Keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160 returns RIPEMD-160(SHA-256(data)), used to derive a compact
// public-key identifier from a public key.
func Hash160(data []byte) [20]byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HmacSha512 returns HMAC-SHA-512(key, data).
func HmacSha512(key, data []byte) [64]byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	var out [64]byte
	copy(out[:], mac.Sum(nil))
	return out
}
