package xdagtype

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/xdagjgo/xdagd/hashes"
)

// HashSize is the length in bytes of a Hash256.
const HashSize = 32

// Hash256 is an opaque 256-bit value: a full block hash, or a low hash
// once its first 8 bytes have been zeroed. The two views share a type
// because every place that stores a hash in the block store deals
// exclusively in low hashes, while validation deals in full hashes; a
// caller that mixes them up gets a compile-time reminder to call
// LowHash() rather than a silent bug.
type Hash256 [HashSize]byte

// ZeroHash is the all-zero hash, used as a sentinel for "no reference".
var ZeroHash = Hash256{}

// HashFromBytes copies b into a Hash256, returning an error if the
// length doesn't match HashSize.
func HashFromBytes(b []byte) (Hash256, error) {
	var h Hash256
	if len(b) != HashSize {
		return h, errHashLength(len(b))
	}
	copy(h[:], b)
	return h, nil
}

// String renders the hash as lowercase hex.
func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// IsEqual reports whether h and other hold the same bytes.
func (h Hash256) IsEqual(other Hash256) bool {
	return h == other
}

// IsZero reports whether h is the all-zero sentinel hash.
func (h Hash256) IsZero() bool {
	return h == ZeroHash
}

// Less defines the lexicographic byte order used to break cumulative
// difficulty ties during main-block election (spec.md §4.4): the
// candidate with the smaller low hash wins.
func (h Hash256) Less(other Hash256) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// LowHash returns h with its first 8 bytes zeroed. It is the canonical
// block-store key: the first 8 bytes of a full hash are treated as a
// nonce/tag that must never participate in lookups (spec.md §3).
func (h Hash256) LowHash() Hash256 {
	var low Hash256
	copy(low[8:], h[8:])
	return low
}

// IsLowHash reports whether h's first 8 bytes are already zero, i.e.
// whether h could be its own low hash.
func (h Hash256) IsLowHash() bool {
	for _, b := range h[:8] {
		if b != 0 {
			return false
		}
	}
	return true
}

// HashData returns the Hash256 view of the double-SHA-256 digest of
// data, the primitive that Hash builds on.
func HashData(data []byte) Hash256 {
	return Hash256(hashes.Sha256D(data))
}

type errHashLength int

func (e errHashLength) Error() string {
	return fmt.Sprintf("invalid hash length: expected %d bytes, got %d", HashSize, int(e))
}
