package blockstore

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// Flags is the bitset attached to a BlockInfo (spec.md §3).
type Flags uint32

const (
	FlagApplied Flags = 1 << iota
	FlagMain
	FlagMainRef
	FlagMainChain
	FlagOur
	FlagPretop
	FlagRemark
	FlagExtra
	FlagSaved
	FlagUnwind
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// BlockInfo is the derived metadata persisted alongside a block's raw
// bytes (spec.md §3).
type BlockInfo struct {
	Height      uint64
	Difficulty  [32]byte // big-endian u256, see dagconsensus/u256
	Ref         xdagtype.Hash256
	MaxDiffLink xdagtype.Hash256
	Fee         xdagtype.XAmount
	Hash        xdagtype.Hash256
	HashLow     xdagtype.Hash256
	Amount      xdagtype.XAmount
	Timestamp   int64
	Flags       Flags
	Remark      string
}

// encodeInfo serialises a BlockInfo to bytes for the info column
// family. The layout is fixed-width except for the trailing remark,
// matching the rest of this module's position-based encodings.
func encodeInfo(info BlockInfo) []byte {
	const fixed = 8 + 32 + 32 + 32 + 8 + 32 + 32 + 8 + 8 + 4
	buf := make([]byte, fixed+len(info.Remark))

	off := 0
	binary.BigEndian.PutUint64(buf[off:], info.Height)
	off += 8
	copy(buf[off:], info.Difficulty[:])
	off += 32
	copy(buf[off:], info.Ref[:])
	off += 32
	copy(buf[off:], info.MaxDiffLink[:])
	off += 32
	binary.LittleEndian.PutUint64(buf[off:], uint64(info.Fee))
	off += 8
	copy(buf[off:], info.Hash[:])
	off += 32
	copy(buf[off:], info.HashLow[:])
	off += 32
	binary.LittleEndian.PutUint64(buf[off:], uint64(info.Amount))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(info.Timestamp))
	off += 8
	binary.BigEndian.PutUint32(buf[off:], uint32(info.Flags))
	off += 4
	copy(buf[off:], info.Remark)

	return buf
}

func decodeInfo(buf []byte) (BlockInfo, error) {
	const fixed = 8 + 32 + 32 + 32 + 8 + 32 + 32 + 8 + 8 + 4
	if len(buf) < fixed {
		return BlockInfo{}, errors.Errorf("block info too short: %d bytes", len(buf))
	}

	var info BlockInfo
	off := 0
	info.Height = binary.BigEndian.Uint64(buf[off:])
	off += 8
	copy(info.Difficulty[:], buf[off:off+32])
	off += 32
	copy(info.Ref[:], buf[off:off+32])
	off += 32
	copy(info.MaxDiffLink[:], buf[off:off+32])
	off += 32
	info.Fee = xdagtype.XAmount(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	copy(info.Hash[:], buf[off:off+32])
	off += 32
	copy(info.HashLow[:], buf[off:off+32])
	off += 32
	info.Amount = xdagtype.XAmount(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	info.Timestamp = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	info.Flags = Flags(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	info.Remark = string(buf[off:])

	return info, nil
}
