package xdagwire

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// MsgMainBlock carries a full 512-byte block, sent either unsolicited
// (relay) or in answer to a GET_MAIN_BLOCK request.
type MsgMainBlock struct {
	Block *xdagtype.Block
}

func (m *MsgMainBlock) Opcode() Opcode { return OpMainBlock }

func (m *MsgMainBlock) Encode() []byte {
	return xdagtype.Encode(m.Block)
}

func (m *MsgMainBlock) Decode(body []byte) error {
	b, err := xdagtype.Decode(body)
	if err != nil {
		return err
	}
	m.Block = b
	return nil
}

// MsgNewBlock announces a freshly admitted block to peers; its body is
// identical to MsgMainBlock's, the two are distinguished only by intent
// (relay-of-new vs answer-to-request), matching spec.md §6's NEW_BLOCK
// entry.
type MsgNewBlock struct {
	Block *xdagtype.Block
}

func (m *MsgNewBlock) Opcode() Opcode { return OpNewBlock }

func (m *MsgNewBlock) Encode() []byte {
	return xdagtype.Encode(m.Block)
}

func (m *MsgNewBlock) Decode(body []byte) error {
	b, err := xdagtype.Decode(body)
	if err != nil {
		return err
	}
	m.Block = b
	return nil
}

// MsgGetMainBlock requests the full block identified by LowHash.
type MsgGetMainBlock struct {
	LowHash xdagtype.Hash256
}

func (m *MsgGetMainBlock) Opcode() Opcode { return OpGetMainBlock }

func (m *MsgGetMainBlock) Encode() []byte {
	out := make([]byte, xdagtype.HashSize)
	copy(out, m.LowHash[:])
	return out
}

func (m *MsgGetMainBlock) Decode(body []byte) error {
	if len(body) != xdagtype.HashSize {
		return errors.Errorf("GET_MAIN_BLOCK body: expected %d bytes, got %d", xdagtype.HashSize, len(body))
	}
	copy(m.LowHash[:], body)
	return nil
}

// MsgMainBlockHeader carries the lightweight per-height summary used by
// the sync controller's header pipelining (spec.md §6): enough to chain
// main blocks by height without pulling full bodies.
type MsgMainBlockHeader struct {
	Height     uint64
	HashLow    xdagtype.Hash256
	Difficulty [32]byte
	Timestamp  int64
}

func (m *MsgMainBlockHeader) Opcode() Opcode { return OpMainBlockHeader }

func (m *MsgMainBlockHeader) Encode() []byte {
	out := make([]byte, 8+xdagtype.HashSize+32+8)
	binary.BigEndian.PutUint64(out[0:8], m.Height)
	off := 8
	copy(out[off:off+xdagtype.HashSize], m.HashLow[:])
	off += xdagtype.HashSize
	copy(out[off:off+32], m.Difficulty[:])
	off += 32
	binary.BigEndian.PutUint64(out[off:off+8], uint64(m.Timestamp))
	return out
}

func (m *MsgMainBlockHeader) Decode(body []byte) error {
	want := 8 + xdagtype.HashSize + 32 + 8
	if len(body) != want {
		return errors.Errorf("MAIN_BLOCK_HEADER body: expected %d bytes, got %d", want, len(body))
	}
	m.Height = binary.BigEndian.Uint64(body[0:8])
	off := 8
	copy(m.HashLow[:], body[off:off+xdagtype.HashSize])
	off += xdagtype.HashSize
	copy(m.Difficulty[:], body[off:off+32])
	off += 32
	m.Timestamp = int64(binary.BigEndian.Uint64(body[off : off+8]))
	return nil
}

// MsgGetMainBlockHeader requests the header at a given main-chain
// height.
type MsgGetMainBlockHeader struct {
	Height uint64
}

func (m *MsgGetMainBlockHeader) Opcode() Opcode { return OpGetMainBlockHeader }

func (m *MsgGetMainBlockHeader) Encode() []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, m.Height)
	return out
}

func (m *MsgGetMainBlockHeader) Decode(body []byte) error {
	if len(body) != 8 {
		return errors.Errorf("GET_MAIN_BLOCK_HEADER body: expected 8 bytes, got %d", len(body))
	}
	m.Height = binary.BigEndian.Uint64(body)
	return nil
}
