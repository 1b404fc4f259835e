package xdagtype

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Decode parses a BlockSize-byte buffer into a Block, enforcing the
// structural rules of spec.md §4.1. It does not perform any semantic
// validation (signatures, arithmetic, timestamps) — that is the job of
// the dagconsensus admission pipeline.
func Decode(raw []byte) (*Block, error) {
	if len(raw) != BlockSize {
		return nil, errors.Errorf("invalid block size: expected %d bytes, got %d", BlockSize, len(raw))
	}

	header := raw[:SlotSize]
	typeField := binary.LittleEndian.Uint64(header[:8])

	// Nibble 0 (the low 4 bits of typeField) must tag the header slot.
	if FieldKind(typeField&0xF) != FieldHeader {
		return nil, errors.New("slot 0 is not tagged as a header field")
	}

	if err := validateComposition(typeField); err != nil {
		return nil, err
	}

	b := &Block{TypeField: typeField}
	b.Timestamp = int64(binary.LittleEndian.Uint64(header[8:16]))
	copy(b.HeaderExtra[:], header[16:32])

	for i := 0; i < numSlots; i++ {
		start := SlotSize + i*SlotSize
		var data [SlotSize]byte
		copy(data[:], raw[start:start+SlotSize])
		b.Slots[i] = Field{Kind: b.NibbleAt(i), Data: data}
	}

	return b, nil
}

// Encode serialises b back into its BlockSize-byte wire form. For any
// value returned by Decode, Decode(Encode(b)) reproduces b byte for
// byte (spec.md §4.1).
func Encode(b *Block) []byte {
	out := make([]byte, BlockSize)

	binary.LittleEndian.PutUint64(out[0:8], b.TypeField)
	binary.LittleEndian.PutUint64(out[8:16], uint64(b.Timestamp))
	copy(out[16:32], b.HeaderExtra[:])

	for i, f := range b.Slots {
		start := SlotSize + i*SlotSize
		copy(out[start:start+SlotSize], f.Data[:])
	}

	return out
}

// Hash returns SHA-256(SHA-256(Encode(b))), the block-hash derivation
// of spec.md §4.1. It is stable across implementations because Encode
// is a pure function of the decoded fields.
func Hash(b *Block) Hash256 {
	return HashData(Encode(b))
}
