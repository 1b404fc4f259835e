package xdagtype

import (
	"github.com/pkg/errors"
)

// FieldKind tags the role of one 32-byte field slot, packed as a 4-bit
// nibble in Block.TypeField (spec.md §3, §4.1).
type FieldKind uint8

// The nine recognised field kinds. Values above FieldReserved are not
// part of any legal composition.
const (
	FieldHeader FieldKind = iota
	FieldInputLink
	FieldOutputLink
	FieldInSignature
	FieldOutSignature
	FieldPublicKey
	FieldNonce
	FieldRemark
	FieldReserved
	fieldKindCount
)

func (k FieldKind) String() string {
	switch k {
	case FieldHeader:
		return "header"
	case FieldInputLink:
		return "input-link"
	case FieldOutputLink:
		return "output-link"
	case FieldInSignature:
		return "in-signature"
	case FieldOutSignature:
		return "out-signature"
	case FieldPublicKey:
		return "public-key"
	case FieldNonce:
		return "nonce"
	case FieldRemark:
		return "remark"
	case FieldReserved:
		return "reserved"
	default:
		return "invalid"
	}
}

// spansTwoSlots reports whether a field kind occupies two consecutive
// 32-byte slots instead of one: signatures need 64 bytes for R||S, and
// public keys need 64 bytes for uncompressed X||Y (see SignatureField
// for the compact-signature packing this implies).
func (k FieldKind) spansTwoSlots() bool {
	switch k {
	case FieldInSignature, FieldOutSignature, FieldPublicKey:
		return true
	default:
		return false
	}
}

// numSlots is the total number of 32-byte body slots following the
// header slot: 15 slots × 32 bytes + 1 header slot × 32 bytes = 512.
const numSlots = 15

// SlotSize is the width in bytes of one field slot.
const SlotSize = 32

// BlockSize is the fixed wire size of an encoded block.
const BlockSize = (numSlots + 1) * SlotSize

// Field is one decoded 32-byte body slot together with the kind its
// type nibble assigned it.
type Field struct {
	Kind FieldKind
	Data [SlotSize]byte
}

// Block is a single DAG node: a 512-byte transaction block, decoded
// into its typed fields (spec.md §3).
type Block struct {
	// TypeField packs one 4-bit nibble per slot (nibble 0 is always
	// FieldHeader and is not separately stored; nibbles 1..15 tag
	// Slots[0..14]).
	TypeField uint64
	// Timestamp is milliseconds since epoch, embedded in the header slot.
	Timestamp int64
	// HeaderExtra is the header slot's remaining 16 bytes, reserved for
	// protocol evolution and currently opaque to consensus.
	HeaderExtra [16]byte
	// Slots holds the 15 body fields in wire order.
	Slots [numSlots]Field
}

// NibbleAt returns the type nibble governing Slots[i] (i in [0,15)).
func (b *Block) NibbleAt(i int) FieldKind {
	return FieldKind((b.TypeField >> uint((i+1)*4)) & 0xF)
}

func setNibble(typeField *uint64, slot int, kind FieldKind) {
	shift := uint((slot + 1) * 4)
	*typeField &^= 0xF << shift
	*typeField |= uint64(kind) << shift
}

// InputLinks returns every input-link field, in slot order.
func (b *Block) InputLinks() []LinkField {
	return b.linksOfKind(FieldInputLink)
}

// OutputLinks returns every output-link field, in slot order.
func (b *Block) OutputLinks() []LinkField {
	return b.linksOfKind(FieldOutputLink)
}

func (b *Block) linksOfKind(kind FieldKind) []LinkField {
	var out []LinkField
	for i, f := range b.Slots {
		if b.NibbleAt(i) == kind {
			out = append(out, decodeLinkField(f.Data))
		}
	}
	return out
}

// LinkField is a decoded input/output link: an amount and the low hash
// of the referenced block. Only 24 bytes of the low hash are stored on
// the wire since its first 8 bytes are always zero (spec.md §3); the
// remaining 8 bytes of the slot hold the amount.
type LinkField struct {
	Amount    XAmount
	LowHash24 [24]byte // low hash bytes [8:32]
}

// LowHash reconstructs the full 32-byte low hash from its stored 24-byte
// fragment.
func (l LinkField) LowHash() Hash256 {
	var h Hash256
	copy(h[8:], l.LowHash24[:])
	return h
}

func decodeLinkField(data [SlotSize]byte) LinkField {
	var l LinkField
	l.Amount = XAmountFromLittleEndian(data[:8])
	copy(l.LowHash24[:], data[8:])
	return l
}

func encodeLinkField(amount XAmount, lowHash Hash256) [SlotSize]byte {
	var data [SlotSize]byte
	amount.PutLittleEndian(data[:8])
	copy(data[8:], lowHash[8:])
	return data
}

// AddInputLink appends an input-link field referencing lowHash for amount.
func (b *Block) AddInputLink(slot int, amount XAmount, lowHash Hash256) {
	setNibble(&b.TypeField, slot, FieldInputLink)
	b.Slots[slot] = Field{Kind: FieldInputLink, Data: encodeLinkField(amount, lowHash)}
}

// AddOutputLink appends an output-link field referencing lowHash for amount.
func (b *Block) AddOutputLink(slot int, amount XAmount, lowHash Hash256) {
	setNibble(&b.TypeField, slot, FieldOutputLink)
	b.Slots[slot] = Field{Kind: FieldOutputLink, Data: encodeLinkField(amount, lowHash)}
}

// Remark returns the decoded remark text, if the block carries one.
func (b *Block) Remark() (string, bool) {
	for i, f := range b.Slots {
		if b.NibbleAt(i) == FieldRemark {
			end := len(f.Data)
			for end > 0 && f.Data[end-1] == 0 {
				end--
			}
			return string(f.Data[:end]), true
		}
	}
	return "", false
}

// SetRemark stores a (possibly truncated) remark at slot.
func (b *Block) SetRemark(slot int, remark string) {
	setNibble(&b.TypeField, slot, FieldRemark)
	var data [SlotSize]byte
	n := copy(data[:], remark)
	_ = n
	b.Slots[slot] = Field{Kind: FieldRemark, Data: data}
}

// validateComposition checks the structural rules from spec.md §4.1:
// exactly one header (implicit at slot 0; a zero nibble on a body slot
// marks that slot unused, not a second header), at most one nonce, and
// every two-slot field kind (signatures, public keys) occupies a
// well-formed consecutive pair.
func validateComposition(typeField uint64) error {
	nonceCount := 0
	for i := 0; i < numSlots; i++ {
		kind := FieldKind((typeField >> uint((i+1)*4)) & 0xF)
		if kind >= fieldKindCount {
			return errors.Errorf("slot %d has unrecognised field kind nibble %d", i, kind)
		}
		if kind == FieldHeader {
			continue // unused slot
		}
		if kind == FieldNonce {
			nonceCount++
		}
		if kind.spansTwoSlots() {
			if i+1 >= numSlots {
				return errors.Errorf("slot %d: %s field has no pairing slot", i, kind)
			}
			next := FieldKind((typeField >> uint((i+2)*4)) & 0xF)
			if next != kind {
				return errors.Errorf("slot %d: %s field is not paired with a matching slot %d", i, kind, i+1)
			}
			i++ // consume the pairing slot
		}
	}
	if nonceCount > 1 {
		return errors.Errorf("block declares %d nonce fields, at most one is legal", nonceCount)
	}
	return nil
}
