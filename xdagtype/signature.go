package xdagtype

// SignatureField is a decoded recoverable ECDSA signature. Following
// EIP-2098's compact-signature convention, no separate byte is spent on
// the recovery id: the block format canonicalises S to its low-S form
// (S <= n/2) during signing, which leaves S's top bit permanently zero,
// and that freed bit carries the public key's Y-parity so a verifier
// can recover the full 65-byte form without a third slot. This is what
// lets a signature fit in exactly two 32-byte slots instead of three.
type SignatureField struct {
	R [32]byte
	S [32]byte // top bit repurposed as the packed recovery parity bit
}

const sTopBit = 1 << 7

// RecoveryParity extracts the packed parity bit and returns S with that
// bit masked back to zero (the canonical low-S value a verifier needs).
func (s SignatureField) RecoveryParity() (canonicalS [32]byte, parity byte) {
	canonicalS = s.S
	parity = (canonicalS[0] >> 7) & 1
	canonicalS[0] &^= sTopBit
	return canonicalS, parity
}

// EncodeSignatureField packs a canonical low-S signature plus its
// recovery parity bit into the two-slot wire form.
func EncodeSignatureField(r, canonicalS [32]byte, parity byte) SignatureField {
	s := canonicalS
	s[0] &^= sTopBit
	if parity&1 == 1 {
		s[0] |= sTopBit
	}
	return SignatureField{R: r, S: s}
}

// signaturePairs returns, in slot order, the SignatureField of every
// slot pair of the given two-slot signature kind (FieldInSignature or
// FieldOutSignature).
func (b *Block) signaturePairs(kind FieldKind) []SignatureField {
	var out []SignatureField
	for i := 0; i < numSlots; i++ {
		if b.NibbleAt(i) != kind {
			continue
		}
		var sig SignatureField
		copy(sig.R[:], b.Slots[i].Data[:])
		i++
		if i >= numSlots {
			break
		}
		copy(sig.S[:], b.Slots[i].Data[:])
		out = append(out, sig)
	}
	return out
}

// InSignatures returns every in-signature field on the block.
func (b *Block) InSignatures() []SignatureField {
	return b.signaturePairs(FieldInSignature)
}

// OutSignatures returns every out-signature field on the block.
func (b *Block) OutSignatures() []SignatureField {
	return b.signaturePairs(FieldOutSignature)
}

// PutSignature writes a signature spanning slots [slot, slot+1].
func (b *Block) PutSignature(slot int, kind FieldKind, sig SignatureField) {
	setNibble(&b.TypeField, slot, kind)
	setNibble(&b.TypeField, slot+1, kind)
	b.Slots[slot] = Field{Kind: kind, Data: sig.R}
	b.Slots[slot+1] = Field{Kind: kind, Data: sig.S}
}

// PublicKeyField is a decoded uncompressed secp256k1 public key with its
// 0x04 prefix implied rather than stored, freeing the field to fit
// exactly two 32-byte slots (X and Y) instead of needing a third byte.
type PublicKeyField struct {
	X [32]byte
	Y [32]byte
}

// Uncompressed returns the standard 65-byte 0x04||X||Y encoding.
func (p PublicKeyField) Uncompressed() []byte {
	out := make([]byte, 65)
	out[0] = 0x04
	copy(out[1:33], p.X[:])
	copy(out[33:65], p.Y[:])
	return out
}

// PublicKeys returns every public-key field on the block.
func (b *Block) PublicKeys() []PublicKeyField {
	var out []PublicKeyField
	for i := 0; i < numSlots; i++ {
		if b.NibbleAt(i) != FieldPublicKey {
			continue
		}
		var pk PublicKeyField
		copy(pk.X[:], b.Slots[i].Data[:])
		i++
		if i >= numSlots {
			break
		}
		copy(pk.Y[:], b.Slots[i].Data[:])
		out = append(out, pk)
	}
	return out
}

// PutPublicKey writes a public key spanning slots [slot, slot+1].
func (b *Block) PutPublicKey(slot int, x, y [32]byte) {
	setNibble(&b.TypeField, slot, FieldPublicKey)
	setNibble(&b.TypeField, slot+1, FieldPublicKey)
	b.Slots[slot] = Field{Kind: FieldPublicKey, Data: x}
	b.Slots[slot+1] = Field{Kind: FieldPublicKey, Data: y}
}
