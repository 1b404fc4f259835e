package xdagtype

// Nonce returns the block's nonce field, if any.
func (b *Block) Nonce() ([32]byte, bool) {
	for i := 0; i < numSlots; i++ {
		if b.NibbleAt(i) == FieldNonce {
			return b.Slots[i].Data, true
		}
	}
	return [32]byte{}, false
}

// SetNonce stores a nonce value at slot.
func (b *Block) SetNonce(slot int, nonce [32]byte) {
	setNibble(&b.TypeField, slot, FieldNonce)
	b.Slots[slot] = Field{Kind: FieldNonce, Data: nonce}
}
