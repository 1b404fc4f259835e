// Package xdagecdsa wraps secp256k1 recoverable ECDSA behind a small
// Signer interface. BIP-32/BIP-44 key derivation lives outside this
// package's scope (spec.md §1 treats it as an opaque signer); whatever
// produces a *secp256k1.PrivateKey is free to derive it however it
// likes, including from an HD chain this package never sees.
package xdagecdsa

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"

	"github.com/xdagjgo/xdagd/hashes"
	"github.com/xdagjgo/xdagd/xdagtype"
)

func hash160(data []byte) [20]byte {
	return hashes.Hash160(data)
}

// Signer produces and verifies recoverable secp256k1 ECDSA signatures
// over 32-byte digests.
type Signer interface {
	// Sign returns a recoverable signature over digest.
	Sign(digest [32]byte) (xdagtype.SignatureField, error)
	// PublicKey returns the signer's public key.
	PublicKey() xdagtype.PublicKeyField
}

type privKeySigner struct {
	key *secp256k1.PrivateKey
}

// NewSigner wraps a raw 32-byte private key scalar as a Signer.
func NewSigner(privateKey [32]byte) Signer {
	key := secp256k1.PrivKeyFromBytes(privateKey[:])
	return &privKeySigner{key: key}
}

func (s *privKeySigner) PublicKey() xdagtype.PublicKeyField {
	return publicKeyField(s.key.PubKey())
}

func (s *privKeySigner) Sign(digest [32]byte) (xdagtype.SignatureField, error) {
	sig := ecdsa.SignCompact(s.key, digest[:], false)
	// SignCompact's first byte is (recoveryID + 27 [+ 4 if compressed]);
	// the remaining 64 bytes are R||S in canonical low-S form already.
	if len(sig) != 65 {
		return xdagtype.SignatureField{}, errors.New("unexpected compact signature length")
	}
	parity := (sig[0] - 27) & 1
	var r, sVal [32]byte
	copy(r[:], sig[1:33])
	copy(sVal[:], sig[33:65])
	return xdagtype.EncodeSignatureField(r, sVal, parity), nil
}

func publicKeyField(pub *secp256k1.PublicKey) xdagtype.PublicKeyField {
	uncompressed := pub.SerializeUncompressed()
	var field xdagtype.PublicKeyField
	copy(field.X[:], uncompressed[1:33])
	copy(field.Y[:], uncompressed[33:65])
	return field
}

// Recover recovers the public key that produced sig over digest. It
// rebuilds the 65-byte compact signature from the single recovery
// parity that RecoveryParity unpacks from S and recovers from that —
// mirroring
// the admission pipeline's need (spec.md §4.3 step 3) to recover a
// public key from an in-signature slot that carries no explicit
// public-key field of its own.
func Recover(sig xdagtype.SignatureField, digest [32]byte) (xdagtype.PublicKeyField, error) {
	canonicalS, parity := sig.RecoveryParity()

	compact := make([]byte, 65)
	compact[0] = 27 + parity
	copy(compact[1:33], sig.R[:])
	copy(compact[33:65], canonicalS[:])

	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return xdagtype.PublicKeyField{}, errors.Wrap(err, "recovering public key from signature")
	}
	return publicKeyField(pub), nil
}

// Verify checks a non-recoverable signature (an out-signature, which is
// verified against this very block's own public-key field rather than
// recovered) using the standard DER-free R||S form.
func Verify(pub xdagtype.PublicKeyField, sig xdagtype.SignatureField, digest [32]byte) bool {
	canonicalS, _ := sig.RecoveryParity()

	x := new(secp256k1.FieldVal)
	y := new(secp256k1.FieldVal)
	x.SetByteSlice(pub.X[:])
	y.SetByteSlice(pub.Y[:])
	pubKey := secp256k1.NewPublicKey(x, y)

	r := new(secp256k1.ModNScalar)
	sVal := new(secp256k1.ModNScalar)
	r.SetByteSlice(sig.R[:])
	sVal.SetByteSlice(canonicalS[:])

	signature := ecdsa.NewSignature(r, sVal)
	return signature.Verify(digest[:], pubKey)
}

// PublicKeyHash160 returns RIPEMD-160(SHA-256(uncompressed pubkey)),
// used to check that a recovered public key matches the identity
// recorded on the referenced output (spec.md §4.3 step 3).
func PublicKeyHash160(pub xdagtype.PublicKeyField) [20]byte {
	return hash160(pub.Uncompressed())
}
