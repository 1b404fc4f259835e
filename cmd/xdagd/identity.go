package main

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/hashes"
	"github.com/xdagjgo/xdagd/xdagecdsa"
)

const identityKeyFilename = "identity.key"

// loadOrCreateIdentity loads the node's persistent signing key from
// datadir, generating and saving a fresh one on first boot. A present
// but malformed key file is a cryptographic failure at boot (spec.md
// §6 exit code 3), distinct from a missing file (which is expected on
// first run).
func loadOrCreateIdentity(dataDir string) (xdagecdsa.Signer, [20]byte, error) {
	path := filepath.Join(dataDir, identityKeyFilename)

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		key, genErr := generatePrivateKeyBytes()
		if genErr != nil {
			return nil, [20]byte{}, errors.Wrap(genErr, "generating node identity key")
		}
		if writeErr := os.WriteFile(path, []byte(hex.EncodeToString(key[:])), 0600); writeErr != nil {
			return nil, [20]byte{}, errors.Wrap(writeErr, "persisting node identity key")
		}
		return signerFromKey(key)
	}
	if err != nil {
		return nil, [20]byte{}, errors.Wrap(err, "reading node identity key")
	}

	key, err := hex.DecodeString(string(raw))
	if err != nil || len(key) != 32 {
		return nil, [20]byte{}, errors.Errorf("identity key file %s is corrupt", path)
	}
	var fixed [32]byte
	copy(fixed[:], key)
	return signerFromKey(fixed)
}

func generatePrivateKeyBytes() ([32]byte, error) {
	var out [32]byte
	for {
		if _, err := rand.Read(out[:]); err != nil {
			return out, err
		}
		if out != ([32]byte{}) {
			return out, nil
		}
	}
}

func signerFromKey(key [32]byte) (xdagecdsa.Signer, [20]byte, error) {
	signer := xdagecdsa.NewSigner(key)
	pub := signer.PublicKey()
	nodeID := hashes.Hash160(pub.Uncompressed())
	return signer, nodeID, nil
}
