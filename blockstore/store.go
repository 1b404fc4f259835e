package blockstore

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// Column family prefixes. A single KVStore is shared by all three
// families (spec.md §4.2); prefixing keys keeps them from colliding
// while preserving lexicographic ordering within a family.
var (
	prefixBlocks  = []byte{'b'}
	prefixInfo    = []byte{'i'}
	prefixHeights = []byte{'h'}
	metaKey       = []byte{'m'}
)

func blockKey(lowHash xdagtype.Hash256) []byte {
	return append(append([]byte{}, prefixBlocks...), lowHash[:]...)
}

func infoKey(lowHash xdagtype.Hash256) []byte {
	return append(append([]byte{}, prefixInfo...), lowHash[:]...)
}

// heightKey is big-endian so lexicographic order over the heights
// column family matches ascending numeric height (spec.md §4.2,
// iterateByHeight).
func heightKey(height uint64) []byte {
	key := append([]byte{}, prefixHeights...)
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], height)
	return append(key, h[:]...)
}

// Meta is the node's persisted tip pointer (spec.md §6).
type Meta struct {
	SchemaVersion  uint16
	NetworkID      uint32
	GenesisLowHash xdagtype.Hash256
	TipLowHash     xdagtype.Hash256
	TipHeight      uint64
}

func encodeMeta(m Meta) []byte {
	buf := make([]byte, 2+4+32+32+8)
	off := 0
	binary.BigEndian.PutUint16(buf[off:], m.SchemaVersion)
	off += 2
	binary.BigEndian.PutUint32(buf[off:], m.NetworkID)
	off += 4
	copy(buf[off:], m.GenesisLowHash[:])
	off += 32
	copy(buf[off:], m.TipLowHash[:])
	off += 32
	binary.BigEndian.PutUint64(buf[off:], m.TipHeight)
	return buf
}

func decodeMeta(buf []byte) (Meta, error) {
	if len(buf) < 2+4+32+32+8 {
		return Meta{}, errors.New("meta record too short")
	}
	var m Meta
	off := 0
	m.SchemaVersion = binary.BigEndian.Uint16(buf[off:])
	off += 2
	m.NetworkID = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.GenesisLowHash[:], buf[off:off+32])
	off += 32
	copy(m.TipLowHash[:], buf[off:off+32])
	off += 32
	m.TipHeight = binary.BigEndian.Uint64(buf[off:])
	return m, nil
}

// Store is the content-addressed block store of spec.md §4.2, layered
// over any KVStore.
type Store struct {
	kv KVStore
}

// New wraps kv as a block Store.
func New(kv KVStore) *Store {
	return &Store{kv: kv}
}

// Put persists a block's raw bytes and derived BlockInfo atomically:
// both become visible on the next read, or neither does.
func (s *Store) Put(lowHash xdagtype.Hash256, raw []byte, info BlockInfo) error {
	if len(raw) != xdagtype.BlockSize {
		return errors.Errorf("blockstore: expected %d raw bytes, got %d", xdagtype.BlockSize, len(raw))
	}
	b := s.kv.NewBatch()
	b.Put(blockKey(lowHash), raw)
	b.Put(infoKey(lowHash), encodeInfo(info))
	if info.Flags.Has(FlagMain) {
		b.Put(heightKey(info.Height), lowHash[:])
	}
	return b.Commit()
}

// Get returns the raw block bytes for lowHash, or ErrNotFound.
func (s *Store) Get(lowHash xdagtype.Hash256) ([]byte, error) {
	return s.kv.Get(blockKey(lowHash))
}

// GetInfo returns the BlockInfo for lowHash, or ErrNotFound.
func (s *Store) GetInfo(lowHash xdagtype.Hash256) (BlockInfo, error) {
	buf, err := s.kv.Get(infoKey(lowHash))
	if err != nil {
		return BlockInfo{}, err
	}
	return decodeInfo(buf)
}

// Has reports whether lowHash is present in the store.
func (s *Store) Has(lowHash xdagtype.Hash256) (bool, error) {
	return s.kv.Has(blockKey(lowHash))
}

// IterateByHeight yields BlockInfo for every main block with height in
// [from, to], ascending (spec.md §4.2, used during reorg replay).
func (s *Store) IterateByHeight(from, to uint64) ([]BlockInfo, error) {
	it := s.kv.NewIterator(heightKey(from), heightKey(to+1))
	defer it.Release()

	var out []BlockInfo
	for it.Next() {
		var lowHash xdagtype.Hash256
		copy(lowHash[:], it.Value())
		info, err := s.GetInfo(lowHash)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, it.Error()
}

// UpdateFlags atomically mutates the flags (and, since it may add or
// remove MAIN, the heights index) of an already-stored block. Readers
// observing the new flags also observe a consistent maxDiffLink,
// because both live in the same info record written by this batch.
func (s *Store) UpdateFlags(lowHash xdagtype.Hash256, newFlags Flags) error {
	info, err := s.GetInfo(lowHash)
	if err != nil {
		return err
	}
	info.Flags = newFlags
	return s.UpdateInfo(lowHash, info)
}

// UpdateInfo atomically replaces the stored BlockInfo for an
// already-present block, keeping the heights index consistent with
// whatever MAIN flag the new info carries.
func (s *Store) UpdateInfo(lowHash xdagtype.Hash256, info BlockInfo) error {
	old, err := s.GetInfo(lowHash)
	if err != nil {
		return err
	}
	wasMain := old.Flags.Has(FlagMain)

	b := s.kv.NewBatch()
	b.Put(infoKey(lowHash), encodeInfo(info))
	nowMain := info.Flags.Has(FlagMain)
	switch {
	case nowMain:
		b.Put(heightKey(info.Height), lowHash[:])
	case wasMain && !nowMain:
		b.Delete(heightKey(old.Height))
	}
	return b.Commit()
}

// PutMeta atomically writes the persisted tip pointer (spec.md §6).
func (s *Store) PutMeta(m Meta) error {
	return s.kv.Put(metaKey, encodeMeta(m))
}

// GetMeta reads the persisted tip pointer, or ErrNotFound if the store
// has never been initialised.
func (s *Store) GetMeta() (Meta, error) {
	buf, err := s.kv.Get(metaKey)
	if err != nil {
		return Meta{}, err
	}
	return decodeMeta(buf)
}

// Close releases the underlying KVStore.
func (s *Store) Close() error {
	return s.kv.Close()
}
