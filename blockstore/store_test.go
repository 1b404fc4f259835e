package blockstore_test

import (
	"testing"

	"github.com/xdagjgo/xdagd/blockstore"
	"github.com/xdagjgo/xdagd/blockstore/memkv"
	"github.com/xdagjgo/xdagd/xdagtype"
)

func testLowHash(b byte) xdagtype.Hash256 {
	var h xdagtype.Hash256
	h[31] = b
	return h.LowHash()
}

func testRawBlock() []byte {
	return make([]byte, xdagtype.BlockSize)
}

func TestPutGetRoundTrip(t *testing.T) {
	store := blockstore.New(memkv.New())
	lowHash := testLowHash(1)
	info := blockstore.BlockInfo{Height: 1, HashLow: lowHash, Flags: blockstore.FlagApplied}

	if err := store.Put(lowHash, testRawBlock(), info); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, err := store.Get(lowHash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(raw) != xdagtype.BlockSize {
		t.Fatalf("Get returned %d bytes, want %d", len(raw), xdagtype.BlockSize)
	}

	got, err := store.GetInfo(lowHash)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if got.Height != 1 || got.Flags != blockstore.FlagApplied {
		t.Fatalf("GetInfo round-trip mismatch: %+v", got)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	store := blockstore.New(memkv.New())
	_, err := store.Get(testLowHash(9))
	if err != blockstore.ErrNotFound {
		t.Fatalf("Get on missing key: got %v, want ErrNotFound", err)
	}
}

func TestIterateByHeightAscending(t *testing.T) {
	store := blockstore.New(memkv.New())
	for h := uint64(1); h <= 5; h++ {
		lowHash := testLowHash(byte(h))
		info := blockstore.BlockInfo{Height: h, HashLow: lowHash, Flags: blockstore.FlagApplied | blockstore.FlagMain}
		if err := store.Put(lowHash, testRawBlock(), info); err != nil {
			t.Fatalf("Put height %d: %v", h, err)
		}
	}

	infos, err := store.IterateByHeight(2, 4)
	if err != nil {
		t.Fatalf("IterateByHeight: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("got %d infos, want 3", len(infos))
	}
	for i, info := range infos {
		if info.Height != uint64(2+i) {
			t.Fatalf("infos[%d].Height = %d, want %d", i, info.Height, 2+i)
		}
	}
}

func TestUpdateFlagsClearsMainFromHeightIndex(t *testing.T) {
	store := blockstore.New(memkv.New())
	lowHash := testLowHash(7)
	info := blockstore.BlockInfo{Height: 3, HashLow: lowHash, Flags: blockstore.FlagApplied | blockstore.FlagMain}
	if err := store.Put(lowHash, testRawBlock(), info); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.UpdateFlags(lowHash, blockstore.FlagApplied|blockstore.FlagUnwind); err != nil {
		t.Fatalf("UpdateFlags: %v", err)
	}

	infos, err := store.IterateByHeight(3, 3)
	if err != nil {
		t.Fatalf("IterateByHeight: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected height index entry removed after clearing MAIN, got %d entries", len(infos))
	}

	got, err := store.GetInfo(lowHash)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if !got.Flags.Has(blockstore.FlagUnwind) || got.Flags.Has(blockstore.FlagMain) {
		t.Fatalf("flags not updated correctly: %v", got.Flags)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	store := blockstore.New(memkv.New())
	m := blockstore.Meta{SchemaVersion: 1, NetworkID: 1, TipHeight: 42}
	if err := store.PutMeta(m); err != nil {
		t.Fatalf("PutMeta: %v", err)
	}
	got, err := store.GetMeta()
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if got.TipHeight != 42 || got.NetworkID != 1 {
		t.Fatalf("meta round-trip mismatch: %+v", got)
	}
}
