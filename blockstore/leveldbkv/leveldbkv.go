// Package leveldbkv backs blockstore.KVStore with a real on-disk
// engine, github.com/syndtr/goleveldb, the same LevelDB binding this
// package's teacher layers its ffldb store on top of.
package leveldbkv

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/xdagjgo/xdagd/blockstore"
)

// Store wraps a *leveldb.DB as a blockstore.KVStore.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, blockstore.ErrNotFound
	}
	return v, err
}

func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) NewIterator(start, end []byte) blockstore.Iterator {
	rng := &util.Range{Start: start, Limit: end}
	return &iteratorWrapper{it: s.db.NewIterator(rng, nil)}
}

type iteratorWrapper struct {
	it    iterator.Iterator
	first bool
}

func (w *iteratorWrapper) Next() bool {
	return w.it.Next()
}

func (w *iteratorWrapper) Key() []byte {
	out := make([]byte, len(w.it.Key()))
	copy(out, w.it.Key())
	return out
}

func (w *iteratorWrapper) Value() []byte {
	out := make([]byte, len(w.it.Value()))
	copy(out, w.it.Value())
	return out
}

func (w *iteratorWrapper) Error() error { return w.it.Error() }
func (w *iteratorWrapper) Release()     { w.it.Release() }

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (s *Store) NewBatch() blockstore.Batch {
	return &batch{db: s.db, b: new(leveldb.Batch)}
}

func (b *batch) Put(key, value []byte) { b.b.Put(key, value) }
func (b *batch) Delete(key []byte)      { b.b.Delete(key) }
func (b *batch) Commit() error          { return b.db.Write(b.b, nil) }
