// Package memkv is an in-memory blockstore.KVStore, used by tests and
// by any caller that wants the block store's semantics without a disk
// dependency.
package memkv

import (
	"sort"
	"sync"

	"github.com/xdagjgo/xdagd/blockstore"
)

// Store is an in-memory map guarded by a single mutex; keys are sorted
// only when an iterator is created. It is not
// tuned for concurrency — the consensus thread is the only writer
// (spec.md §5) — only for correctness and simplicity.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	s.data[string(key)] = buf
	return nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, blockstore.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) NewIterator(start, end []byte) blockstore.Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if string(start) != "" && k < string(start) {
			continue
		}
		if end != nil && k >= string(end) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &iterator{store: s, keys: keys, pos: -1}
}

type iterator struct {
	store *Store
	keys  []string
	pos   int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *iterator) Value() []byte {
	it.store.mu.RLock()
	defer it.store.mu.RUnlock()
	v := it.store.data[it.keys[it.pos]]
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (it *iterator) Error() error { return nil }
func (it *iterator) Release()     {}

type op struct {
	del   bool
	key   []byte
	value []byte
}

type batch struct {
	store *Store
	ops   []op
}

func (s *Store) NewBatch() blockstore.Batch {
	return &batch{store: s}
}

func (b *batch) Put(key, value []byte) {
	buf := make([]byte, len(value))
	copy(buf, value)
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), value: buf})
}

func (b *batch) Delete(key []byte) {
	b.ops = append(b.ops, op{del: true, key: append([]byte(nil), key...)})
}

func (b *batch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, o := range b.ops {
		if o.del {
			delete(b.store.data, string(o.key))
			continue
		}
		b.store.data[string(o.key)] = o.value
	}
	return nil
}
