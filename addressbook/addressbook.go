// Package addressbook is a minimal peer address table: every address
// starts in the "new" bucket, `Good` promotes it once a successful
// handshake completes, and `Attempt`/`Failed` track a tried address's
// recent connectability. It is grounded on the teacher's
// addressmanager package's map-of-AddressKey shape, trimmed down to
// the two-bucket good/tried model this node actually needs (no
// subnetwork-aware bucketing, no on-disk persistence).
package addressbook

import (
	"encoding/binary"
	"sync"
	"time"
)

// Key identifies an address for map lookups: raw IP bytes followed by
// the big-endian port, matching the teacher's netAddressKey shape.
type Key string

func newKey(ip [16]byte, port uint16) Key {
	buf := make([]byte, 16+2)
	copy(buf, ip[:])
	binary.BigEndian.PutUint16(buf[16:], port)
	return Key(buf)
}

// Address is one candidate peer endpoint plus bookkeeping.
type Address struct {
	IP   [16]byte
	Port uint16

	Tried        bool
	LastAttempt  time.Time
	LastSuccess  time.Time
	FailureCount int
}

// Book is a concurrency-safe address table with two logical buckets:
// "new" (never successfully handshaked) and "tried" (has, at least
// once, completed a handshake).
type Book struct {
	mu   sync.Mutex
	book map[Key]*Address
}

// New creates an empty Book.
func New() *Book {
	return &Book{book: make(map[Key]*Address)}
}

// Add registers an address in the new bucket if not already known. A
// re-add of an already-known address is a no-op, matching the
// teacher's addAddressNoLock idempotence.
func (b *Book) Add(ip [16]byte, port uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := newKey(ip, port)
	if _, ok := b.book[key]; ok {
		return
	}
	b.book[key] = &Address{IP: ip, Port: port}
}

// Remove drops an address entirely.
func (b *Book) Remove(ip [16]byte, port uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.book, newKey(ip, port))
}

// Good promotes an address to the tried bucket after a successful
// handshake, clearing its failure streak.
func (b *Book) Good(ip [16]byte, port uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := newKey(ip, port)
	addr, ok := b.book[key]
	if !ok {
		addr = &Address{IP: ip, Port: port}
		b.book[key] = addr
	}
	addr.Tried = true
	addr.LastSuccess = time.Now()
	addr.FailureCount = 0
}

// Attempt records a connection attempt, whether or not it succeeds;
// callers follow it with Good on success or Failed on failure.
func (b *Book) Attempt(ip [16]byte, port uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := newKey(ip, port)
	addr, ok := b.book[key]
	if !ok {
		return
	}
	addr.LastAttempt = time.Now()
}

// Failed increments an address's failure streak.
func (b *Book) Failed(ip [16]byte, port uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := newKey(ip, port)
	addr, ok := b.book[key]
	if !ok {
		return
	}
	addr.FailureCount++
}

// Tried returns every address that has completed at least one
// successful handshake, most-recent-success first.
func (b *Book) Tried() []Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Address
	for _, addr := range b.book {
		if addr.Tried {
			out = append(out, *addr)
		}
	}
	sortByRecency(out)
	return out
}

// New returns every address that has never completed a handshake.
func (b *Book) New() []Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Address
	for _, addr := range b.book {
		if !addr.Tried {
			out = append(out, *addr)
		}
	}
	return out
}

// Len reports the total number of known addresses, tried and new.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.book)
}

func sortByRecency(addrs []Address) {
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0 && addrs[j].LastSuccess.After(addrs[j-1].LastSuccess); j-- {
			addrs[j], addrs[j-1] = addrs[j-1], addrs[j]
		}
	}
}
