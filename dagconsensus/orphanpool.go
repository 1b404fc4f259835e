package dagconsensus

import (
	"sync"
	"time"

	"github.com/xdagjgo/xdagd/xdagtype"
)

// orphanExpiry is the orphan eviction age electEpoch uses when
// Params.OrphanExpiryMillis is not set (spec.md §7).
const orphanExpiry = 10 * time.Minute

// orphanEntry is a parked block waiting on one or more missing links.
type orphanEntry struct {
	block     *xdagtype.Block
	lowHash   xdagtype.Hash256
	missing   map[xdagtype.Hash256]struct{}
	parkedAt  time.Time
}

// orphanPool parks blocks whose links are not all resolvable yet,
// indexed both by the orphan's own low-hash and by every dependency it
// is still waiting on (spec.md §4.3 step 2, §9 "DAG ownership": the
// pool holds owning copies until linked). It is owned exclusively by
// the consensus thread (spec.md §5), but the mutex keeps it safe for
// diagnostic reads (e.g. a metrics endpoint) from other goroutines.
type orphanPool struct {
	mu       sync.Mutex
	byHash   map[xdagtype.Hash256]*orphanEntry
	waitedOn map[xdagtype.Hash256]map[xdagtype.Hash256]struct{} // dependency -> set of orphan low-hashes
}

func newOrphanPool() *orphanPool {
	return &orphanPool{
		byHash:   make(map[xdagtype.Hash256]*orphanEntry),
		waitedOn: make(map[xdagtype.Hash256]map[xdagtype.Hash256]struct{}),
	}
}

// park places block in the pool, waiting on the given missing
// dependencies. A block already parked is re-parked with the updated
// dependency set (this happens when re-entering step 2 after a
// dependency was unblocked but others remain missing).
func (p *orphanPool) park(lowHash xdagtype.Hash256, block *xdagtype.Block, missing []xdagtype.Hash256) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeLocked(lowHash)

	entry := &orphanEntry{
		block:    block,
		lowHash:  lowHash,
		missing:  make(map[xdagtype.Hash256]struct{}, len(missing)),
		parkedAt: time.Now(),
	}
	for _, dep := range missing {
		entry.missing[dep] = struct{}{}
		if p.waitedOn[dep] == nil {
			p.waitedOn[dep] = make(map[xdagtype.Hash256]struct{})
		}
		p.waitedOn[dep][lowHash] = struct{}{}
	}
	p.byHash[lowHash] = entry
}

func (p *orphanPool) removeLocked(lowHash xdagtype.Hash256) {
	entry, ok := p.byHash[lowHash]
	if !ok {
		return
	}
	for dep := range entry.missing {
		delete(p.waitedOn[dep], lowHash)
		if len(p.waitedOn[dep]) == 0 {
			delete(p.waitedOn, dep)
		}
	}
	delete(p.byHash, lowHash)
}

// unblock pops every orphan waiting on dep and returns them for
// re-entry at admission pipeline step 2 (spec.md §4.3 step 7).
func (p *orphanPool) unblock(dep xdagtype.Hash256) []*xdagtype.Block {
	p.mu.Lock()
	defer p.mu.Unlock()

	waiting := p.waitedOn[dep]
	if len(waiting) == 0 {
		return nil
	}
	out := make([]*xdagtype.Block, 0, len(waiting))
	for lowHash := range waiting {
		entry := p.byHash[lowHash]
		if entry == nil {
			continue
		}
		out = append(out, entry.block)
		p.removeLocked(lowHash)
	}
	return out
}

// sweepExpired evicts every orphan parked longer than expiry, bounding
// memory (spec.md §7).
func (p *orphanPool) sweepExpired(now time.Time, expiry time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	evicted := 0
	for lowHash, entry := range p.byHash {
		if now.Sub(entry.parkedAt) > expiry {
			p.removeLocked(lowHash)
			evicted++
		}
	}
	return evicted
}

func (p *orphanPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHash)
}
