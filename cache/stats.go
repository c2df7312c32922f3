package cache

import "sync/atomic"

// Stats holds the per-cache counters of spec §4.6. All fields are
// atomic so a Cache's Stats can be read concurrently (e.g. by
// catmetrics mirroring a live run) while the single simulation
// goroutine keeps mutating it per spec §5.
type Stats struct {
	hits                atomic.Uint64
	misses              atomic.Uint64
	writebacks          atomic.Uint64
	cleanEvicts         atomic.Uint64
	childHits           atomic.Uint64
	childMisses         atomic.Uint64
	instructionsSeen    atomic.Uint64
}

// Access records a demand access outcome.
func (s *Stats) Access(hit bool) {
	if hit {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
}

// ChildAccess records an access outcome reported by a child cache.
func (s *Stats) ChildAccess(hit bool) {
	if hit {
		s.childHits.Add(1)
	} else {
		s.childMisses.Add(1)
	}
}

// Evict records an eviction, clean or dirty (dirty = writeback).
func (s *Stats) Evict(clean bool) {
	if clean {
		s.cleanEvicts.Add(1)
	} else {
		s.writebacks.Add(1)
	}
}

// RegInst records n instructions retired.
func (s *Stats) RegInst(n uint64) {
	s.instructionsSeen.Add(n)
}

// Hits, Misses, Accesses, Writebacks, CleanEvicts, ChildHits,
// ChildMisses, and Instructions are snapshot readers.
func (s *Stats) Hits() uint64            { return s.hits.Load() }
func (s *Stats) Misses() uint64          { return s.misses.Load() }
func (s *Stats) Accesses() uint64        { return s.hits.Load() + s.misses.Load() }
func (s *Stats) Writebacks() uint64      { return s.writebacks.Load() }
func (s *Stats) CleanEvicts() uint64     { return s.cleanEvicts.Load() }
func (s *Stats) ChildHits() uint64       { return s.childHits.Load() }
func (s *Stats) ChildMisses() uint64     { return s.childMisses.Load() }
func (s *Stats) Instructions() uint64    { return s.instructionsSeen.Load() }

// MPKI returns misses per thousand instructions given an instruction
// count (the driver computes this, per spec §4.6: "Derived aggregates
// (MPKI) computed by the driver").
func (s *Stats) MPKI(instructions uint64) float64 {
	if instructions == 0 {
		return 0
	}
	return float64(s.Misses()) * 1000 / float64(instructions)
}

// Reset zeros all counters, as happens at the warmup boundary (spec
// §4.6). Per-block wearout is not part of Stats and is never reset.
func (s *Stats) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.writebacks.Store(0)
	s.cleanEvicts.Store(0)
	s.childHits.Store(0)
	s.childMisses.Store(0)
	s.instructionsSeen.Store(0)
}
