package cache

import (
	"hash/fnv"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
)

// InsertPolicy is the insertion/inclusion policy contract (spec §4.3).
// ShouldAllocate is consulted only in allocate-on-evict (non-inclusive)
// mode when a miss would otherwise install a line; OnEvict updates
// predictor state whenever a block leaves the cache that owns this
// policy.
type InsertPolicy interface {
	ShouldAllocate(addr uint64, rdCount, wrCount uint32, isInst bool) bool
	OnEvict(addr uint64, rdCount, wrCount uint32)
}

// AllPolicy always allocates; it is also the behavior of inclusive mode,
// where the insertion policy is bypassed entirely.
type AllPolicy struct{}

func (AllPolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool { return true }
func (AllPolicy) OnEvict(addr uint64, rd, wr uint32)                         {}

// NonePolicy never allocates.
type NonePolicy struct{}

func (NonePolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool { return false }
func (NonePolicy) OnEvict(addr uint64, rd, wr uint32)                         {}

// InstOnlyPolicy allocates only instruction lines.
type InstOnlyPolicy struct{}

func (InstOnlyPolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool { return isInst }
func (InstOnlyPolicy) OnEvict(addr uint64, rd, wr uint32)                         {}

// ReadThresholdPolicy allocates when the incoming read count has reached
// at least T.
type ReadThresholdPolicy struct{ T uint32 }

func (p ReadThresholdPolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool {
	return rd >= p.T
}
func (ReadThresholdPolicy) OnEvict(addr uint64, rd, wr uint32) {}

// WriteThresholdPolicy allocates when the incoming write count is at
// most T (i.e. the line was not heavily written where it came from).
type WriteThresholdPolicy struct{ T uint32 }

func (p WriteThresholdPolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool {
	return wr <= p.T
}
func (WriteThresholdPolicy) OnEvict(addr uint64, rd, wr uint32) {}

// RandomPolicy allocates with probability P/100 using a single seedable
// PRNG owned by the cache (spec §9: "all randomness ... must come from a
// single seedable PRNG per cache").
type RandomPolicy struct {
	P   int // 0..100
	Rng *rand.Rand
}

func (p *RandomPolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool {
	return p.Rng.Intn(100) < p.P
}
func (*RandomPolicy) OnEvict(addr uint64, rd, wr uint32) {}
func (p *RandomPolicy) setRng(r *rand.Rand)              { p.Rng = r }

// BloomPolicy is the Bloom-filter dead-block predictor (spec §4.3).
// A bit array of size S with H independent hash functions, each derived
// from an FNV-1a-style mix of a per-function seed and the line address.
// DirtyOnly selects the spec §9 open-question axis: whether OnEvict sets
// bits only on a dirty eviction or on every eviction (the default). The
// catconfig "bloom_S" policy name always builds the every-eviction form;
// no configuration name sets DirtyOnly.
type BloomPolicy struct {
	Bits      *bitset.BitSet
	H         int
	P         int // 0..100, probability gate
	CleanOnly bool
	DirtyOnly bool
	LineBits  uint // log2(line size), used to derive the line address
	Rng       *rand.Rand
}

// NewBloomPolicy constructs a Bloom predictor with a bit array of size S
// bits and H hash functions.
func NewBloomPolicy(size uint, h, p int, cleanOnly, dirtyOnly bool, lineBits uint, rng *rand.Rand) *BloomPolicy {
	return &BloomPolicy{
		Bits:      bitset.New(size),
		H:         h,
		P:         p,
		CleanOnly: cleanOnly,
		DirtyOnly: dirtyOnly,
		LineBits:  lineBits,
		Rng:       rng,
	}
}

func (b *BloomPolicy) setRng(r *rand.Rand) { b.Rng = r }

// seedable is implemented by insertion policies that draw randomness, so
// Cache.New can wire them to the one seedable PRNG it owns per spec §9
// ("all randomness ... must come from a single seedable PRNG per
// cache"), regardless of whether the caller already set Rng explicitly.
type seedable interface {
	setRng(*rand.Rand)
}

// hashBit computes the bit position for hash function i on line address
// lineAddr, mixing a per-function seed with an FNV-1a hash.
func (b *BloomPolicy) hashBit(i int, lineAddr uint64) uint {
	h := fnv.New64a()
	var seedBuf [8]byte
	seed := uint64(i)
	for j := 0; j < 8; j++ {
		seedBuf[j] = byte(seed >> (8 * j))
	}
	h.Write(seedBuf[:])
	var addrBuf [8]byte
	for j := 0; j < 8; j++ {
		addrBuf[j] = byte(lineAddr >> (8 * j))
	}
	h.Write(addrBuf[:])
	return uint(h.Sum64() % uint64(b.Bits.Len()))
}

// OnEvict sets all H bits for addr's line, unless DirtyOnly is set and
// the evicted block was never written (wrCount == 0).
func (b *BloomPolicy) OnEvict(addr uint64, rd, wr uint32) {
	if b.DirtyOnly && wr == 0 {
		return
	}
	line := addr >> b.LineBits
	for i := 0; i < b.H; i++ {
		b.Bits.Set(b.hashBit(i, line))
	}
}

// ShouldAllocate implements the three-step gate from spec §4.3:
// probability gate, optional clean-only veto, then the predicted-dead
// check (all H bits set).
func (b *BloomPolicy) ShouldAllocate(addr uint64, rd, wr uint32, isInst bool) bool {
	if b.Rng.Intn(100) >= b.P {
		return false
	}
	if b.CleanOnly && wr > 0 {
		return false
	}
	line := addr >> b.LineBits
	for i := 0; i < b.H; i++ {
		if !b.Bits.Test(b.hashBit(i, line)) {
			return true
		}
	}
	return false
}
