// Package cache implements the set-associative cache request pipeline,
// replacement and insertion policies, and per-level statistics that
// together form one level of the hierarchy simulator.
package cache

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/acrucker/dynamorio/memref"
)

// Options configures a new Cache. Assoc, LineSize, and NumBlocks must
// all be powers of two, LineSize >= 4, and NumBlocks a multiple of
// Assoc whose quotient is itself a power of two (spec §3's invariants).
type Options struct {
	Assoc             int
	LineSize          int
	NumBlocks         int
	Parent            *Cache
	Repl              ReplPolicy
	Insert            InsertPolicy
	AllocOnEvict      bool
	EvictAfterNWrites uint32
	IsICache          bool
	CoreID            int
	Seed              int64
}

// Cache is one set-associative level of the hierarchy: a fixed array of
// Blocks grouped into sets, a replacement and an insertion policy, a
// Stats sink, an optional parent, and an optional MissLogger.
type Cache struct {
	assoc       int
	lineBits    uint
	numSets     int // spec's "blocks_per_set": number of sets, num_blocks/assoc
	setMask     uint64
	blocks      []Block // len == numSets*assoc, laid out set-major

	parent            *Cache
	stats             Stats
	logger            MissLogger
	repl              ReplPolicy
	insert            InsertPolicy
	allocOnEvict      bool
	evictAfterNWrites uint32
	isICache          bool
	coreID            int
	recentInstrs      int64

	rng *rand.Rand
}

// New validates opts and constructs a Cache. It returns an error for any
// of the configuration problems spec §7 classifies as "Configuration
// errors": non-power-of-two sizes, or a num_blocks not evenly divisible
// into a power-of-two number of sets.
func New(opts Options) (*Cache, error) {
	if !isPow2(opts.Assoc) {
		return nil, cfgErrorf("assoc %d is not a power of two", opts.Assoc)
	}
	if opts.LineSize < 4 || !isPow2(opts.LineSize) {
		return nil, cfgErrorf("line_size %d must be a power of two >= 4", opts.LineSize)
	}
	if !isPow2(opts.NumBlocks) {
		return nil, cfgErrorf("num_blocks %d is not a power of two", opts.NumBlocks)
	}
	if opts.NumBlocks%opts.Assoc != 0 {
		return nil, cfgErrorf("num_blocks %d is not a multiple of assoc %d", opts.NumBlocks, opts.Assoc)
	}
	numSets := opts.NumBlocks / opts.Assoc
	if !isPow2(numSets) {
		return nil, cfgErrorf("num_blocks/assoc (%d) must be a power of two", numSets)
	}

	repl := opts.Repl
	if repl == nil {
		repl = NewLRUPolicy()
	}
	insert := opts.Insert
	if insert == nil {
		insert = AllPolicy{}
	}

	blocks := make([]Block, opts.NumBlocks)
	for i := range blocks {
		blocks[i] = newBlock()
	}

	c := &Cache{
		assoc:             opts.Assoc,
		lineBits:          uint(bits.TrailingZeros(uint(opts.LineSize))),
		numSets:           numSets,
		setMask:           uint64(numSets - 1),
		blocks:            blocks,
		parent:            opts.Parent,
		repl:              repl,
		insert:            insert,
		allocOnEvict:      opts.AllocOnEvict,
		evictAfterNWrites: opts.EvictAfterNWrites,
		isICache:          opts.IsICache,
		coreID:            opts.CoreID,
		rng:               rand.New(rand.NewSource(opts.Seed)),
	}
	if s, ok := insert.(seedable); ok {
		s.setRng(c.rng)
	}
	return c, nil
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// Stats returns this cache's statistics sink.
func (c *Cache) Stats() *Stats { return &c.stats }

// Parent returns the parent cache, or nil at the root or once a logger
// has severed it.
func (c *Cache) Parent() *Cache { return c.parent }

// SetMissLogger attaches a MissLogger and severs this cache's parent, as
// spec §4.7 requires ("the cache's parent is severed (set to None) so
// that the logged events are exhaustive").
func (c *Cache) SetMissLogger(l MissLogger) {
	c.logger = l
	c.parent = nil
}

// RegInst accumulates n retired instructions since the last logged
// event, mirroring caching_device_t::reg_inst.
func (c *Cache) RegInst(n int) {
	c.recentInstrs += int64(n)
}

// flushInstrBundle emits the accumulated instruction count as an IB
// record and resets it, per spec §4.7: "whenever a miss is emitted, the
// accumulated instruction count since the last flush is first emitted
// as IB, then reset."
func (c *Cache) flushInstrBundle() {
	if c.logger == nil {
		return
	}
	if c.recentInstrs > 0 {
		c.logger.LogInstrBundle(c.coreID, int(c.recentInstrs))
		c.recentInstrs = 0
	}
}

func (c *Cache) setIndexForTag(tag uint64) uint64 { return tag & c.setMask }

func (c *Cache) setView(setIdx uint64) *setView {
	base := int(setIdx) * c.assoc
	ptrs := make([]*Block, c.assoc)
	for w := 0; w < c.assoc; w++ {
		ptrs[w] = &c.blocks[base+w]
	}
	return &setView{blocks: ptrs}
}

func (c *Cache) blockAt(setIdx uint64, way int) *Block {
	return &c.blocks[int(setIdx)*c.assoc+way]
}

// Request is the central algorithm of spec §4.4: tag lookup, hit/miss
// accounting, replacement and insertion, writeback generation, and
// recursive propagation to the parent. It panics with an *InvariantError
// if a write request reaches an instruction cache, a condition spec §7
// calls a "programmer error"; such panics must never occur for a
// validated configuration. A non-power-of-two derived set count is
// rejected earlier, by New, as a configuration error.
func (c *Cache) Request(m memref.ExtMemref) {
	// Step 1: short-circuit a clean eviction in inclusive mode. An
	// inclusive parent already holds its own copy of the line, so a
	// clean child eviction needs no action here; non-inclusive mode
	// must keep going so the insertion policy can still observe and
	// learn from the eviction (e.g. a Bloom dead-block predictor).
	if !c.allocOnEvict && m.IsEvict && m.WrCount == 0 {
		return
	}

	tagFirst := m.Addr >> c.lineBits
	lastAddr := m.Addr + m.Size - 1
	tagLast := lastAddr >> c.lineBits

	for tag := tagFirst; tag <= tagLast; tag++ {
		c.processLine(tag, m)
	}
}

func (c *Cache) processLine(tag uint64, m memref.ExtMemref) {
	invariant(!(c.isICache && m.Type == memref.Write),
		"write request reached instruction cache (core %d, line %#x)", m.Core, tag)

	setIdx := c.setIndexForTag(tag)
	sv := c.setView(setIdx)

	hitWay := -1
	for w := 0; w < c.assoc; w++ {
		if sv.blocks[w].Tag == tag {
			hitWay = w
			break
		}
	}

	if hitWay >= 0 {
		c.handleHit(setIdx, sv, hitWay, m)
		return
	}
	c.handleMiss(tag, setIdx, sv, m)
}

func (c *Cache) handleHit(setIdx uint64, sv *setView, way int, m memref.ExtMemref) {
	b := sv.blocks[way]
	c.repl.OnAccess(sv, way)

	switch {
	case m.IsEvict:
		b.RdCount += m.RdCount
		b.WrCount += m.WrCount
		if m.WrCount > 0 {
			b.Dirty = true
		}
	case m.Type == memref.Write:
		b.WrCount++
		b.Dirty = true
		b.Wearout++
		c.repl.OnWrite(sv, way)
		if c.evictAfterNWrites > 0 && b.WrCount > c.evictAfterNWrites {
			c.evict(setIdx, way)
		}
	default: // demand read
		b.RdCount++
		b.EverInst = b.EverInst || m.IsInst
	}

	if !m.IsEvict {
		c.stats.Access(true)
		if c.parent != nil {
			c.parent.stats.ChildAccess(true)
		}
	}
}

func (c *Cache) handleMiss(tag uint64, setIdx uint64, sv *setView, m memref.ExtMemref) {
	if !m.IsEvict {
		c.stats.Access(false)
		c.emitMissLog(m)
		if c.parent != nil {
			lineMemref := m
			lineMemref.Addr = tag << c.lineBits
			lineMemref.Size = 1 << c.lineBits
			c.parent.Request(lineMemref)
			c.parent.stats.ChildAccess(false)
		}
	}

	allocate := c.shouldAllocateOnMiss(m)
	if !allocate {
		return
	}

	way := c.repl.PickVictim(sv)
	c.evict(setIdx, way)
	b := c.blockAt(setIdx, way)
	b.Tag = tag
	b.RdCount = m.RdCount
	b.WrCount = m.WrCount
	b.EverInst = m.IsInst
	b.Dirty = false
	c.repl.OnAccess(sv, way)
	if fifo, ok := c.repl.(*FIFOPolicy); ok {
		b.Stamp = fifo.nextStamp()
	}
}

// shouldAllocateOnMiss implements the decision matrix of spec §4.4 step
// 3c, including the §9 open-question resolution that non-inclusive mode
// never allocates on a local demand miss, read or write.
func (c *Cache) shouldAllocateOnMiss(m memref.ExtMemref) bool {
	if !c.allocOnEvict {
		return true // inclusive mode: every demand miss allocates
	}
	if !m.IsEvict {
		return false // non-inclusive mode: local misses never allocate
	}
	return c.insert.ShouldAllocate(m.Addr, m.RdCount, m.WrCount, m.IsInst)
}

func (c *Cache) emitMissLog(m memref.ExtMemref) {
	if c.logger == nil {
		return
	}
	c.flushInstrBundle()
	if m.IsInst {
		c.logger.LogICacheMiss(c.coreID, m.Addr)
	} else {
		c.logger.LogDCacheMiss(c.coreID, m.Addr, m.Type == memref.Write)
	}
}

// evict removes whatever block currently occupies (setIdx, way),
// propagating it to the parent (or logging it) and updating this
// cache's own insertion-policy predictor state and stats, per spec
// §4.4's "Evict routine".
func (c *Cache) evict(setIdx uint64, way int) {
	b := c.blockAt(setIdx, way)
	if b.Empty() {
		return
	}

	addr := b.Tag << c.lineBits
	evictMsg := memref.ExtMemref{
		Type:    memref.Evict,
		Addr:    addr,
		Size:    1 << c.lineBits,
		Core:    c.coreID,
		IsInst:  b.EverInst,
		IsEvict: true,
		RdCount: b.RdCount,
		WrCount: b.WrCount,
	}

	if c.parent != nil {
		c.parent.Request(evictMsg)
	}
	c.insert.OnEvict(addr, b.RdCount, b.WrCount)

	if c.logger != nil {
		c.flushInstrBundle()
		if c.isICache || b.EverInst {
			c.logger.LogICacheEvict(c.coreID, addr, b.RdCount, b.WrCount)
		} else {
			c.logger.LogDCacheEvict(c.coreID, addr, b.RdCount, b.WrCount)
		}
	}

	c.stats.Evict(!b.Dirty)
	b.Reset()
}

// WearoutSummary returns the maximum and total per-block wearout counter
// across all resident and historical blocks in this cache, per spec
// §4.6 ("max_wearout, total_wearout (⇒ mean)").
func (c *Cache) WearoutSummary() (max, total uint64) {
	for i := range c.blocks {
		w := c.blocks[i].Wearout
		total += w
		if w > max {
			max = w
		}
	}
	return max, total
}

type cfgError struct{ msg string }

func (e *cfgError) Error() string { return e.msg }

func cfgErrorf(format string, args ...interface{}) error {
	return &cfgError{msg: fmt.Sprintf(format, args...)}
}
