package cache

// InvalidTag marks an empty slot. No valid tag can equal it since tags
// are derived from non-negative addresses shifted right by at least 2.
const InvalidTag = ^uint64(0)

// Block is the storage cell for one cache line's metadata. It carries no
// logic of its own; Cache and the policies mutate it directly.
type Block struct {
	Tag      uint64
	Dirty    bool
	RdCount  uint32
	WrCount  uint32
	EverInst bool
	Recency  uint64 // LRU stamp, monotonically increasing
	Counter  uint32 // LFU access counter
	Stamp    uint64 // FIFO insertion order
	Wearout  uint64 // cumulative write count over the run
}

// Empty reports whether this slot holds no valid line.
func (b *Block) Empty() bool { return b.Tag == InvalidTag }

// Reset clears a block back to its just-constructed state, as happens on
// eviction (spec §4.4's evict routine: "tag = INVALID, all counters
// zero, dirty = false").
func (b *Block) Reset() {
	b.Tag = InvalidTag
	b.Dirty = false
	b.RdCount = 0
	b.WrCount = 0
	b.EverInst = false
	b.Recency = 0
	b.Counter = 0
	b.Stamp = 0
	// Wearout is cumulative over the run and is intentionally not reset.
}

// newBlock returns a Block in its initial, empty state.
func newBlock() Block {
	return Block{Tag: InvalidTag}
}
