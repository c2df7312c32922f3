// Package memref defines the extended memory-reference type that flows
// through the cache hierarchy, and the plain-to-extended promotion rule.
package memref

// Type identifies the kind of access an ExtMemref carries.
type Type uint8

const (
	// Read is a demand data or instruction read.
	Read Type = iota
	// Write is a demand data write.
	Write
	// Evict is an eviction propagated up from a lower level.
	Evict
)

// ExtMemref is the extended memref every Cache.Request call consumes.
// It generalizes the plain (type, addr, size, core, is_inst) memref by
// carrying explicit per-line read/write counts and an eviction flag, as
// described in spec §4.4.
type ExtMemref struct {
	Type    Type
	Addr    uint64
	Size    uint64
	Core    int
	IsInst  bool
	IsEvict bool
	RdCount uint32
	WrCount uint32
}

// Promote builds an ExtMemref from a plain memref (type, addr, size,
// core, is_inst), setting RdCount/WrCount from the access type and
// IsEvict to false. This is the promotion spec §4.4 describes: "the
// plain memref form is promoted by setting rdcount=1 or wrcount=1 from
// the type and is_evict=false."
func Promote(typ Type, addr, size uint64, core int, isInst bool) ExtMemref {
	m := ExtMemref{
		Type:   typ,
		Addr:   addr,
		Size:   size,
		Core:   core,
		IsInst: isInst,
	}
	if typ == Write {
		m.WrCount = 1
	} else {
		m.RdCount = 1
	}
	return m
}
