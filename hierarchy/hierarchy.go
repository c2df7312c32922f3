// Package hierarchy composes per-core leaf caches sharing a mid-level
// cache sharing a root cache (spec §4.5), and dispatches parsed trace
// records into the extended memrefs the cache pipeline expects.
package hierarchy

import (
	"fmt"

	"github.com/acrucker/dynamorio/cache"
	"github.com/acrucker/dynamorio/memref"
	"github.com/acrucker/dynamorio/tracereader"
)

// Hierarchy owns every Cache in a run: one leaf per core (serving both
// instruction and data records; there is no separate instruction leaf),
// a single shared mid-level cache, and a single shared root. It is the
// "owning index into a Hierarchy-owned arena" spec §9 recommends,
// realized here as ordinary Go ownership (the Hierarchy holds the only
// strong references; Cache.parent is a weak, non-owning pointer).
type Hierarchy struct {
	leaves []*cache.Cache
	mid    *cache.Cache
	root   *cache.Cache
}

// New builds a three-level hierarchy for numCores cores: leaves share
// mid, mid shares root. leafOpts is called once per core so each leaf
// can carry a distinct CoreID; midOpts/rootOpts are built once and
// shared. leafOpts/midOpts/rootOpts must not set Parent; New wires it.
func New(numCores int, leafOpts func(core int) cache.Options, midOpts, rootOpts cache.Options) (*Hierarchy, error) {
	if numCores <= 0 {
		return nil, fmt.Errorf("hierarchy: numCores must be positive, got %d", numCores)
	}

	root, err := cache.New(rootOpts)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: building root cache: %w", err)
	}

	midOpts.Parent = root
	mid, err := cache.New(midOpts)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: building mid cache: %w", err)
	}

	leaves := make([]*cache.Cache, numCores)
	for core := 0; core < numCores; core++ {
		opts := leafOpts(core)
		opts.Parent = mid
		opts.CoreID = core
		leaf, err := cache.New(opts)
		if err != nil {
			return nil, fmt.Errorf("hierarchy: building leaf cache for core %d: %w", core, err)
		}
		leaves[core] = leaf
	}

	return &Hierarchy{leaves: leaves, mid: mid, root: root}, nil
}

// NewUpperOnly builds just a mid-level cache and its root, with no leaf
// caches, for the spec §6 "L2_trace" replay mode.
func NewUpperOnly(midOpts, rootOpts cache.Options) (*Hierarchy, error) {
	root, err := cache.New(rootOpts)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: building root cache: %w", err)
	}
	midOpts.Parent = root
	mid, err := cache.New(midOpts)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: building mid cache: %w", err)
	}
	return &Hierarchy{mid: mid, root: root}, nil
}

// Mid returns the shared mid-level cache (the level a MissLogger
// typically attaches to).
func (h *Hierarchy) Mid() *cache.Cache { return h.mid }

// Root returns the shared last-level cache.
func (h *Hierarchy) Root() *cache.Cache { return h.root }

// Leaf returns the per-core leaf cache for core.
func (h *Hierarchy) Leaf(core int) *cache.Cache { return h.leaves[core] }

// NumCores returns the number of leaf caches (0 for an UpperOnly
// hierarchy).
func (h *Hierarchy) NumCores() int { return len(h.leaves) }

// Dispatch converts a tracereader.Record into the extended memref its
// record type implies and routes it to the per-core leaf cache: IB
// bundles accumulate (reg_inst); IM/DR/DW are demand accesses from the
// unsimulated L1 the trace represents; IE/DE are eviction events from
// that same L1, fed to the leaf as Evict-type memrefs so the leaf's own
// pipeline (cache.Cache.Request) decides how to account for and
// propagate them, exactly as it would any other evict-type input.
func (h *Hierarchy) Dispatch(rec tracereader.Record) error {
	if rec.Core < 0 || rec.Core >= len(h.leaves) {
		return fmt.Errorf("hierarchy: record core %d out of range [0,%d)", rec.Core, len(h.leaves))
	}
	leaf := h.leaves[rec.Core]

	switch rec.Type {
	case tracereader.InstrBundle:
		leaf.RegInst(rec.Count)
	case tracereader.InstrMiss:
		leaf.Request(memref.Promote(memref.Read, rec.Addr, 1, rec.Core, true))
	case tracereader.DataRead:
		leaf.Request(memref.Promote(memref.Read, rec.Addr, 1, rec.Core, false))
	case tracereader.DataWrite:
		leaf.Request(memref.Promote(memref.Write, rec.Addr, 1, rec.Core, false))
	case tracereader.InstrEvict:
		leaf.Request(memref.ExtMemref{
			Type: memref.Evict, Addr: rec.Addr, Size: 1, Core: rec.Core,
			IsInst: true, IsEvict: true, RdCount: rec.RdCount, WrCount: rec.WrCount,
		})
	case tracereader.DataEvict:
		leaf.Request(memref.ExtMemref{
			Type: memref.Evict, Addr: rec.Addr, Size: 1, Core: rec.Core,
			IsInst: false, IsEvict: true, RdCount: rec.RdCount, WrCount: rec.WrCount,
		})
	default:
		return fmt.Errorf("hierarchy: unhandled record type %v", rec.Type)
	}
	return nil
}

// DispatchToMid is used for the spec §6 "L2_trace" input mode: the
// trace was produced by a tracelog.Logger attached to a mid-level cache
// whose parent was severed (spec §4.7), so these records represent
// exactly the requests that cache would otherwise have sent to its own
// parent. Replaying them directly against mid (built with its real
// parent attached) reproduces the upper-level statistics without
// needing per-core leaf caches at all.
func (h *Hierarchy) DispatchToMid(rec tracereader.Record) error {
	switch rec.Type {
	case tracereader.InstrBundle:
		h.mid.RegInst(rec.Count)
	case tracereader.InstrMiss:
		h.mid.Request(memref.Promote(memref.Read, rec.Addr, 1, rec.Core, true))
	case tracereader.DataRead:
		h.mid.Request(memref.Promote(memref.Read, rec.Addr, 1, rec.Core, false))
	case tracereader.DataWrite:
		h.mid.Request(memref.Promote(memref.Write, rec.Addr, 1, rec.Core, false))
	case tracereader.InstrEvict:
		h.mid.Request(memref.ExtMemref{
			Type: memref.Evict, Addr: rec.Addr, Size: 1, Core: rec.Core,
			IsInst: true, IsEvict: true, RdCount: rec.RdCount, WrCount: rec.WrCount,
		})
	case tracereader.DataEvict:
		h.mid.Request(memref.ExtMemref{
			Type: memref.Evict, Addr: rec.Addr, Size: 1, Core: rec.Core,
			IsInst: false, IsEvict: true, RdCount: rec.RdCount, WrCount: rec.WrCount,
		})
	default:
		return fmt.Errorf("hierarchy: unhandled record type %v", rec.Type)
	}
	return nil
}
