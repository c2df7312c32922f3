package catconfig

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/acrucker/dynamorio/cache"
	"github.com/acrucker/dynamorio/hierarchy"
)

// BuildHierarchy constructs a hierarchy.Hierarchy from a validated
// Config: per-core leaf caches (line_size, L2's line-aligned chunking),
// a shared L3 (mid), and a shared L4 (root). If L2Trace is set, the
// caller is expected to use hierarchy.NewUpperOnly and
// Hierarchy.DispatchToMid instead (spec §6's "leaves are to be
// skipped" mode); BuildHierarchy always returns the full, three-level
// topology wired for an L1-trace run.
func BuildHierarchy(cfg Config) (*hierarchy.Hierarchy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rootOpts, err := cfg.L4.ToOptions(cfg.LineSize)
	if err != nil {
		return nil, fmt.Errorf("catconfig: L4: %w", err)
	}
	midOpts, err := cfg.L3.ToOptions(cfg.LineSize)
	if err != nil {
		return nil, fmt.Errorf("catconfig: L3: %w", err)
	}

	leafOpts, err := cfg.L2.ToOptions(cfg.LineSize)
	if err != nil {
		return nil, fmt.Errorf("catconfig: L2: %w", err)
	}

	return hierarchy.New(cfg.Cores, func(core int) cache.Options {
		o := leafOpts
		o.Seed = leafOpts.Seed + int64(core)
		return o
	}, midOpts, rootOpts)
}

// toOptions translates a LevelConfig into cache.Options, resolving the
// replacement policy name, the insertion-policy string (which may carry
// an embedded numeric parameter, e.g. "write_4" or "bloom_1024"), and
// the non-inclusive (allocate-on-evict) flag implied either directly
// (noninc) or by choosing any insert_policy other than "all"/"".
func (l LevelConfig) ToOptions(lineSize int) (cache.Options, error) {
	assoc := l.Assoc
	numBlocks := l.Size / lineSize

	repl, err := replacePolicy(l.ReplacePolicy)
	if err != nil {
		return cache.Options{}, err
	}

	lineBits := uint(bits.TrailingZeros(uint(lineSize)))
	insert, err := insertPolicy(l.InsertPolicy, lineBits)
	if err != nil {
		return cache.Options{}, err
	}

	allocOnEvict := l.NonInclusive || (l.InsertPolicy != "" && l.InsertPolicy != "all")

	return cache.Options{
		Assoc:             assoc,
		LineSize:          lineSize,
		NumBlocks:         numBlocks,
		Repl:              repl,
		Insert:            insert,
		AllocOnEvict:      allocOnEvict,
		EvictAfterNWrites: uint32(l.EvictWriteThreshold),
	}, nil
}

func replacePolicy(name string) (cache.ReplPolicy, error) {
	switch name {
	case "", "LRU":
		return cache.NewLRUPolicy(), nil
	case "LFU":
		return cache.NewLFUPolicy(), nil
	case "FIFO":
		return cache.NewFIFOPolicy(), nil
	default:
		return nil, fmt.Errorf("catconfig: unrecognized replace_policy %q", name)
	}
}

// insertPolicy parses spec §6's "all, none, write_K, rand_P, bloom_S"
// family. bloom_S uses fixed defaults for hash count (4) and
// probability gate (100) and the "every eviction" (not clean-only,
// not dirty-only) update axis. A config file's [l2]/[l3]/[l4] sections
// have no keys for these parameters; other settings need a
// cache.BloomPolicy built directly with cache.NewBloomPolicy.
func insertPolicy(spec string, lineBits uint) (cache.InsertPolicy, error) {
	switch {
	case spec == "" || spec == "all":
		return cache.AllPolicy{}, nil
	case spec == "none":
		return cache.NonePolicy{}, nil
	case spec == "inst_only":
		return cache.InstOnlyPolicy{}, nil
	case strings.HasPrefix(spec, "write_"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "write_"))
		if err != nil {
			return nil, fmt.Errorf("catconfig: invalid insert_policy %q: %w", spec, err)
		}
		return cache.WriteThresholdPolicy{T: uint32(n)}, nil
	case strings.HasPrefix(spec, "read_"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "read_"))
		if err != nil {
			return nil, fmt.Errorf("catconfig: invalid insert_policy %q: %w", spec, err)
		}
		return cache.ReadThresholdPolicy{T: uint32(n)}, nil
	case strings.HasPrefix(spec, "rand_"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "rand_"))
		if err != nil {
			return nil, fmt.Errorf("catconfig: invalid insert_policy %q: %w", spec, err)
		}
		return &cache.RandomPolicy{P: n}, nil
	case strings.HasPrefix(spec, "bloom_"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "bloom_"))
		if err != nil {
			return nil, fmt.Errorf("catconfig: invalid insert_policy %q: %w", spec, err)
		}
		return cache.NewBloomPolicy(uint(n), 4, 100, false, false, lineBits, nil), nil
	default:
		return nil, fmt.Errorf("catconfig: unrecognized insert_policy %q", spec)
	}
}
