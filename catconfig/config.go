// Package catconfig holds the cache-hierarchy simulator's configuration
// surface (spec §6) and builds a hierarchy.Hierarchy from it.
package catconfig

import (
	"errors"
	"fmt"
)

// LevelConfig configures one cache level (L2 for the per-core leaves,
// L3 for the shared mid level, L4 for the shared root), per spec §6's
// "L{2,3,4}_*" option family.
type LevelConfig struct {
	Size                int    // bytes, power of two
	Assoc               int    // power of two
	ReplacePolicy       string // "LRU", "LFU", or "FIFO"
	InsertPolicy        string // "", "all", "none", "write_K", "rand_P", "bloom_S"
	NonInclusive        bool   // L{2,3,4}_noninc
	EvictWriteThreshold int    // L{2,3,4}_evict_write, 0 disables
}

// Config is the full recognized option set of spec §6.
type Config struct {
	Cores    int
	LineSize int

	L2, L3, L4 LevelConfig

	WarmupMisses int
	SimMisses    int
	WarmupInsts  int
	SimInsts     int

	L1Trace   string
	L2Trace   string
	L2TraceOut string

	MetricsAddr string
	LogFile     string
}

// DefaultConfig returns spec-recommended defaults: a single core, 64-byte
// lines, inclusive LRU L2/L3/L4, no warmup/sim boundary, no trace I/O.
func DefaultConfig() Config {
	defaultLevel := LevelConfig{
		Size:          1 << 20,
		Assoc:         8,
		ReplacePolicy: "LRU",
	}
	return Config{
		Cores:    1,
		LineSize: 64,
		L2:       defaultLevel,
		L3:       defaultLevel,
		L4:       defaultLevel,
	}
}

// Validate checks every field for the constraints spec §3/§6/§7 name:
// power-of-two sizes, known replacement-policy names, and a coherent
// warmup/sim boundary selection (misses xor instructions, not both
// families). Insertion-policy names are not checked here; ToOptions
// rejects an unknown one when BuildHierarchy runs.
func (c *Config) Validate() error {
	if c.Cores <= 0 {
		return fmt.Errorf("catconfig: cores must be positive, got %d", c.Cores)
	}
	if c.LineSize < 4 || !isPow2(c.LineSize) {
		return fmt.Errorf("catconfig: line_size %d must be a power of two >= 4", c.LineSize)
	}
	for name, lvl := range map[string]LevelConfig{"L2": c.L2, "L3": c.L3, "L4": c.L4} {
		if err := lvl.validate(name, c.LineSize); err != nil {
			return err
		}
	}
	if c.WarmupMisses != 0 && c.WarmupInsts != 0 {
		return errors.New("catconfig: set warmup_misses or warmup_insts, not both")
	}
	if c.SimMisses != 0 && c.SimInsts != 0 {
		return errors.New("catconfig: set sim_misses or sim_insts, not both")
	}
	if c.L1Trace == "" && c.L2Trace == "" {
		return errors.New("catconfig: one of L1_trace or L2_trace is required")
	}
	if c.L1Trace != "" && c.L2Trace != "" {
		return errors.New("catconfig: L1_trace and L2_trace are mutually exclusive")
	}
	return nil
}

func (l LevelConfig) validate(name string, lineSize int) error {
	if l.Size <= 0 || !isPow2(l.Size) {
		return fmt.Errorf("catconfig: %s_size %d must be a power of two", name, l.Size)
	}
	if l.Assoc <= 0 || !isPow2(l.Assoc) {
		return fmt.Errorf("catconfig: %s_assoc %d must be a power of two", name, l.Assoc)
	}
	if l.Size/lineSize%l.Assoc != 0 {
		return fmt.Errorf("catconfig: %s_size/line_size must be a multiple of %s_assoc", name, name)
	}
	switch l.ReplacePolicy {
	case "", "LRU", "LFU", "FIFO":
	default:
		return fmt.Errorf("catconfig: %s_replace_policy %q unrecognized (want LRU, LFU, or FIFO)", name, l.ReplacePolicy)
	}
	if l.EvictWriteThreshold < 0 {
		return fmt.Errorf("catconfig: %s_evict_write must be >= 0, got %d", name, l.EvictWriteThreshold)
	}
	return nil
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }
