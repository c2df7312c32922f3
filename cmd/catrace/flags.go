package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/acrucker/dynamorio/catconfig"
)

// flagSet wraps flag.FlagSet to add support for uint64 flags, which the
// standard library omits.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	return &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}

func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

type uint64Value struct{ p *uint64 }

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

// parseFlags resolves -config (if present) into cfg before binding the
// rest of the flags, so a config file supplies defaults that the same
// invocation's explicit flags can still override. Returns the resolved
// config, the -config path (for the caller's own reporting), and
// whether the caller should exit immediately with the given code.
func parseFlags(args []string) (catconfig.Config, string, bool, int) {
	cfg := catconfig.DefaultConfig()

	configPath := scanConfigFlag(args)
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "catrace: reading -config %q: %v\n", configPath, err)
			return cfg, configPath, true, 1
		}
		loaded, err := catconfig.LoadConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "catrace: parsing -config %q: %v\n", configPath, err)
			return cfg, configPath, true, 1
		}
		cfg = *loaded
	}

	fs := newFlagSet(&cfg)
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return cfg, configPath, true, 2
	}
	if *showVersion {
		fmt.Println("catrace (dynamorio cache-hierarchy simulator)")
		return cfg, configPath, true, 0
	}

	return cfg, configPath, false, 0
}

// scanConfigFlag finds -config (or --config)'s value without fully
// parsing args, so it works regardless of where -config falls relative
// to other flags the real flagSet in newFlagSet will bind.
func scanConfigFlag(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func newFlagSet(cfg *catconfig.Config) *flagSet {
	fs := newCustomFlagSet("catrace")

	var discardConfigPath string
	fs.StringVar(&discardConfigPath, "config", "", "path to a catconfig key=value configuration file (resolved before other flags)")

	fs.IntVar(&cfg.Cores, "cores", cfg.Cores, "number of cores (leaf caches)")
	fs.IntVar(&cfg.LineSize, "line_size", cfg.LineSize, "cache line size in bytes (power of two)")

	bindLevel(fs, &cfg.L2, "L2")
	bindLevel(fs, &cfg.L3, "L3")
	bindLevel(fs, &cfg.L4, "L4")

	fs.IntVar(&cfg.WarmupMisses, "warmup_misses", cfg.WarmupMisses, "reset stats after this many L1 misses")
	fs.IntVar(&cfg.SimMisses, "sim_misses", cfg.SimMisses, "stop after this many L1 misses")
	fs.IntVar(&cfg.WarmupInsts, "warmup_insts", cfg.WarmupInsts, "reset stats after this many instructions")
	fs.IntVar(&cfg.SimInsts, "sim_insts", cfg.SimInsts, "stop after this many instructions")

	fs.StringVar(&cfg.L1Trace, "L1_trace", cfg.L1Trace, "path to an L1-miss-stream input trace")
	fs.StringVar(&cfg.L2Trace, "L2_trace", cfg.L2Trace, "path to a derived L2-miss-stream input trace (skips leaf caches)")
	fs.StringVar(&cfg.L2TraceOut, "L2_trace_out", cfg.L2TraceOut, "path to write a derived L2-miss-stream trace")

	fs.StringVar(&cfg.MetricsAddr, "metrics_addr", cfg.MetricsAddr, "address to serve Prometheus /metrics on (empty disables)")
	fs.StringVar(&cfg.LogFile, "log_file", cfg.LogFile, "path to a rotating log file (empty logs to stderr)")

	return fs
}

func bindLevel(fs *flagSet, lvl *catconfig.LevelConfig, prefix string) {
	fs.IntVar(&lvl.Size, prefix+"_size", lvl.Size, prefix+" capacity in bytes (power of two)")
	fs.IntVar(&lvl.Assoc, prefix+"_assoc", lvl.Assoc, prefix+" associativity (power of two)")
	fs.StringVar(&lvl.ReplacePolicy, prefix+"_replace_policy", lvl.ReplacePolicy, prefix+" replacement policy: LRU, LFU, or FIFO")
	fs.StringVar(&lvl.InsertPolicy, prefix+"_insert_policy", lvl.InsertPolicy, prefix+" insertion policy: all, none, inst_only, write_K, read_K, rand_P, bloom_S")
	fs.BoolVar(&lvl.NonInclusive, prefix+"_noninc", lvl.NonInclusive, prefix+" runs non-inclusive (allocate-on-evict)")
	fs.IntVar(&lvl.EvictWriteThreshold, prefix+"_evict_write", lvl.EvictWriteThreshold, prefix+" forced-eviction write threshold (0 disables)")
}
