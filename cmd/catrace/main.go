// Command catrace drives the cache-hierarchy simulator over a trace
// file: it builds an L2/L3/L4 hierarchy from flags or a config file,
// replays either an L1-miss-stream (-L1_trace) or a derived
// L2-miss-stream (-L2_trace) through it, optionally writes its own
// derived trace (-L2_trace_out) and serves live Prometheus metrics
// (-metrics_addr), and prints final per-level statistics.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/acrucker/dynamorio/catconfig"
	"github.com/acrucker/dynamorio/catlog"
	"github.com/acrucker/dynamorio/catmetrics"
	"github.com/acrucker/dynamorio/hierarchy"
	"github.com/acrucker/dynamorio/tracedriver"
	"github.com/acrucker/dynamorio/tracelog"
	"github.com/acrucker/dynamorio/tracereader"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the testable entry point: parse flags, build the hierarchy,
// drive the trace, report results, return a process exit code (0
// success, non-zero configuration or I/O error, matching spec §6).
func run(args []string) int {
	cfg, _, exit, code := parseFlags(args)
	if exit {
		return code
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "catrace: invalid configuration: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.LogFile)
	catlog.SetDefault(logger)
	printBanner(cfg)

	registry := catmetrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := catmetrics.ListenAndServe(cfg.MetricsAddr, registry); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
	}

	summary, err := simulate(cfg, logger, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catrace: %v\n", err)
		return 1
	}

	printSummary(os.Stdout, summary)
	return 0
}

// simulate opens the configured trace, builds the matching hierarchy
// topology (full L1-trace or upper-only L2_trace replay per spec §6),
// optionally attaches a derived-trace writer to the mid-level cache,
// drives it to completion, and mirrors final counters into registry.
func simulate(cfg catconfig.Config, logger *catlog.Logger, registry *catmetrics.Registry) (tracedriver.Summary, error) {
	tracePath := cfg.L1Trace
	useL2 := cfg.L1Trace == ""
	if useL2 {
		tracePath = cfg.L2Trace
	}

	rc, err := tracereader.Open(tracePath)
	if err != nil {
		return tracedriver.Summary{}, fmt.Errorf("opening trace: %w", err)
	}
	defer rc.Close()

	var h *hierarchy.Hierarchy
	if useL2 {
		h, err = buildUpperOnly(cfg)
	} else {
		h, err = catconfig.BuildHierarchy(cfg)
	}
	if err != nil {
		return tracedriver.Summary{}, fmt.Errorf("building hierarchy: %w", err)
	}

	if cfg.L2TraceOut != "" {
		derived, err := tracelog.Open(cfg.L2TraceOut)
		if err != nil {
			return tracedriver.Summary{}, fmt.Errorf("opening -L2_trace_out: %w", err)
		}
		defer derived.Close()
		h.Mid().SetMissLogger(derived)
		logger.Info("writing derived trace", "path", cfg.L2TraceOut)
	}

	reader := tracereader.NewReader(rc)
	ctx := context.Background()
	recs, wait := tracereader.Stream(ctx, reader, 4096)

	dispatch := h.Dispatch
	if useL2 {
		dispatch = h.DispatchToMid
	}

	summary, runErr := tracedriver.RunWithDispatch(ctx, h, recs, cfg, dispatch)
	if waitErr := wait(); waitErr != nil && runErr == nil {
		runErr = waitErr
	}
	mirrorMetrics(registry, h, cfg)
	return summary, runErr
}

// mirrorMetrics snapshots every level's final Stats into registry,
// using each level's own configured capacity for the wearout mean.
func mirrorMetrics(registry *catmetrics.Registry, h *hierarchy.Hierarchy, cfg catconfig.Config) {
	l2Blocks := cfg.L2.Size / cfg.LineSize
	l3Blocks := cfg.L3.Size / cfg.LineSize
	l4Blocks := cfg.L4.Size / cfg.LineSize
	for core := 0; core < h.NumCores(); core++ {
		catmetrics.MirrorCache(registry, "L2", core, h.Leaf(core), l2Blocks)
	}
	midMax, midTotal := h.Mid().WearoutSummary()
	catmetrics.Mirror(registry, "L3", "shared", h.Mid().Stats(), midMax, midTotal, l3Blocks)
	rootMax, rootTotal := h.Root().WearoutSummary()
	catmetrics.Mirror(registry, "L4", "shared", h.Root().Stats(), rootMax, rootTotal, l4Blocks)
}

// buildUpperOnly mirrors catconfig.BuildHierarchy but skips the leaf
// caches entirely, for spec §6's "L2_trace" replay mode where the
// input already represents requests a mid-level cache would have seen.
func buildUpperOnly(cfg catconfig.Config) (*hierarchy.Hierarchy, error) {
	rootOpts, err := cfg.L4.ToOptions(cfg.LineSize)
	if err != nil {
		return nil, fmt.Errorf("L4: %w", err)
	}
	midOpts, err := cfg.L3.ToOptions(cfg.LineSize)
	if err != nil {
		return nil, fmt.Errorf("L3: %w", err)
	}
	return hierarchy.NewUpperOnly(midOpts, rootOpts)
}

func newLogger(path string) *catlog.Logger {
	if path == "" {
		return catlog.New(slog.LevelInfo)
	}
	return catlog.NewRotating(path, 100, 5, 28, slog.LevelInfo)
}

// printBanner writes a short, colorized (when stderr is a terminal)
// startup summary of the resolved configuration, in the teacher's
// log.Printf-per-field style.
func printBanner(cfg catconfig.Config) {
	out := io.Writer(os.Stderr)
	bold := func(s string) string { return s }
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = colorable.NewColorableStderr()
		bold = func(s string) string { return "\x1b[1m" + s + "\x1b[0m" }
	}
	fmt.Fprintf(out, "%s\n", bold("catrace starting"))
	fmt.Fprintf(out, "  cores:       %d\n", cfg.Cores)
	fmt.Fprintf(out, "  line_size:   %d\n", cfg.LineSize)
	fmt.Fprintf(out, "  L2:          size=%d assoc=%d repl=%s insert=%s noninc=%v\n",
		cfg.L2.Size, cfg.L2.Assoc, cfg.L2.ReplacePolicy, cfg.L2.InsertPolicy, cfg.L2.NonInclusive)
	fmt.Fprintf(out, "  L3:          size=%d assoc=%d repl=%s insert=%s noninc=%v\n",
		cfg.L3.Size, cfg.L3.Assoc, cfg.L3.ReplacePolicy, cfg.L3.InsertPolicy, cfg.L3.NonInclusive)
	fmt.Fprintf(out, "  L4:          size=%d assoc=%d repl=%s insert=%s noninc=%v\n",
		cfg.L4.Size, cfg.L4.Assoc, cfg.L4.ReplacePolicy, cfg.L4.InsertPolicy, cfg.L4.NonInclusive)
	if cfg.L1Trace != "" {
		fmt.Fprintf(out, "  L1_trace:    %s\n", cfg.L1Trace)
	} else {
		fmt.Fprintf(out, "  L2_trace:    %s\n", cfg.L2Trace)
	}
	if cfg.L2TraceOut != "" {
		fmt.Fprintf(out, "  L2_trace_out: %s\n", cfg.L2TraceOut)
	}
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(out, "  metrics_addr: %s\n", cfg.MetricsAddr)
	}
}

// printSummary prints one line per counter (spec §1 leaves the exact
// report format out of scope), one block per level.
func printSummary(w io.Writer, s tracedriver.Summary) {
	fmt.Fprintf(w, "instructions: %d\n", s.Instructions)
	fmt.Fprintf(w, "records:      %d\n", s.RecordsProcessed)
	for core, leaf := range s.Leaves {
		printLevel(w, fmt.Sprintf("L2[core %d]", core), leaf)
	}
	printLevel(w, "L3", s.Mid)
	printLevel(w, "L4", s.Root)
}

func printLevel(w io.Writer, name string, l tracedriver.LevelSummary) {
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  hits:          %d\n", l.Hits)
	fmt.Fprintf(w, "  misses:        %d\n", l.Misses)
	fmt.Fprintf(w, "  writebacks:    %d\n", l.Writebacks)
	fmt.Fprintf(w, "  clean_evicts:  %d\n", l.CleanEvicts)
	fmt.Fprintf(w, "  child_hits:    %d\n", l.ChildHits)
	fmt.Fprintf(w, "  child_misses:  %d\n", l.ChildMisses)
	fmt.Fprintf(w, "  mpki:          %.4f\n", l.MPKI)
	fmt.Fprintf(w, "  max_wearout:   %d\n", l.MaxWearout)
	fmt.Fprintf(w, "  total_wearout: %d\n", l.TotalWearout)
}
