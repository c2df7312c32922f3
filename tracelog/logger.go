// Package tracelog implements the derived-trace writer attached to a
// mid-level cache (spec §4.7), emitting the same six record kinds
// tracereader parses.
package tracelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Logger implements cache.MissLogger, writing the IB/IM/IE/DR/DW/DE
// textual format line-delimited to an underlying writer. The zero value
// is not usable; construct with Open or New.
type Logger struct {
	w      *bufio.Writer
	closer io.Closer
	zstd   *zstd.Encoder
	closed bool
}

// Open creates (or truncates) path and returns a Logger writing to it.
// A ".zst" suffix wraps the stream in a zstd encoder, the pack's
// general-purpose compressor substitute for the original's bzip2
// output (klauspost/compress offers no bzip2 encoder, only zstd).
func Open(path string) (*Logger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening derived trace %q: %w", path, err)
	}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating zstd encoder for %q: %w", path, err)
		}
		return &Logger{w: bufio.NewWriter(enc), closer: f, zstd: enc}, nil
	}
	return &Logger{w: bufio.NewWriter(f), closer: f}, nil
}

// New wraps an already-open io.Writer, with no compression and no
// Close-owned underlying file (used by tests and in-process pipelines).
func New(w io.Writer) *Logger {
	return &Logger{w: bufio.NewWriter(w)}
}

func (l *Logger) LogInstrBundle(core, count int) {
	fmt.Fprintf(l.w, "IB %d %d\n", core, count)
}

func (l *Logger) LogICacheMiss(core int, addr uint64) {
	fmt.Fprintf(l.w, "IM %d %d\n", core, addr)
}

func (l *Logger) LogICacheEvict(core int, addr uint64, rdCount, wrCount uint32) {
	fmt.Fprintf(l.w, "IE %d %d %d %d\n", core, addr, rdCount, wrCount)
}

func (l *Logger) LogDCacheMiss(core int, addr uint64, write bool) {
	if write {
		fmt.Fprintf(l.w, "DW %d %d\n", core, addr)
	} else {
		fmt.Fprintf(l.w, "DR %d %d\n", core, addr)
	}
}

func (l *Logger) LogDCacheEvict(core int, addr uint64, rdCount, wrCount uint32) {
	fmt.Fprintf(l.w, "DE %d %d %d %d\n", core, addr, rdCount, wrCount)
}

// Closed reports whether Close has already run, so a caller (e.g.
// cmd/catrace's shutdown path) can flush-and-close exactly once.
func (l *Logger) Closed() bool { return l.closed }

// Close flushes any buffered output, closes the zstd encoder if present,
// and closes the underlying file. Safe to call more than once.
func (l *Logger) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.w.Flush(); err != nil {
		return err
	}
	if l.zstd != nil {
		if err := l.zstd.Close(); err != nil {
			return err
		}
	}
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
