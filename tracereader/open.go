package tracereader

import (
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"
)

// Open opens path for reading, transparently decompressing a
// ".bz2"-suffixed file via the standard library's read-only bzip2
// decoder. No pack library offers bzip2 support, so this is the one
// place stdlib is used for transport-level decoding rather than
// anything cache-sim specific (spec §1 calls this an external
// collaborator, not part of the simulator proper).
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %q: %w", path, err)
	}
	if !strings.HasSuffix(path, ".bz2") {
		return f, nil
	}
	return &bzip2ReadCloser{f: f, r: bzip2.NewReader(f)}, nil
}

// bzip2ReadCloser adapts bzip2.NewReader (an io.Reader with no Close) to
// io.ReadCloser by closing the underlying file.
type bzip2ReadCloser struct {
	f *os.File
	r io.Reader
}

func (b *bzip2ReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *bzip2ReadCloser) Close() error                { return b.f.Close() }
