package tracereader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/VictoriaMetrics/fastcache"
)

// Reader parses trace records from an underlying io.Reader, one per
// line, per spec §6's format table. It holds no knowledge of bz2 or any
// other transport-level decoding; that lives in Open.
type Reader struct {
	sc       *bufio.Scanner
	lineNo   int
	memoize  *fastcache.Cache
}

// NewReader wraps r for sequential record parsing.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{sc: sc}
}

// WithMemoize enables a fastcache-backed memoization layer sized
// maxBytes: repeated identical raw lines (common in tight loops) skip
// re-splitting and re-parsing. Purely a performance optimization; it
// never changes the records produced.
func (r *Reader) WithMemoize(maxBytes int) *Reader {
	r.memoize = fastcache.New(maxBytes)
	return r
}

// Next returns the next parsed Record, or io.EOF once the underlying
// reader is exhausted. A malformed line is a fatal format error per
// spec §7, returned with the offending line number and text.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.lineNo++
		line := r.sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if r.memoize != nil {
			if cached, ok := r.memoize.HasGet(nil, line); ok {
				return decodeRecord(cached)
			}
		}
		rec, err := parseLine(line)
		if err != nil {
			return Record{}, fmt.Errorf("trace line %d: %w", r.lineNo, err)
		}
		if r.memoize != nil {
			r.memoize.Set(append([]byte(nil), line...), encodeRecord(rec))
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("trace line %d: %w", r.lineNo, err)
	}
	return Record{}, io.EOF
}

// parseLine implements the format table of spec §6: the first
// whitespace-separated field must be exactly one of the two-letter
// prefixes and selects the record type, and the remaining fields are
// record-specific.
func parseLine(line []byte) (Record, error) {
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("empty trace line")
	}
	prefix := fields[0]
	args := fields[1:]

	switch prefix {
	case "IB":
		if len(args) != 2 {
			return Record{}, fmt.Errorf("IB: want 2 fields, got %d: %q", len(args), line)
		}
		core, err := parseInt(args[0])
		if err != nil {
			return Record{}, fmt.Errorf("IB core: %w", err)
		}
		count, err := parseInt(args[1])
		if err != nil {
			return Record{}, fmt.Errorf("IB count: %w", err)
		}
		return Record{Type: InstrBundle, Core: core, Count: count}, nil

	case "IM", "DR", "DW":
		if len(args) != 2 {
			return Record{}, fmt.Errorf("%s: want 2 fields, got %d: %q", prefix, len(args), line)
		}
		core, err := parseInt(args[0])
		if err != nil {
			return Record{}, fmt.Errorf("%s core: %w", prefix, err)
		}
		addr, err := parseAddr(args[1])
		if err != nil {
			return Record{}, fmt.Errorf("%s addr: %w", prefix, err)
		}
		t := map[string]RecordType{"IM": InstrMiss, "DR": DataRead, "DW": DataWrite}[prefix]
		return Record{Type: t, Core: core, Addr: addr}, nil

	case "IE", "DE":
		if len(args) != 4 {
			return Record{}, fmt.Errorf("%s: want 4 fields, got %d: %q", prefix, len(args), line)
		}
		core, err := parseInt(args[0])
		if err != nil {
			return Record{}, fmt.Errorf("%s core: %w", prefix, err)
		}
		addr, err := parseAddr(args[1])
		if err != nil {
			return Record{}, fmt.Errorf("%s addr: %w", prefix, err)
		}
		rd, err := parseUint32(args[2])
		if err != nil {
			return Record{}, fmt.Errorf("%s rd: %w", prefix, err)
		}
		wr, err := parseUint32(args[3])
		if err != nil {
			return Record{}, fmt.Errorf("%s wr: %w", prefix, err)
		}
		t := InstrEvict
		if prefix == "DE" {
			t = DataEvict
		}
		return Record{Type: t, Core: core, Addr: addr, RdCount: rd, WrCount: wr}, nil

	default:
		return Record{}, fmt.Errorf("unrecognized record prefix %q: %q", prefix, line)
	}
}

func parseInt(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	return int(v), err
}

func parseAddr(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}
