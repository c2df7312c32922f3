package tracereader

import "encoding/binary"

// encodeRecord/decodeRecord give the fastcache memoization layer a fixed-
// width binary form of a Record to store and retrieve, since fastcache
// only speaks []byte.
const recordEncodedLen = 1 + 8 + 8 + 8 + 4 + 4

func encodeRecord(r Record) []byte {
	buf := make([]byte, recordEncodedLen)
	buf[0] = byte(r.Type)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(r.Core))
	binary.LittleEndian.PutUint64(buf[9:17], r.Addr)
	binary.LittleEndian.PutUint64(buf[17:25], uint64(r.Count))
	binary.LittleEndian.PutUint32(buf[25:29], r.RdCount)
	binary.LittleEndian.PutUint32(buf[29:33], r.WrCount)
	return buf
}

func decodeRecord(buf []byte) (Record, error) {
	if len(buf) != recordEncodedLen {
		return Record{}, errShortMemoEntry
	}
	return Record{
		Type:    RecordType(buf[0]),
		Core:    int(binary.LittleEndian.Uint64(buf[1:9])),
		Addr:    binary.LittleEndian.Uint64(buf[9:17]),
		Count:   int(binary.LittleEndian.Uint64(buf[17:25])),
		RdCount: binary.LittleEndian.Uint32(buf[25:29]),
		WrCount: binary.LittleEndian.Uint32(buf[29:33]),
	}, nil
}

var errShortMemoEntry = shortMemoEntryError{}

type shortMemoEntryError struct{}

func (shortMemoEntryError) Error() string { return "tracereader: corrupt memoization entry" }
