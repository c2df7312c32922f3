package cache

// MissLogger is the optional derived-trace sink attached to a cache
// (spec §4.7). When one is attached to a Cache, that Cache's parent is
// severed so the logged stream is exhaustive.
type MissLogger interface {
	LogInstrBundle(core int, count int)
	LogICacheMiss(core int, addr uint64)
	LogICacheEvict(core int, addr uint64, rdCount, wrCount uint32)
	LogDCacheMiss(core int, addr uint64, write bool)
	LogDCacheEvict(core int, addr uint64, rdCount, wrCount uint32)
}
