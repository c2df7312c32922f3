package catmetrics

import (
	"strconv"

	"github.com/acrucker/dynamorio/cache"
)

// Mirror sets every gauge series for one (level, core) pair from a
// point-in-time Stats snapshot, matching spec §4.6's counter set plus
// the wearout summary (SPEC_FULL §4's print_wearout carry-over). core
// is formatted as a label value ("0", "1", ... or "shared" for a level
// with no single owning core).
func Mirror(r *Registry, level, core string, s *cache.Stats, maxWearout, totalWearout uint64, numBlocks int) {
	labels := map[string]string{"level": level, "core": core}

	r.GaugeVec("cat_hits_total", "Demand hits at this cache level.", "level", "core").With(labels).Set(float64(s.Hits()))
	r.GaugeVec("cat_misses_total", "Demand misses at this cache level.", "level", "core").With(labels).Set(float64(s.Misses()))
	r.GaugeVec("cat_writebacks_total", "Dirty evictions (writebacks) at this cache level.", "level", "core").With(labels).Set(float64(s.Writebacks()))
	r.GaugeVec("cat_clean_evicts_total", "Clean evictions at this cache level.", "level", "core").With(labels).Set(float64(s.CleanEvicts()))
	r.GaugeVec("cat_child_hits_total", "Child-reported hits observed at this cache level.", "level", "core").With(labels).Set(float64(s.ChildHits()))
	r.GaugeVec("cat_child_misses_total", "Child-reported misses observed at this cache level.", "level", "core").With(labels).Set(float64(s.ChildMisses()))
	r.GaugeVec("cat_wearout_max", "Maximum per-block write count at this cache level.", "level", "core").With(labels).Set(float64(maxWearout))

	mean := 0.0
	if numBlocks > 0 {
		mean = float64(totalWearout) / float64(numBlocks)
	}
	r.GaugeVec("cat_wearout_mean", "Mean per-block write count at this cache level.", "level", "core").With(labels).Set(mean)
}

// MirrorCache is a convenience wrapper that pulls the Stats and wearout
// summary directly from a *cache.Cache.
func MirrorCache(r *Registry, level string, coreID int, c *cache.Cache, numBlocks int) {
	max, total := c.WearoutSummary()
	Mirror(r, level, strconv.Itoa(coreID), c.Stats(), max, total, numBlocks)
}
