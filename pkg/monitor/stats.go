package monitor

import (
	"sync/atomic"
)

// LookupStats counts bounded-search lookups against a learned index.
type LookupStats struct {
	Lookups uint64
	Hits    uint64
	// Probes is the total number of positions inspected by local search.
	Probes uint64
}

func NewLookupStats() *LookupStats {
	return &LookupStats{}
}

func (ls *LookupStats) RecordLookup(probes int) {
	atomic.AddUint64(&ls.Lookups, 1)
	atomic.AddUint64(&ls.Probes, uint64(probes))
}

func (ls *LookupStats) RecordHit() {
	atomic.AddUint64(&ls.Hits, 1)
}

func (ls *LookupStats) HitRate() float64 {
	lookups := atomic.LoadUint64(&ls.Lookups)
	if lookups == 0 {
		return 0.0
	}
	return float64(atomic.LoadUint64(&ls.Hits)) / float64(lookups)
}

// AvgProbes is the mean number of positions inspected per lookup.
func (ls *LookupStats) AvgProbes() float64 {
	lookups := atomic.LoadUint64(&ls.Lookups)
	if lookups == 0 {
		return 0.0
	}
	return float64(atomic.LoadUint64(&ls.Probes)) / float64(lookups)
}
