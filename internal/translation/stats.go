package translation

import "sync/atomic"

// Stats reports translation counters since the service started.
type Stats struct {
	Total      int64 `json:"total"`
	Translated int64 `json:"translated"`
	Cached     int64 `json:"cached"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
}

type statsCounters struct {
	total      atomic.Int64
	translated atomic.Int64
	cached     atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

func (c *statsCounters) snapshot() Stats {
	return Stats{
		Total:      c.total.Load(),
		Translated: c.translated.Load(),
		Cached:     c.cached.Load(),
		Skipped:    c.skipped.Load(),
		Failed:     c.failed.Load(),
	}
}
