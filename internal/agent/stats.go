package agent

import "sync/atomic"

// Stats holds the run counters. They are advisory: the audit log's row
// count is the authoritative number of matches.
type Stats struct {
	Scanned atomic.Int64
	Matched atomic.Int64
	Skipped atomic.Int64
	Errors  atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Scanned int64 `json:"scanned"`
	Matched int64 `json:"matched"`
	Skipped int64 `json:"skipped"`
	Errors  int64 `json:"errors"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Scanned: s.Scanned.Load(),
		Matched: s.Matched.Load(),
		Skipped: s.Skipped.Load(),
		Errors:  s.Errors.Load(),
	}
}
