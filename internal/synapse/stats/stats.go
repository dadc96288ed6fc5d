// Package stats tracks operation counters for the memory layer. The
// tracker is constructed once at startup and passed down explicitly; there
// is no package-level instance.
package stats

import "sync"

// Stats is a mutex-guarded set of operation counters.
type Stats struct {
	mu sync.Mutex

	reads         uint64
	writes        uint64
	deletes       uint64
	lists         uint64
	searches      uint64
	fileFailures  uint64
	dbFailures    uint64
	fallbackReads uint64
	migratedFiles uint64
}

// New creates an empty counter set.
func New() *Stats {
	return &Stats{}
}

func (s *Stats) inc(c *uint64) {
	s.mu.Lock()
	*c++
	s.mu.Unlock()
}

func (s *Stats) IncRead()         { s.inc(&s.reads) }
func (s *Stats) IncWrite()        { s.inc(&s.writes) }
func (s *Stats) IncDelete()       { s.inc(&s.deletes) }
func (s *Stats) IncList()         { s.inc(&s.lists) }
func (s *Stats) IncSearch()       { s.inc(&s.searches) }
func (s *Stats) IncFileFailure()  { s.inc(&s.fileFailures) }
func (s *Stats) IncDBFailure()    { s.inc(&s.dbFailures) }
func (s *Stats) IncFallbackRead() { s.inc(&s.fallbackReads) }

// AddMigrated records files handled by a migration run.
func (s *Stats) AddMigrated(n int) {
	s.mu.Lock()
	s.migratedFiles += uint64(n)
	s.mu.Unlock()
}

// Snapshot returns a copy of all counters.
func (s *Stats) Snapshot() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]uint64{
		"reads":          s.reads,
		"writes":         s.writes,
		"deletes":        s.deletes,
		"lists":          s.lists,
		"searches":       s.searches,
		"file_failures":  s.fileFailures,
		"db_failures":    s.dbFailures,
		"fallback_reads": s.fallbackReads,
		"migrated_files": s.migratedFiles,
	}
}
