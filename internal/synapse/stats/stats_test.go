package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCounters(t *testing.T) {
	s := New()
	s.IncRead()
	s.IncRead()
	s.IncWrite()
	s.IncDelete()
	s.IncList()
	s.IncSearch()
	s.IncFileFailure()
	s.IncDBFailure()
	s.IncFallbackRead()
	s.AddMigrated(3)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap["reads"])
	assert.Equal(t, uint64(1), snap["writes"])
	assert.Equal(t, uint64(1), snap["deletes"])
	assert.Equal(t, uint64(1), snap["lists"])
	assert.Equal(t, uint64(1), snap["searches"])
	assert.Equal(t, uint64(1), snap["file_failures"])
	assert.Equal(t, uint64(1), snap["db_failures"])
	assert.Equal(t, uint64(1), snap["fallback_reads"])
	assert.Equal(t, uint64(3), snap["migrated_files"])
}

func TestConcurrentIncrements(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncWrite()
			s.IncRead()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, uint64(50), snap["writes"])
	assert.Equal(t, uint64(50), snap["reads"])
}
