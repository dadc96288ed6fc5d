// Package syncer orchestrates memory operations across the filesystem
// store and the active database engine. It owns the policy of where an
// operation must succeed, not the records themselves:
//
//   - writes and deletes go to both stores, unconditionally, with per-leg
//     failure reporting (no short-circuit);
//   - reads try the database first and fall back to the filesystem on
//     connection-class failure or a database miss;
//   - listing is always the deduplicated union of both stores.
//
// This is the only component allowed to catch connection-class errors.
// Operations are not serialized across the two stores: concurrent writers
// to the same filename can leave the filesystem with one writer's content
// and the database with the other's. That divergence is an accepted
// limitation of the dual-write design, repaired manually via migration.
package syncer

import (
	"sort"
	"strings"

	"github.com/bytedance/gg/gmap"

	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/stats"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/filestore"
	"github.com/synapsehq/synapse/pkg/logger"
)

// OpenFunc hands out a connected, schema-initialized engine. The explicit
// type is empty for the configured backend; migration passes a target type.
// Callers own closing the returned engine.
type OpenFunc func(explicitType string) (storage.Engine, error)

// Coordinator composes the filesystem store and the database engine under
// the dual-write and fallback policies.
type Coordinator struct {
	files *filestore.Store
	open  OpenFunc
	stats *stats.Stats
}

// New creates a coordinator. The stats tracker may not be nil.
func New(files *filestore.Store, open OpenFunc, st *stats.Stats) *Coordinator {
	return &Coordinator{files: files, open: open, stats: st}
}

// WriteReport tells the caller which leg of a dual-write failed. Partial
// failure is reported, not hidden behind a single boolean.
type WriteReport struct {
	Filename string
	FileErr  error
	DBErr    error
}

// OK reports whether both legs succeeded.
func (r WriteReport) OK() bool { return r.FileErr == nil && r.DBErr == nil }

// DeleteReport mirrors WriteReport for deletions and carries whether the
// record existed in either store.
type DeleteReport struct {
	Filename string
	Existed  bool
	FileErr  error
	DBErr    error
}

// OK reports whether both legs succeeded.
func (r DeleteReport) OK() bool { return r.FileErr == nil && r.DBErr == nil }

// Write stores content in both stores under one canonical key. The
// filesystem is written first as the durable fallback, but a failure there
// never prevents the database attempt, and vice versa.
func (c *Coordinator) Write(filename, content string, metadata storage.Metadata) WriteReport {
	c.stats.IncWrite()
	filename = filestore.CanonicalName(filename)
	report := WriteReport{Filename: filename}

	if err := c.files.WriteFile(filename, content); err != nil {
		c.stats.IncFileFailure()
		logger.Errorf("memory write: filesystem leg failed for %q: %v", filename, err)
		report.FileErr = err
	}

	eng, err := c.open("")
	if err != nil {
		c.stats.IncDBFailure()
		logger.Errorf("memory write: database leg failed for %q: %v", filename, err)
		report.DBErr = err
		return report
	}
	defer eng.Close()

	if err := eng.SaveMemory(filename, content, metadata); err != nil {
		c.stats.IncDBFailure()
		logger.Errorf("memory write: database leg failed for %q: %v", filename, err)
		report.DBErr = err
	}
	return report
}

// Read returns the content for filename. The database is consulted first;
// a connection-class failure or a miss falls through to the filesystem
// (the two stores are not guaranteed to be in lockstep). Row-level database
// failures propagate instead of masquerading as "not found".
func (c *Coordinator) Read(filename string) (string, bool, error) {
	c.stats.IncRead()
	filename = filestore.CanonicalName(filename)

	eng, err := c.open("")
	if err != nil {
		if !errno.IsConnection(err) {
			return "", false, err
		}
		logger.Warnf("memory read: database unreachable, falling back to filesystem: %v", err)
	} else {
		defer eng.Close()
		content, found, err := eng.LoadMemory(filename)
		if err != nil {
			if !errno.IsConnection(err) {
				return "", false, err
			}
			logger.Warnf("memory read: database unreachable, falling back to filesystem: %v", err)
		} else if found {
			return content, true, nil
		}
	}

	c.stats.IncFallbackRead()
	return c.files.ReadFile(filename)
}

// List returns the union of filenames known to the database and the
// filesystem, deduplicated and sorted. Either store may hold entries the
// other lacks, so this is a merge, not a fallback.
func (c *Coordinator) List() ([]string, error) {
	c.stats.IncList()
	set := make(map[string]struct{})

	eng, err := c.open("")
	if err != nil {
		if !errno.IsConnection(err) {
			return nil, err
		}
		logger.Warnf("memory list: database unreachable, listing filesystem only: %v", err)
	} else {
		defer eng.Close()
		names, err := eng.ListMemories()
		if err != nil {
			if !errno.IsConnection(err) {
				return nil, err
			}
			logger.Warnf("memory list: database unreachable, listing filesystem only: %v", err)
		} else {
			for _, name := range names {
				set[name] = struct{}{}
			}
		}
	}

	fileNames, err := c.files.ListFiles()
	if err != nil {
		return nil, err
	}
	for _, name := range fileNames {
		set[name] = struct{}{}
	}

	names := gmap.Keys(set)
	sort.Strings(names)
	return names, nil
}

// Delete removes filename from both stores, attempting both legs
// unconditionally.
func (c *Coordinator) Delete(filename string) DeleteReport {
	c.stats.IncDelete()
	filename = filestore.CanonicalName(filename)
	report := DeleteReport{Filename: filename}

	existed, err := c.files.RemoveFile(filename)
	if err != nil {
		c.stats.IncFileFailure()
		logger.Errorf("memory delete: filesystem leg failed for %q: %v", filename, err)
		report.FileErr = err
	}
	report.Existed = existed

	eng, err := c.open("")
	if err != nil {
		c.stats.IncDBFailure()
		logger.Errorf("memory delete: database leg failed for %q: %v", filename, err)
		report.DBErr = err
		return report
	}
	defer eng.Close()

	dbExisted, err := eng.DeleteMemory(filename)
	if err != nil {
		c.stats.IncDBFailure()
		logger.Errorf("memory delete: database leg failed for %q: %v", filename, err)
		report.DBErr = err
		return report
	}
	report.Existed = report.Existed || dbExisted
	return report
}

// Search substring-matches memory content. Database results are preferred;
// when the database is unreachable the filesystem is scanned instead.
func (c *Coordinator) Search(query string) ([]storage.SearchHit, error) {
	c.stats.IncSearch()

	eng, err := c.open("")
	if err != nil {
		if !errno.IsConnection(err) {
			return nil, err
		}
		logger.Warnf("memory search: database unreachable, scanning filesystem: %v", err)
		return c.searchFiles(query)
	}
	defer eng.Close()

	hits, err := eng.SearchMemories(query)
	if err != nil {
		if !errno.IsConnection(err) {
			return nil, err
		}
		logger.Warnf("memory search: database unreachable, scanning filesystem: %v", err)
		return c.searchFiles(query)
	}
	return hits, nil
}

func (c *Coordinator) searchFiles(query string) ([]storage.SearchHit, error) {
	names, err := c.files.ListFiles()
	if err != nil {
		return nil, err
	}

	var hits []storage.SearchHit
	for _, name := range names {
		content, found, err := c.files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if found && strings.Contains(content, query) {
			hits = append(hits, storage.SearchHit{Filename: name, Content: content})
		}
	}
	return hits, nil
}

// Metadata returns the merged metadata for filename from the database.
// There is no filesystem equivalent, so all failures propagate.
func (c *Coordinator) Metadata(filename string) (storage.Metadata, error) {
	filename = filestore.CanonicalName(filename)
	eng, err := c.open("")
	if err != nil {
		return nil, err
	}
	defer eng.Close()
	return eng.GetMemoryMetadata(filename)
}

// History returns up to limit revision snapshots for filename, newest
// first, from the database.
func (c *Coordinator) History(filename string, limit int) ([]storage.HistoryEntry, error) {
	filename = filestore.CanonicalName(filename)
	eng, err := c.open("")
	if err != nil {
		return nil, err
	}
	defer eng.Close()
	return eng.GetMemoryHistory(filename, limit)
}

// MigrateFilesToDB copies every memory file into the target engine,
// recording per-file success. Re-running it bumps versions and grows
// history for files the database already holds; callers decide when that
// is acceptable.
func (c *Coordinator) MigrateFilesToDB(targetType string) (map[string]bool, error) {
	eng, err := c.open(targetType)
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	names, err := c.files.ListFiles()
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(names))
	migrated := 0
	for _, name := range names {
		content, found, err := c.files.ReadFile(name)
		if err != nil {
			logger.Errorf("migrate: reading %q failed: %v", name, err)
			results[name] = false
			continue
		}
		if !found {
			logger.Warnf("migrate: %q disappeared before it could be copied", name)
			results[name] = false
			continue
		}
		if err := eng.SaveMemory(name, content, nil); err != nil {
			logger.Errorf("migrate: saving %q failed: %v", name, err)
			results[name] = false
			continue
		}
		results[name] = true
		migrated++
	}

	c.stats.AddMigrated(migrated)
	logger.Infof("migrate: %d/%d memory files copied to database", migrated, len(names))
	return results, nil
}
