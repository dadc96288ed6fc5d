package syncer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/stats"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/filestore"
)

// fakeEngine is an in-memory storage.Engine with per-operation failure
// injection.
type fakeEngine struct {
	records map[string]string

	saveErr   error
	loadErr   error
	listErr   error
	deleteErr error
	searchErr error

	// saveHook runs after a successful save, before the next file of a
	// batch is read.
	saveHook func(filename string)

	saved   []string
	deleted []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{records: make(map[string]string)}
}

func (f *fakeEngine) Connect() error          { return nil }
func (f *fakeEngine) Close() error            { return nil }
func (f *fakeEngine) InitializeSchema() error { return nil }

func (f *fakeEngine) SaveMemory(filename, content string, _ storage.Metadata) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[filename] = content
	f.saved = append(f.saved, filename)
	if f.saveHook != nil {
		f.saveHook(filename)
	}
	return nil
}

func (f *fakeEngine) LoadMemory(filename string) (string, bool, error) {
	if f.loadErr != nil {
		return "", false, f.loadErr
	}
	content, ok := f.records[filename]
	return content, ok, nil
}

func (f *fakeEngine) ListMemories() ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var names []string
	for name := range f.records {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeEngine) DeleteMemory(filename string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	_, ok := f.records[filename]
	delete(f.records, filename)
	f.deleted = append(f.deleted, filename)
	return ok, nil
}

func (f *fakeEngine) GetMemoryMetadata(filename string) (storage.Metadata, error) {
	if _, ok := f.records[filename]; !ok {
		return nil, nil
	}
	return storage.Metadata{"version": 1}, nil
}

func (f *fakeEngine) SearchMemories(query string) ([]storage.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []storage.SearchHit
	for name, content := range f.records {
		if strings.Contains(content, query) {
			hits = append(hits, storage.SearchHit{Filename: name, Content: content})
		}
	}
	return hits, nil
}

func (f *fakeEngine) GetMemoryHistory(filename string, limit int) ([]storage.HistoryEntry, error) {
	if _, ok := f.records[filename]; !ok {
		return nil, nil
	}
	return []storage.HistoryEntry{{Version: 1, CreatedAt: time.Now()}}, nil
}

func newFixture(t *testing.T, eng *fakeEngine, openErr error) (*Coordinator, *filestore.Store, *stats.Stats) {
	t.Helper()
	files, err := filestore.New(t.TempDir(), "utf-8")
	require.NoError(t, err)

	st := stats.New()
	open := func(string) (storage.Engine, error) {
		if openErr != nil {
			return nil, openErr
		}
		return eng, nil
	}
	return New(files, open, st), files, st
}

func connErr() error {
	return errno.NewConnectionError("fake", errors.New("unreachable"))
}

func storageErr() error {
	return errno.NewStorageError("fake", "op", errors.New("constraint violated"))
}

func TestWriteHitsBothStores(t *testing.T) {
	eng := newFakeEngine()
	c, files, _ := newFixture(t, eng, nil)

	report := c.Write("note.md", "hello", nil)
	assert.True(t, report.OK())

	content, found, err := files.ReadFile("note.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", content)
	assert.Equal(t, "hello", eng.records["note.md"])
}

func TestWriteReportsDatabaseLegFailure(t *testing.T) {
	eng := newFakeEngine()
	c, files, st := newFixture(t, eng, connErr())

	report := c.Write("note.md", "hello", nil)
	assert.False(t, report.OK())
	assert.NoError(t, report.FileErr)
	assert.Error(t, report.DBErr)

	// The filesystem leg still happened.
	_, found, err := files.ReadFile("note.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(1), st.Snapshot()["db_failures"])
}

func TestWriteAttemptsDatabaseAfterFileFailure(t *testing.T) {
	eng := newFakeEngine()

	// A plain file occupying the root path makes every filesystem leg fail.
	rootPath := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(rootPath, []byte("x"), 0o644))
	blocked, err := filestore.New(rootPath, "utf-8")
	require.NoError(t, err)

	st := stats.New()
	c := New(blocked, func(string) (storage.Engine, error) { return eng, nil }, st)

	report := c.Write("note.md", "hello", nil)
	assert.Error(t, report.FileErr)
	assert.NoError(t, report.DBErr)
	assert.Equal(t, "hello", eng.records["note.md"])
}

func TestReadPrefersDatabase(t *testing.T) {
	eng := newFakeEngine()
	eng.records["note.md"] = "db content"
	c, files, _ := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("note.md", "file content"))

	content, found, err := c.Read("note.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "db content", content)
}

func TestReadFallsBackOnConnectionError(t *testing.T) {
	c, files, st := newFixture(t, nil, connErr())
	require.NoError(t, files.WriteFile("note.md", "file content"))

	content, found, err := c.Read("note.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "file content", content)
	assert.Equal(t, uint64(1), st.Snapshot()["fallback_reads"])
}

func TestReadFallsBackOnDatabaseMiss(t *testing.T) {
	eng := newFakeEngine()
	c, files, _ := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("note.md", "only on disk"))

	content, found, err := c.Read("note.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "only on disk", content)
}

func TestReadPropagatesRowLevelErrors(t *testing.T) {
	eng := newFakeEngine()
	eng.loadErr = storageErr()
	c, files, _ := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("note.md", "file content"))

	_, _, err := c.Read("note.md")
	require.Error(t, err)

	var se *errno.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestReadMissEverywhere(t *testing.T) {
	eng := newFakeEngine()
	c, _, _ := newFixture(t, eng, nil)

	content, found, err := c.Read("ghost.md")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, content)
}

func TestListIsUnionOfBothStores(t *testing.T) {
	eng := newFakeEngine()
	eng.records["db-only.md"] = "x"
	eng.records["both.md"] = "x"
	c, files, _ := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("both.md", "x"))
	require.NoError(t, files.WriteFile("file-only.md", "x"))

	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"both.md", "db-only.md", "file-only.md"}, names)
}

func TestListSurvivesDatabaseOutage(t *testing.T) {
	c, files, _ := newFixture(t, nil, connErr())
	require.NoError(t, files.WriteFile("note.md", "x"))

	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"note.md"}, names)
}

func TestListPropagatesRowLevelErrors(t *testing.T) {
	eng := newFakeEngine()
	eng.listErr = storageErr()
	c, _, _ := newFixture(t, eng, nil)

	_, err := c.List()
	require.Error(t, err)
}

func TestDeleteRemovesBothStores(t *testing.T) {
	eng := newFakeEngine()
	eng.records["note.md"] = "x"
	c, files, _ := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("note.md", "x"))

	report := c.Delete("note.md")
	assert.True(t, report.OK())
	assert.True(t, report.Existed)

	_, found, err := files.ReadFile("note.md")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NotContains(t, eng.records, "note.md")
}

func TestDeleteExistedFromEitherStore(t *testing.T) {
	eng := newFakeEngine()
	eng.records["db-only.md"] = "x"
	c, _, _ := newFixture(t, eng, nil)

	report := c.Delete("db-only.md")
	assert.True(t, report.OK())
	assert.True(t, report.Existed)

	report = c.Delete("ghost.md")
	assert.True(t, report.OK())
	assert.False(t, report.Existed)
}

func TestDeleteReportsDatabaseLegFailure(t *testing.T) {
	c, files, _ := newFixture(t, nil, connErr())
	require.NoError(t, files.WriteFile("note.md", "x"))

	report := c.Delete("note.md")
	assert.False(t, report.OK())
	assert.NoError(t, report.FileErr)
	assert.Error(t, report.DBErr)
	assert.True(t, report.Existed)
}

func TestSearchFallsBackToFileScan(t *testing.T) {
	c, files, _ := newFixture(t, nil, connErr())
	require.NoError(t, files.WriteFile("zoo.md", "lions and tigers"))
	require.NoError(t, files.WriteFile("sea.md", "fish only"))

	hits, err := c.Search("tigers")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "zoo.md", hits[0].Filename)
}

func TestSearchPropagatesRowLevelErrors(t *testing.T) {
	eng := newFakeEngine()
	eng.searchErr = storageErr()
	c, _, _ := newFixture(t, eng, nil)

	_, err := c.Search("anything")
	require.Error(t, err)
}

func TestMetadataRequiresDatabase(t *testing.T) {
	c, _, _ := newFixture(t, nil, connErr())

	_, err := c.Metadata("note.md")
	require.Error(t, err)
	assert.True(t, errno.IsConnection(err))
}

func TestMigrateFilesToDB(t *testing.T) {
	eng := newFakeEngine()
	c, files, st := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("one.md", "1"))
	require.NoError(t, files.WriteFile("two.md", "2"))

	results, err := c.MigrateFilesToDB("sqlite")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"one.md": true, "two.md": true}, results)
	assert.Equal(t, "1", eng.records["one.md"])
	assert.Equal(t, "2", eng.records["two.md"])
	assert.Equal(t, uint64(2), st.Snapshot()["migrated_files"])
}

func TestExtensionlessNameUsesOneKey(t *testing.T) {
	eng := newFakeEngine()
	c, _, _ := newFixture(t, eng, nil)

	report := c.Write("todo", "v1", nil)
	assert.True(t, report.OK())
	assert.Equal(t, "todo.md", report.Filename)
	assert.Contains(t, eng.records, "todo.md")

	// One logical record, one listed name.
	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"todo.md"}, names)

	// Either spelling reads the same record.
	content, found, err := c.Read("todo")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", content)

	// Deleting with the extension removes the record everywhere.
	del := c.Delete("todo.md")
	assert.True(t, del.OK())
	assert.True(t, del.Existed)

	_, found, err = c.Read("todo")
	require.NoError(t, err)
	assert.False(t, found)

	names, err = c.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMigrateSkipsVanishedFiles(t *testing.T) {
	eng := newFakeEngine()
	c, files, st := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("a.md", "1"))
	require.NoError(t, files.WriteFile("b.md", "2"))

	// The second file disappears between the directory listing and its
	// read.
	eng.saveHook = func(string) {
		_, err := files.RemoveFile("b.md")
		require.NoError(t, err)
	}

	results, err := c.MigrateFilesToDB("")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a.md": true, "b.md": false}, results)
	assert.Equal(t, uint64(1), st.Snapshot()["migrated_files"])
}

func TestMigratePartialFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.saveErr = storageErr()
	c, files, st := newFixture(t, eng, nil)
	require.NoError(t, files.WriteFile("one.md", "1"))

	results, err := c.MigrateFilesToDB("")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"one.md": false}, results)
	assert.Equal(t, uint64(0), st.Snapshot()["migrated_files"])
}
