package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fedora-infra/orphanstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(schema.SQLiteBackend, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	s1, err := Open(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening an already-migrated store must not fail.
	s2, err := Open(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestSaveBatchDeduplicatesByMsgID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := schema.NewEvent("msg-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "alice", "rpms/foo")
	n, err := s.SaveBatch(ctx, schema.TableOrphaned, []schema.Event{first}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same msgid with different field values: silent no-op, first row wins.
	dup := schema.NewEvent("msg-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "mallory", "rpms/bar")
	n, err = s.SaveBatch(ctx, schema.TableOrphaned, []schema.Event{dup}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var count int
	var actor, pkg string
	row := s.DB().QueryRow("SELECT COUNT(*) FROM orphaned")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	row = s.DB().QueryRow("SELECT actor, package FROM orphaned WHERE msgid = 'msg-1'")
	require.NoError(t, row.Scan(&actor, &pkg))
	assert.Equal(t, "alice", actor)
	assert.Equal(t, "rpms/foo", pkg)
}

func TestSaveBatchRejectsBadTableName(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveBatch(context.Background(), "orphaned; DROP TABLE commits", nil, nil)
	assert.Error(t, err)
}

func TestCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	topic := "org.fedoraproject.prod.pagure.project.orphan"

	_, found, err := s.CursorFor(ctx, topic)
	require.NoError(t, err)
	assert.False(t, found)

	last := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	ev := schema.NewEvent("msg-1", last, "alice", "rpms/foo")
	_, err = s.SaveBatch(ctx, schema.TableOrphaned, []schema.Event{ev}, &Cursor{Topic: topic, LastTime: last})
	require.NoError(t, err)

	got, found, err := s.CursorFor(ctx, topic)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, last, got)

	// Cursor advances with later pages.
	later := last.AddDate(0, 0, 7)
	_, err = s.SaveBatch(ctx, schema.TableOrphaned, nil, &Cursor{Topic: topic, LastTime: later})
	require.NoError(t, err)

	got, found, err = s.CursorFor(ctx, topic)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, later, got)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.SaveBatch(ctx, schema.TableCommits, []schema.Event{
		schema.NewEvent("c-1", first, "alice", "rpms/foo"),
		schema.NewEvent("c-2", last, "bob", "rpms/bar"),
	}, nil)
	require.NoError(t, err)

	statuses, err := s.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, len(schema.EventTables))

	byTable := make(map[string]TableStatus)
	for _, st := range statuses {
		byTable[st.Table] = st
	}
	assert.Equal(t, 2, byTable[schema.TableCommits].Rows)
	assert.Equal(t, first, byTable[schema.TableCommits].First)
	assert.Equal(t, last, byTable[schema.TableCommits].Last)
	assert.Equal(t, 0, byTable[schema.TableRetired].Rows)
}

func TestRebind(t *testing.T) {
	query := "SELECT actor FROM orphaned WHERE year = ? AND month = ?"
	assert.Equal(t, query, Rebind(schema.SQLiteBackend, query))
	assert.Equal(t, query, Rebind(schema.MySQLBackend, query))
	assert.Equal(t,
		"SELECT actor FROM orphaned WHERE year = $1 AND month = $2",
		Rebind(schema.PostgreSQLBackend, query),
	)
}
