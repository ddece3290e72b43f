package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fedora-infra/orphanstats/internal/store"
	"github.com/fedora-infra/orphanstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *store.Store, table, msgID, date, actor, pkg string) {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, date)
	require.NoError(t, err)
	_, err = s.SaveBatch(context.Background(), table, []schema.Event{schema.NewEvent(msgID, ts, actor, pkg)}, nil)
	require.NoError(t, err)
}

// fixtureStats builds a small multi-month history:
//
//	orphaned: erin orphans foo and bar in Jan, alice orphans baz in Mar
//	adopted:  frank adopts foo (orphaned in Jan) and qux (never orphaned) in Mar
//	retired:  foo retired in Feb
//	commits:  alice in Jan+Feb, bob in Jan only, dave in Mar/Apr/May
func fixtureStats(t *testing.T) *Stats {
	t.Helper()
	s, err := store.Open(schema.SQLiteBackend, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	seed(t, s, schema.TableOrphaned, "o-1", "2024-01-15T00:00:00Z", "erin", "rpms/foo")
	seed(t, s, schema.TableOrphaned, "o-2", "2024-01-20T00:00:00Z", "erin", "rpms/bar")
	seed(t, s, schema.TableOrphaned, "o-3", "2024-03-05T00:00:00Z", "alice", "rpms/baz")

	seed(t, s, schema.TableAdopted, "a-1", "2024-03-10T00:00:00Z", "frank", "rpms/foo")
	seed(t, s, schema.TableAdopted, "a-2", "2024-03-12T00:00:00Z", "frank", "rpms/qux")

	seed(t, s, schema.TableRetired, "r-1", "2024-02-01T00:00:00Z", "erin", "rpms/foo")

	seed(t, s, schema.TableCommits, "c-1", "2024-01-10T00:00:00Z", "alice", "rpms/foo")
	seed(t, s, schema.TableCommits, "c-2", "2024-01-11T00:00:00Z", "bob", "rpms/bar")
	seed(t, s, schema.TableCommits, "c-3", "2024-02-05T00:00:00Z", "alice", "rpms/foo")
	seed(t, s, schema.TableCommits, "c-4", "2024-03-02T00:00:00Z", "dave", "rpms/xyz")
	seed(t, s, schema.TableCommits, "c-5", "2024-04-02T00:00:00Z", "dave", "rpms/xyz")
	seed(t, s, schema.TableCommits, "c-6", "2024-05-02T00:00:00Z", "dave", "rpms/xyz")

	return NewStats(s, 0)
}

var (
	jan = schema.Month{Year: 2024, Month: 1}
	feb = schema.Month{Year: 2024, Month: 2}
	mar = schema.Month{Year: 2024, Month: 3}
	apr = schema.Month{Year: 2024, Month: 4}
)

func TestMonthlyCounts(t *testing.T) {
	ctx := context.Background()
	s := fixtureStats(t)

	orphaned, err := s.OrphanedCount(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 2, orphaned)

	orphaners, err := s.Orphaners(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 1, orphaners)

	adopted, err := s.AdoptedCount(ctx, mar)
	require.NoError(t, err)
	assert.Equal(t, 2, adopted)

	adopters, err := s.Adopters(ctx, mar)
	require.NoError(t, err)
	assert.Equal(t, 1, adopters)

	// Event counts are never below distinct-actor counts.
	assert.GreaterOrEqual(t, orphaned, orphaners)
	assert.GreaterOrEqual(t, adopted, adopters)

	packages, err := s.CommittedPackages(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 2, packages)

	committers, err := s.Committers(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 2, committers)
}

func TestRetiredCount(t *testing.T) {
	ctx := context.Background()
	s := fixtureStats(t)

	// foo was orphaned in Jan and retired later; bar never retired.
	retired, err := s.RetiredCount(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 1, retired)

	orphaned, err := s.OrphanedCount(ctx, jan)
	require.NoError(t, err)
	assert.LessOrEqual(t, retired, orphaned)

	// baz orphaned in Mar, never retired.
	retired, err = s.RetiredCount(ctx, mar)
	require.NoError(t, err)
	assert.Equal(t, 0, retired)
}

func TestAdoptionLatency(t *testing.T) {
	ctx := context.Background()
	s := fixtureStats(t)

	// foo: orphaned 2024-01-15, adopted 2024-03-10 -> 55 days. qux has no
	// prior orphan event and is excluded from the mean.
	latency, err := s.AdoptionLatency(ctx, mar)
	require.NoError(t, err)
	require.NotNil(t, latency)
	assert.InDelta(t, 55.0, *latency, 0.001)

	// No adoptions in Feb: absent, not zero.
	latency, err = s.AdoptionLatency(ctx, feb)
	require.NoError(t, err)
	assert.Nil(t, latency)
}

func TestAdoptionLatencyPicksLatestPriorOrphan(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(schema.SQLiteBackend, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// foo orphaned twice; the adoption matches the most recent orphan bucket.
	seed(t, st, schema.TableOrphaned, "o-1", "2023-06-01T00:00:00Z", "erin", "rpms/foo")
	seed(t, st, schema.TableOrphaned, "o-2", "2024-02-20T00:00:00Z", "erin", "rpms/foo")
	seed(t, st, schema.TableAdopted, "a-1", "2024-03-01T00:00:00Z", "frank", "rpms/foo")

	s := NewStats(st, 0)
	latency, err := s.AdoptionLatency(ctx, mar)
	require.NoError(t, err)
	require.NotNil(t, latency)
	assert.InDelta(t, 10.0, *latency, 0.001)
}

func TestActorsGone(t *testing.T) {
	ctx := context.Background()
	s := fixtureStats(t)

	// Jan has four commit months after it (Feb..May), enough lookahead.
	// bob committed in Jan and never again; alice and dave kept going.
	gone, err := s.ActorsGone(ctx, schema.TableCommits, jan)
	require.NoError(t, err)
	require.NotNil(t, gone)
	assert.Equal(t, 1, *gone)

	// erin orphaned in Jan and never orphaned again.
	gone, err = s.ActorsGone(ctx, schema.TableOrphaned, jan)
	require.NoError(t, err)
	require.NotNil(t, gone)
	assert.Equal(t, 1, *gone)

	// Feb has only three commit months after it: window too short.
	gone, err = s.ActorsGone(ctx, schema.TableCommits, feb)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Same for Apr, deep inside the guard window.
	gone, err = s.ActorsGone(ctx, schema.TableCommits, apr)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestActorsGoneRejectsUnknownTable(t *testing.T) {
	s := fixtureStats(t)
	_, err := s.ActorsGone(context.Background(), "messages", jan)
	assert.Error(t, err)
}

func TestBuildReport(t *testing.T) {
	ctx := context.Background()
	s := fixtureStats(t)

	var visited []string
	now := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	report, err := BuildReport(ctx, s, jan, now, func(m schema.Month) {
		visited = append(visited, m.Label())
	})
	require.NoError(t, err)
	require.Len(t, report, 5)
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05"}, visited)

	assert.Equal(t, "2024-01", report[0].Month.Label())
	assert.Equal(t, 2, report[0].Orphaned)
	assert.Equal(t, 1, report[0].Retired)
	require.NotNil(t, report[2].AdoptionDays)
	assert.InDelta(t, 55.0, *report[2].AdoptionDays, 0.001)

	// The trailing months have no survivorship data.
	assert.Nil(t, report[4].CommittersGone)
	assert.Nil(t, report[4].OrphanersGone)
}
