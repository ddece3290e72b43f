// Package ingest drives event collection: it pulls message batches from a
// source, normalizes them into event records and commits them page by page
// with a resumable cursor.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/fedora-infra/orphanstats/core"
	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/internal/store"
	"github.com/fedora-infra/orphanstats/schema"
)

// Recorder normalizes messages from a Source into the event store.
// Ingestion is strictly sequential: one batch at a time, one transaction
// per batch. A malformed payload aborts the run with the payload attached
// to the error; duplicate message ids are silent no-ops.
type Recorder struct {
	Store    *store.Store
	Cfg      *contract.Config
	Progress *Progress
}

// RecordActions ingests one pagure.project action topic (orphan or adopt)
// into its event table for the given window.
func (r *Recorder) RecordActions(ctx context.Context, src contract.Source, action string, start, end time.Time) error {
	if action != schema.ActionOrphan && action != schema.ActionAdopt {
		return fmt.Errorf("unknown project action %q", action)
	}
	return r.record(ctx, src, r.Cfg.TopicAction(action), contract.TableForAction(action), false, start, end)
}

// RecordCommits ingests the git.receive topic for the given window. Each
// commit lands in the commits table and, when it carries a retirement, in
// the retired table as well, inside the same transaction.
func (r *Recorder) RecordCommits(ctx context.Context, src contract.Source, start, end time.Time) error {
	return r.record(ctx, src, r.Cfg.TopicCommit(), schema.TableCommits, true, start, end)
}

func (r *Recorder) record(ctx context.Context, src contract.Source, topic, table string, classifyRetired bool, start, end time.Time) error {
	start, err := r.resumePoint(ctx, topic, start)
	if err != nil {
		return err
	}

	return src.Fetch(ctx, topic, start, end, func(batch contract.Batch) error {
		r.Progress.Page(table, batch.Page, batch.Pages)

		events := make([]schema.Event, 0, len(batch.Messages))
		var retired []schema.Event
		var last time.Time
		for i := range batch.Messages {
			msg := &batch.Messages[i]
			ev, err := msg.Event(time.Time{})
			if err != nil {
				return err
			}
			events = append(events, ev)
			if ev.Timestamp.After(last) {
				last = ev.Timestamp
			}
			if classifyRetired && core.IsRetirement(msg, r.Cfg.MainBranches) {
				retired = append(retired, ev)
			}
		}

		batches := []store.TableEvents{{Table: table, Events: events}}
		if len(retired) > 0 {
			batches = append(batches, store.TableEvents{Table: schema.TableRetired, Events: retired})
		}

		var cursor *store.Cursor
		if !last.IsZero() {
			cursor = &store.Cursor{Topic: topic, LastTime: last}
		}
		_, err := r.Store.SavePage(ctx, batches, cursor)
		return err
	})
}

// resumePoint moves the window start forward to the stored cursor when
// resuming. The cursor page overlaps what was already committed; msgid
// dedup absorbs the re-fetch.
func (r *Recorder) resumePoint(ctx context.Context, topic string, start time.Time) (time.Time, error) {
	if !r.Cfg.Resume {
		return start, nil
	}
	cursor, found, err := r.Store.CursorFor(ctx, topic)
	if err != nil {
		return time.Time{}, err
	}
	if found && cursor.After(start) {
		return cursor, nil
	}
	return start, nil
}
