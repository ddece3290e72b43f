// Package datanommer reads messages straight from a datanommer database's
// messages relation, for runs with direct (read-only) database access.
package datanommer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// Source streams rows from the messages relation.
type Source struct {
	db        *sql.DB
	batchSize int
}

var _ contract.Source = (*Source)(nil) // Compile-time check

// Open connects to the datanommer database.
func Open(ctx context.Context, dsn string, batchSize int) (*Source, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open datanommer connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to datanommer database: %w", err)
	}
	return &Source{db: db, batchSize: batchSize}, nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	return s.db.Close()
}

// Fetch streams every message for the topic with timestamp >= start (and
// < end when end is set), in timestamp order, delivering them to fn in
// chunks of the configured batch size so the caller can commit per chunk.
func (s *Source) Fetch(ctx context.Context, topic string, start, end time.Time, fn func(contract.Batch) error) error {
	query := "SELECT msg_id, topic, timestamp, msg, headers FROM messages WHERE topic = $1 AND timestamp >= $2"
	args := []any{topic, start.UTC()}
	if !end.IsZero() {
		query += " AND timestamp < $3"
		args = append(args, end.UTC())
	}
	query += " ORDER BY timestamp"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("datanommer query failed for %s: %w", topic, err)
	}
	defer func() { _ = rows.Close() }()

	page := 0
	batch := make([]schema.Message, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		page++
		err := fn(contract.Batch{Messages: batch, Page: page})
		batch = batch[:0]
		return err
	}

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return err
		}
		batch = append(batch, msg)
		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("datanommer row iteration failed: %w", err)
	}
	return flush()
}

// scanMessage turns a messages row into a Message. The body and headers
// columns are JSON; rows predating the sent-at header fall back to the
// relation's own timestamp column.
func scanMessage(rows *sql.Rows) (schema.Message, error) {
	var (
		msgID   string
		topic   string
		ts      time.Time
		body    []byte
		headers []byte
	)
	if err := rows.Scan(&msgID, &topic, &ts, &body, &headers); err != nil {
		return schema.Message{}, fmt.Errorf("failed to scan datanommer row: %w", err)
	}

	msg := schema.Message{ID: msgID, Topic: topic}
	if err := json.Unmarshal(body, &msg.Body); err != nil {
		return schema.Message{}, fmt.Errorf("message %s has an unreadable body: %w", msgID, err)
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return schema.Message{}, fmt.Errorf("message %s has unreadable headers: %w", msgID, err)
		}
	}
	if msg.Headers.SentAt == "" {
		msg.Headers.SentAt = ts.UTC().Format(time.RFC3339)
	}
	return msg, nil
}
