package contract

import (
	"context"
	"time"

	"github.com/fedora-infra/orphanstats/schema"
)

// Batch is one delivery of messages from a Source: a datagrepper page or a
// datanommer row chunk. Pages is 0 when the source cannot know the total
// up front.
type Batch struct {
	Messages []schema.Message
	Page     int
	Pages    int
}

// Source yields messages for a topic and time window in the order they were
// emitted, one batch at a time. Both ingestion adapters (the datagrepper
// search API and the datanommer relation) implement it, so the recorder is
// indifferent to where events come from. A zero end means open-ended.
type Source interface {
	Fetch(ctx context.Context, topic string, start, end time.Time, fn func(Batch) error) error
}
