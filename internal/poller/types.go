package poller

import (
	"context"
	"time"

	"pubbot/internal/content"
	"pubbot/internal/post"
	kit "pubbot/internal/transport"
)

// ContentClient is the content-API surface the loop needs.
type ContentClient interface {
	FetchDue(ctx context.Context, now time.Time) ([]content.Record, error)
	SetStatus(ctx context.Context, id int64, status post.Status) error
	SetMessageID(ctx context.Context, id int64, messageID int) error
}

// Deliverer publishes one post and returns the general-channel ref.
type Deliverer interface {
	Deliver(ctx context.Context, p post.Post) (kit.MessageRef, error)
}

type Config struct {
	Enabled bool
	// Timezone for the minute trigger; empty means local time.
	Timezone string
	// CycleTimeout bounds one full poll cycle, fetch included, so a
	// hung call can never stall the loop past the next wake-ups.
	// Defaults to 55s.
	CycleTimeout time.Duration
}

const (
	outcomePublished = "published"
	outcomeError     = "error"
)
