package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

// URLButton is a single inline call-to-action row.
type URLButton struct {
	Label string
	URL   string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// Button, when non-nil, attaches exactly one inline URL button.
	Button *URLButton
}

// Sender is the messaging-platform port used by the publisher and the
// telegram log sink. Implementations must honor ctx cancellation before
// issuing the network call.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, fileID, caption string, opt *SendOptions) (MessageRef, error)
	SendVideo(ctx context.Context, to ChatTarget, fileID, caption string, opt *SendOptions) (MessageRef, error)
	SendAnimation(ctx context.Context, to ChatTarget, fileID, caption string, opt *SendOptions) (MessageRef, error)

	// Forward copies a message by reference into another chat and
	// returns the ref of the forwarded copy.
	Forward(ctx context.Context, to ChatTarget, ref MessageRef) (MessageRef, error)
	// Pin pins a message in its chat with delivery notifications
	// suppressed.
	Pin(ctx context.Context, ref MessageRef) error
}
