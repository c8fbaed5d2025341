// Package post holds the domain model shared by the content client,
// the publisher and the poll loop.
package post

// Status is the lifecycle state of a post as tracked by the content API.
//
// AWAITS is the only state the poller ever fetches. PUBLISHED and ERROR
// are terminal here; operators may reset a post to AWAITS upstream to
// force a retry.
type Status string

const (
	StatusAwaits    Status = "AWAITS"
	StatusPublished Status = "PUBLISHED"
	StatusError     Status = "ERROR"
)

// Type discriminates the publication payload.
type Type string

const (
	TypeText      Type = "TEXT"
	TypePhoto     Type = "PHOTO"
	TypeVideo     Type = "VIDEO"
	TypeAnimation Type = "ANIMATION"
)

// Button is an optional single call-to-action attached to a publication.
type Button struct {
	Name string
	URL  string
}

// Publication is the content payload of a post.
//
// Text is the message body for TEXT and the caption for media types.
// FileID is a Telegram remote-file reference and is unused for TEXT.
type Publication struct {
	Type   Type
	Text   string
	FileID string
	Button *Button
}

// Post is the unit of work for one delivery.
type Post struct {
	ID          int64
	Publication Publication
	// TargetGroup is the chat the post is forwarded into after the
	// general-channel send. It is a reference, not owned by this system.
	TargetGroup int64
	// MessageID is the general-channel message id, set at most once
	// after a successful send (zero before delivery).
	MessageID int
	WithPin   bool
	Status    Status
}
