package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the optional local audit store.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and every delivery
// outcome lives only in the logs and the content API.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
	// Retention bounds how long delivery rows are kept. 0 means 30 days.
	Retention time.Duration
}

// DeliveryEntry records one delivery attempt for operator forensics.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	At        time.Time
	CycleID   string
	PostID    int64
	Outcome   string // "published" | "error"
	MessageID int
	GroupID   int64
	WithPin   bool
	Error     string
	TookMS    int64
}
