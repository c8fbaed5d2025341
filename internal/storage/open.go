// Package storage persists delivery outcomes locally so operators can
// audit what was actually sent without querying the content API.
//
// The store is strictly bookkeeping: its failures never affect a poll
// cycle, and it holds no resume state (the system stays at-least-once).
package storage

import (
	"context"
	"errors"
	"strings"

	logx "pubbot/pkg/logx"
)

// Store is the minimal persistence API used by the poll loop.
type Store interface {
	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
