// Package history persists task run outcomes.
//
// This is runtime observability only; schedules never live here.
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chimekit/chime/pkg/logx"
)

var ErrDisabled = errors.New("history disabled")

// Config configures run history.
//
// Driver values:
//   - "file": dependency-free file backend (JSON Lines)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	Keep        int           // rows retained after pruning; 0 means default
	BusyTimeout time.Duration // sqlite only; 0 means default
}

const defaultKeep = 10000

// Entry records one task dispatch outcome.
// Keep it compact and schema-stable.
type Entry struct {
	At     time.Time `json:"at"`
	Task   string    `json:"task"`
	Kind   string    `json:"kind"`
	TookMS int64     `json:"took_ms"`
	Detail string    `json:"detail,omitempty"`
}

// Store is the minimal persistence API used by the daemon.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first. An empty task
	// matches all tasks.
	Recent(ctx context.Context, task string, limit int) ([]Entry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if history is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Keep <= 0 {
		cfg.Keep = defaultKeep
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown history driver: " + driver)
	}
}
