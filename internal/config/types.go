// Package config loads, validates and watches the chimed daemon config.
package config

import (
	"github.com/chimekit/chime/pkg/logx"
)

// Config is the chimed daemon configuration.
type Config struct {
	Logging LoggingConfig  `json:"logging"`
	History *HistoryConfig `json:"history,omitempty"`

	// Timezone selects the scheduler zone: empty for the default (UTC+8),
	// a signed minute offset like "+480" or "-330", or an IANA name like
	// "Asia/Tokyo".
	Timezone string `json:"timezone,omitempty"`

	Tasks []TaskConfig `json:"tasks"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Logx maps the logging section onto the logx service config.
func (l LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
	}
}

// HistoryConfig controls run-history persistence.
// If the whole section is omitted, history is disabled.
//
// Example:
//
//	"history": { "driver": "sqlite", "path": "./chimed.db" }
type HistoryConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path,omitempty"`
	Keep   int    `json:"keep,omitempty"`

	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// TaskConfig declares one scheduled task.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type TaskConfig struct {
	Name string `json:"name"`

	// Schedule is a descriptor like "interval(30, weekday 6)" or
	// "at(07:30, [weekday 6, weekday 7])"; see the chime package docs for
	// the grammar.
	Schedule string `json:"schedule"`

	// Command is the argv executed when the task fires.
	Command []string `json:"command"`

	// Timeout bounds one run; empty or "0s" disables it.
	Timeout string `json:"timeout,omitempty"`

	// Overlap is "allow" (default) or "skip": skip drops a fire while the
	// previous run is still in flight.
	Overlap string `json:"overlap,omitempty"`
}
