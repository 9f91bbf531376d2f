// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package config defines the Rookery configuration and its koanf-based
// loader. Configuration is layered: built-in defaults, then an optional
// YAML file, then ROOKERY_* environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Rookery server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Feed     FeedConfig     `koanf:"feed"`
	Views    ViewsConfig    `koanf:"views"`
	Live     LiveConfig     `koanf:"live"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds BadgerDB settings.
type DatabaseConfig struct {
	// Path is the BadgerDB data directory. Empty with InMemory unset is
	// rejected at validation.
	Path string `koanf:"path"`

	// InMemory runs the store without disk persistence (tests, dev).
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// FeedConfig tunes the feed aggregator.
type FeedConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// CandidateLimit caps how many candidate items one aggregation pulls
	// from the store before filtering.
	CandidateLimit int `koanf:"candidate_limit"`

	// LikeWeight/CommentWeight/ShareWeight are the engagement score
	// multipliers.
	LikeWeight    float64 `koanf:"like_weight"`
	CommentWeight float64 `koanf:"comment_weight"`
	ShareWeight   float64 `koanf:"share_weight"`

	// RecencyWeight scales the elapsed-time term of the score.
	RecencyWeight float64 `koanf:"recency_weight"`

	// AuthorCacheSize/AuthorCacheTTL bound the author summary cache.
	AuthorCacheSize int           `koanf:"author_cache_size"`
	AuthorCacheTTL  time.Duration `koanf:"author_cache_ttl"`
}

// ViewsConfig tunes view deduplication.
type ViewsConfig struct {
	// CooldownWindow is the minimum interval before a repeat view from
	// the same viewer on the same content is credited again.
	CooldownWindow time.Duration `koanf:"cooldown_window"`
}

// LiveConfig tunes the live engagement hub.
type LiveConfig struct {
	// RoomBuffer is the command channel capacity per room.
	RoomBuffer int `koanf:"room_buffer"`

	// ClientBuffer is the outbound message buffer per connected client.
	ClientBuffer int `koanf:"client_buffer"`

	// PersistTimeout bounds each storage call made by a room actor.
	PersistTimeout time.Duration `koanf:"persist_timeout"`

	// ChatBacklog is how many recent chat messages a subscriber receives
	// on join.
	ChatBacklog int `koanf:"chat_backlog"`

	// ChatRateLimit is messages per second allowed per user per room;
	// ChatRateBurst is the burst allowance.
	ChatRateLimit float64 `koanf:"chat_rate_limit"`
	ChatRateBurst int     `koanf:"chat_rate_burst"`

	// MaxChatLength is the maximum accepted chat message length in runes.
	MaxChatLength int `koanf:"max_chat_length"`
}

// SecurityConfig holds the transport-level protections the core carries
// itself; authentication is owned by the surrounding application.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path is required unless database.in_memory is set")
	}
	if c.Feed.DefaultPageSize < 1 || c.Feed.DefaultPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("feed.default_page_size must be 1-%d, got %d",
			c.Feed.MaxPageSize, c.Feed.DefaultPageSize)
	}
	if c.Feed.CandidateLimit < c.Feed.MaxPageSize {
		return fmt.Errorf("feed.candidate_limit must be >= feed.max_page_size")
	}
	if c.Views.CooldownWindow <= 0 {
		return fmt.Errorf("views.cooldown_window must be positive, got %s", c.Views.CooldownWindow)
	}
	if c.Live.RoomBuffer < 1 {
		return fmt.Errorf("live.room_buffer must be at least 1, got %d", c.Live.RoomBuffer)
	}
	if c.Live.PersistTimeout <= 0 {
		return fmt.Errorf("live.persist_timeout must be positive, got %s", c.Live.PersistTimeout)
	}
	if c.Live.MaxChatLength < 1 {
		return fmt.Errorf("live.max_chat_length must be at least 1, got %d", c.Live.MaxChatLength)
	}
	return nil
}

// defaultConfig returns the built-in defaults, applied before file and
// environment overrides.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8480,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:       "/data/rookery",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Feed: FeedConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			CandidateLimit:  1000,
			LikeWeight:      2,
			CommentWeight:   3,
			ShareWeight:     1,
			RecencyWeight:   0.2,
			AuthorCacheSize: 10000,
			AuthorCacheTTL:  5 * time.Minute,
		},
		Views: ViewsConfig{
			CooldownWindow: time.Hour,
		},
		Live: LiveConfig{
			RoomBuffer:     256,
			ClientBuffer:   256,
			PersistTimeout: 5 * time.Second,
			ChatBacklog:    50,
			ChatRateLimit:  2,
			ChatRateBurst:  5,
			MaxChatLength:  500,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
