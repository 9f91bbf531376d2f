// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"no db path", func(c *Config) { c.Database.Path = ""; c.Database.InMemory = false }},
		{"page size over max", func(c *Config) { c.Feed.DefaultPageSize = 500 }},
		{"candidate limit under max page", func(c *Config) { c.Feed.CandidateLimit = 10 }},
		{"zero cooldown", func(c *Config) { c.Views.CooldownWindow = 0 }},
		{"zero room buffer", func(c *Config) { c.Live.RoomBuffer = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROOKERY_SERVER_PORT", "9999")
	t.Setenv("ROOKERY_DATABASE_IN_MEMORY", "true")
	t.Setenv("ROOKERY_VIEWS_COOLDOWN_WINDOW", "30m")
	t.Setenv("ROOKERY_SECURITY_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if !cfg.Database.InMemory {
		t.Error("in_memory should be true")
	}
	if cfg.Views.CooldownWindow != 30*time.Minute {
		t.Errorf("cooldown = %s, want 30m", cfg.Views.CooldownWindow)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Security.CORSOrigins)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := map[string]string{
		"ROOKERY_SERVER_PORT":           "server.port",
		"ROOKERY_FEED_MAX_PAGE_SIZE":    "feed.max_page_size",
		"ROOKERY_VIEWS_COOLDOWN_WINDOW": "views.cooldown_window",
		"ROOKERY_LOGGING_LEVEL":         "logging.level",
	}
	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestDefaultScoreWeights(t *testing.T) {
	cfg := defaultConfig()
	weights := []float64{cfg.Feed.LikeWeight, cfg.Feed.CommentWeight, cfg.Feed.ShareWeight}
	for i, want := range []float64{2, 3, 1} {
		if weights[i] != want {
			t.Errorf("weight[%d] = %v, want %v", i, weights[i], want)
		}
	}
	if cfg.Views.CooldownWindow != time.Hour {
		t.Errorf("cooldown = %s, want 1h", cfg.Views.CooldownWindow)
	}
	if !strings.HasPrefix(cfg.Database.Path, "/") {
		t.Errorf("default db path %q should be absolute", cfg.Database.Path)
	}
}
