// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package models defines the typed records shared across the Rookery core.
//
// Every persisted entity is an explicit struct with a compile-time field
// set; denormalized presentation data (author summaries on feed items) is
// expressed as dedicated projection structs rather than ad hoc maps.
//
// Entities that support soft deletion embed Lifecycle, so the "exclude
// soft-deleted" filter is written once and applied uniformly.
package models
