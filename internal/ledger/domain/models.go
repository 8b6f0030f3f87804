// Package domain contains persistence models for the usage ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UsageCounter is the per (workspace, feature, period) consumption counter.
// Rows are created lazily on first consumption; used only increases within a
// period, and a rollover starts a fresh row under a new period key.
type UsageCounter struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;uniqueIndex:ux_usage_counters_period,priority:1"`
	FeatureCode string       `gorm:"type:text;not null;uniqueIndex:ux_usage_counters_period,priority:2"`
	PeriodKey   string       `gorm:"type:text;not null;uniqueIndex:ux_usage_counters_period,priority:3"`
	Used        int64        `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (UsageCounter) TableName() string { return "usage_counters" }

// UsageEvent journals a single recorded consumption for audit and debugging.
// Counters remain the source of truth for used totals.
type UsageEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	WorkspaceID snowflake.ID      `gorm:"not null;index:ix_usage_events_workspace,priority:1"`
	FeatureCode string            `gorm:"type:text;not null;index:ix_usage_events_workspace,priority:2"`
	PeriodKey   string            `gorm:"type:text;not null"`
	Quantity    int64             `gorm:"not null"`
	Actor       string            `gorm:"type:text;not null;default:''"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	RecordedAt  time.Time         `gorm:"not null;index:ix_usage_events_workspace,priority:3"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (UsageEvent) TableName() string { return "usage_events" }
