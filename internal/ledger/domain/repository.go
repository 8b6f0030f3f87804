package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Get(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode, periodKey string) (*UsageCounter, error)
	// Increment atomically adds quantity to the counter, creating the row if
	// absent. newID seeds the row on first insert.
	Increment(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode, periodKey string, quantity int64, newID snowflake.ID, now time.Time) error
	// IncrementIfUnderLimit adds quantity only if the resulting used stays at
	// or under limit, as a single conditional storage operation. Reports
	// whether the increment was applied.
	IncrementIfUnderLimit(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode, periodKey string, quantity, limit int64, newID snowflake.ID, now time.Time) (bool, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *UsageEvent) error
}
