package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, boost *Boost) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Boost, error)
	// ListLiveForFeature returns active boosts for the workspace/feature whose
	// expiry, evaluated against now, has not passed.
	ListLiveForFeature(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode string, now time.Time) ([]Boost, error)
	ListLiveForWorkspace(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, now time.Time) ([]Boost, error)
	// Cancel transitions the boost to cancelled and reports whether a row changed.
	Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	// CancelExpired flips expired non-permanent boosts to cancelled. Used by
	// the advisory sweep job.
	CancelExpired(ctx context.Context, db *gorm.DB, now time.Time, limit int) (int64, error)
}
