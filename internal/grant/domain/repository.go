package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, grant *WorkspacePackage) error
	FindActive(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, packageCode string) (*WorkspacePackage, error)
	ListActive(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) ([]WorkspacePackage, error)
	// ActivePackageCodes returns codes of the workspace's active grants whose
	// package is still marked active in the catalog.
	ActivePackageCodes(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) ([]string, error)
	// Revoke transitions the active grant for packageCode to revoked and
	// reports whether a row changed.
	Revoke(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, packageCode string, now time.Time) (bool, error)
}
