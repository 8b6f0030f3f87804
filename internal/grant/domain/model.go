package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// WorkspacePackage is a grant of a package to a workspace. Rows are never
// deleted; revocation transitions status so provenance survives for audit.
type WorkspacePackage struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index:ix_workspace_packages_workspace,priority:1"`
	PackageCode string       `gorm:"type:text;not null"`
	Status      Status       `gorm:"type:text;not null;default:'active';index:ix_workspace_packages_workspace,priority:2"`
	Source      string       `gorm:"type:text;not null;default:''"`
	GrantedAt   time.Time    `gorm:"not null"`
	RevokedAt   *time.Time   `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (WorkspacePackage) TableName() string { return "workspace_packages" }
