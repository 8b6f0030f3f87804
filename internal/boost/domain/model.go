package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type BoostType string

const (
	BoostTypeEnable    BoostType = "enable"
	BoostTypeAddLimit  BoostType = "add_limit"
	BoostTypeUnlimited BoostType = "unlimited"
)

type DurationType string

const (
	DurationTypePermanent  DurationType = "permanent"
	DurationTypeDuration   DurationType = "duration"
	DurationTypeCycleBound DurationType = "cycle_bound"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Boost is a temporary or permanent override on top of packages. Expiry is
// evaluated live at resolution time; the sweep job that flips expired rows to
// cancelled is advisory housekeeping only.
type Boost struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index:ix_boosts_workspace_feature,priority:1"`
	FeatureCode string       `gorm:"type:text;not null;index:ix_boosts_workspace_feature,priority:2"`

	Type         BoostType         `gorm:"column:boost_type;type:text;not null"`
	LimitValue   *int64            `gorm:"column:limit_value"`
	DurationType DurationType      `gorm:"column:duration_type;type:text;not null"`
	ExpiresAt    *time.Time        `gorm:""`
	Status       Status            `gorm:"type:text;not null;default:'active';index:ix_boosts_workspace_feature,priority:3"`
	Source       string            `gorm:"type:text;not null;default:''"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb"`
	CancelledAt  *time.Time        `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Boost) TableName() string { return "boosts" }

// Live reports whether the boost applies at the given instant, regardless of
// whether any sweep has run.
func (b *Boost) Live(at time.Time) bool {
	if b.Status != StatusActive {
		return false
	}
	if b.DurationType == DurationTypePermanent {
		return true
	}
	return b.ExpiresAt != nil && b.ExpiresAt.After(at)
}
