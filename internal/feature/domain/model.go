package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type FeatureKind string

const (
	FeatureKindBoolean FeatureKind = "boolean"
	FeatureKindLimited FeatureKind = "limited"
)

type ResetType string

const (
	ResetTypeNone       ResetType = "none"
	ResetTypeDaily      ResetType = "daily"
	ResetTypeMonthly    ResetType = "monthly"
	ResetTypeCycleBound ResetType = "cycle_bound"
)

// Feature is a gateable capability. Codes are immutable once usage
// has been recorded against them.
type Feature struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	Code     string       `gorm:"type:text;not null;uniqueIndex:ux_features_code"`
	Name     string       `gorm:"type:text;not null"`
	Category string       `gorm:"type:text;not null;default:''"`

	Kind      FeatureKind       `gorm:"column:feature_kind;type:text;not null"`
	ResetType ResetType         `gorm:"column:reset_type;type:text;not null;default:'none'"`
	Active    bool              `gorm:"not null;default:true"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Feature) TableName() string { return "features" }
