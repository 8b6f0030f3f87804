package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Package is a purchasable bundle of features. A stackable package's limits
// combine with other stackable packages; a non-stackable package acts as the
// base tier.
type Package struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Code string       `gorm:"type:text;not null;uniqueIndex:ux_packages_code"`
	Name string       `gorm:"type:text;not null"`

	Stackable bool              `gorm:"not null;default:false"`
	Active    bool              `gorm:"not null;default:true"`
	Public    bool              `gorm:"not null;default:true"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Package) TableName() string { return "packages" }

// PackageFeature assigns a per-feature limit to a package. A nil LimitValue
// means the package grants the feature without a numeric cap.
type PackageFeature struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PackageID  snowflake.ID `gorm:"not null;uniqueIndex:ux_package_features_pair,priority:1"`
	FeatureID  snowflake.ID `gorm:"not null;uniqueIndex:ux_package_features_pair,priority:2"`
	LimitValue *int64       `gorm:"column:limit_value"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PackageFeature) TableName() string { return "package_features" }

// FeatureGrant is a package's contribution to one feature, as seen by the
// resolver: which package grants it, whether that package stacks, and the
// limit it carries.
type FeatureGrant struct {
	PackageCode string
	Stackable   bool
	LimitValue  *int64
}
