package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, pkg *Package) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Package, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Package, error)
	Update(ctx context.Context, db *gorm.DB, pkg *Package) error

	SetFeatureLimit(ctx context.Context, db *gorm.DB, assignment *PackageFeature) error
	// FeatureGrants returns, for each of the given active packages that grants
	// featureCode, the package's stackable flag and limit value.
	FeatureGrants(ctx context.Context, db *gorm.DB, packageCodes []string, featureCode string) ([]FeatureGrant, error)
	// FeatureCodes returns the distinct feature codes granted by the given
	// active packages.
	FeatureCodes(ctx context.Context, db *gorm.DB, packageCodes []string) ([]string, error)
}
