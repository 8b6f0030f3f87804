package repository

import (
	"context"

	"github.com/smallbiznis/entitle/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, pkg *domain.Package) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO packages (
			id, code, name, stackable, active, public, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.ID,
		pkg.Code,
		pkg.Name,
		pkg.Stackable,
		pkg.Active,
		pkg.Public,
		pkg.Metadata,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Package, error) {
	var p domain.Package
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, stackable, active, public, metadata, created_at, updated_at
		 FROM packages WHERE code = ?`,
		code,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Package, error) {
	var items []domain.Package
	stmt := db.WithContext(ctx).Model(&domain.Package{})

	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.Stackable != nil {
		stmt = stmt.Where("stackable = ?", *filter.Stackable)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.Public != nil {
		stmt = stmt.Where("public = ?", *filter.Public)
	}

	if err := stmt.Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, pkg *domain.Package) error {
	if pkg == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE packages
		 SET name = ?, stackable = ?, active = ?, public = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		pkg.Name,
		pkg.Stackable,
		pkg.Active,
		pkg.Public,
		pkg.Metadata,
		pkg.UpdatedAt,
		pkg.ID,
	).Error
}

func (r *repo) SetFeatureLimit(ctx context.Context, db *gorm.DB, assignment *domain.PackageFeature) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "package_id"}, {Name: "feature_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"limit_value": assignment.LimitValue,
			"updated_at":  assignment.UpdatedAt,
		}),
	}).Create(assignment).Error
}

func (r *repo) FeatureGrants(ctx context.Context, db *gorm.DB, packageCodes []string, featureCode string) ([]domain.FeatureGrant, error) {
	if len(packageCodes) == 0 {
		return nil, nil
	}
	var grants []domain.FeatureGrant
	err := db.WithContext(ctx).Raw(
		`SELECT p.code AS package_code, p.stackable, pf.limit_value
		   FROM package_features pf
		   JOIN packages p ON p.id = pf.package_id AND p.active = ?
		   JOIN features f ON f.id = pf.feature_id
		  WHERE p.code IN ? AND f.code = ?`,
		true,
		packageCodes,
		featureCode,
	).Scan(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repo) FeatureCodes(ctx context.Context, db *gorm.DB, packageCodes []string) ([]string, error) {
	if len(packageCodes) == 0 {
		return nil, nil
	}
	var codes []string
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT f.code
		   FROM package_features pf
		   JOIN packages p ON p.id = pf.package_id AND p.active = ?
		   JOIN features f ON f.id = pf.feature_id
		  WHERE p.code IN ?
		  ORDER BY f.code ASC`,
		true,
		packageCodes,
	).Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}
