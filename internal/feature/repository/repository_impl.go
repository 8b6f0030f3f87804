package repository

import (
	"context"

	"github.com/smallbiznis/entitle/internal/feature/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, feature *domain.Feature) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO features (
			id, code, name, category, feature_kind, reset_type, active, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		feature.ID,
		feature.Code,
		feature.Name,
		feature.Category,
		feature.Kind,
		feature.ResetType,
		feature.Active,
		feature.Metadata,
		feature.CreatedAt,
		feature.UpdatedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Feature, error) {
	var f domain.Feature
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, category, feature_kind, reset_type, active, metadata, created_at, updated_at
		 FROM features WHERE code = ?`,
		code,
	).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Feature, error) {
	var items []domain.Feature
	stmt := db.WithContext(ctx).Model(&domain.Feature{})

	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Kind != nil {
		stmt = stmt.Where("feature_kind = ?", *filter.Kind)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if err := stmt.Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, feature *domain.Feature) error {
	if feature == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE features
		 SET name = ?, category = ?, feature_kind = ?, reset_type = ?, active = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		feature.Name,
		feature.Category,
		feature.Kind,
		feature.ResetType,
		feature.Active,
		feature.Metadata,
		feature.UpdatedAt,
		feature.ID,
	).Error
}
