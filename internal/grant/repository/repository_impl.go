package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/grant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, grant *domain.WorkspacePackage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO workspace_packages (
			id, workspace_id, package_code, status, source, granted_at, revoked_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		grant.ID,
		grant.WorkspaceID,
		grant.PackageCode,
		grant.Status,
		grant.Source,
		grant.GrantedAt,
		grant.RevokedAt,
		grant.CreatedAt,
		grant.UpdatedAt,
	).Error
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, packageCode string) (*domain.WorkspacePackage, error) {
	var g domain.WorkspacePackage
	err := db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, package_code, status, source, granted_at, revoked_at, created_at, updated_at
		 FROM workspace_packages
		 WHERE workspace_id = ? AND package_code = ? AND status = ?`,
		workspaceID,
		packageCode,
		domain.StatusActive,
	).Scan(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) ([]domain.WorkspacePackage, error) {
	var items []domain.WorkspacePackage
	err := db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, package_code, status, source, granted_at, revoked_at, created_at, updated_at
		 FROM workspace_packages
		 WHERE workspace_id = ? AND status = ?
		 ORDER BY granted_at ASC`,
		workspaceID,
		domain.StatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ActivePackageCodes(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID) ([]string, error) {
	var codes []string
	err := db.WithContext(ctx).Raw(
		`SELECT wp.package_code
		   FROM workspace_packages wp
		   JOIN packages p ON p.code = wp.package_code AND p.active = ?
		  WHERE wp.workspace_id = ? AND wp.status = ?
		  ORDER BY wp.package_code ASC`,
		true,
		workspaceID,
		domain.StatusActive,
	).Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, packageCode string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE workspace_packages
		 SET status = ?, revoked_at = ?, updated_at = ?
		 WHERE workspace_id = ? AND package_code = ? AND status = ?`,
		domain.StatusRevoked,
		now,
		now,
		workspaceID,
		packageCode,
		domain.StatusActive,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
