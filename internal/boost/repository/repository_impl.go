package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/boost/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, boost *domain.Boost) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO boosts (
			id, workspace_id, feature_code, boost_type, limit_value, duration_type,
			expires_at, status, source, metadata, cancelled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		boost.ID,
		boost.WorkspaceID,
		boost.FeatureCode,
		boost.Type,
		boost.LimitValue,
		boost.DurationType,
		boost.ExpiresAt,
		boost.Status,
		boost.Source,
		boost.Metadata,
		boost.CancelledAt,
		boost.CreatedAt,
		boost.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Boost, error) {
	var b domain.Boost
	err := db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, feature_code, boost_type, limit_value, duration_type,
		        expires_at, status, source, metadata, cancelled_at, created_at, updated_at
		 FROM boosts WHERE id = ?`,
		id,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) ListLiveForFeature(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode string, now time.Time) ([]domain.Boost, error) {
	var items []domain.Boost
	err := db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, feature_code, boost_type, limit_value, duration_type,
		        expires_at, status, source, metadata, cancelled_at, created_at, updated_at
		 FROM boosts
		 WHERE workspace_id = ? AND feature_code = ? AND status = ?
		   AND (duration_type = ? OR expires_at > ?)
		 ORDER BY created_at ASC`,
		workspaceID,
		featureCode,
		domain.StatusActive,
		domain.DurationTypePermanent,
		now,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListLiveForWorkspace(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, now time.Time) ([]domain.Boost, error) {
	var items []domain.Boost
	err := db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, feature_code, boost_type, limit_value, duration_type,
		        expires_at, status, source, metadata, cancelled_at, created_at, updated_at
		 FROM boosts
		 WHERE workspace_id = ? AND status = ?
		   AND (duration_type = ? OR expires_at > ?)
		 ORDER BY created_at ASC`,
		workspaceID,
		domain.StatusActive,
		domain.DurationTypePermanent,
		now,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE boosts
		 SET status = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCancelled,
		now,
		now,
		id,
		domain.StatusActive,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) CancelExpired(ctx context.Context, db *gorm.DB, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE boosts
		 SET status = ?, cancelled_at = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM boosts
			WHERE status = ? AND duration_type <> ? AND expires_at IS NOT NULL AND expires_at <= ?
			LIMIT ?
		 )`,
		domain.StatusCancelled,
		now,
		now,
		domain.StatusActive,
		domain.DurationTypePermanent,
		now,
		limit,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
