package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode, periodKey string) (*domain.UsageCounter, error) {
	var c domain.UsageCounter
	err := db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, feature_code, period_key, used, created_at, updated_at
		 FROM usage_counters
		 WHERE workspace_id = ? AND feature_code = ? AND period_key = ?`,
		workspaceID,
		featureCode,
		periodKey,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode, periodKey string, quantity int64, newID snowflake.ID, now time.Time) error {
	// Single upsert so concurrent recorders never lose an increment.
	counter := &domain.UsageCounter{
		ID:          newID,
		WorkspaceID: workspaceID,
		FeatureCode: featureCode,
		PeriodKey:   periodKey,
		Used:        quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "feature_code"}, {Name: "period_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"used":       gorm.Expr("used + ?", quantity),
			"updated_at": now,
		}),
	}).Create(counter).Error
}

func (r *repo) IncrementIfUnderLimit(ctx context.Context, db *gorm.DB, workspaceID snowflake.ID, featureCode, periodKey string, quantity, limit int64, newID snowflake.ID, now time.Time) (bool, error) {
	// The condition and the increment are one statement; there is no window
	// between a read and a write for a concurrent consumer to exploit.
	for attempt := 0; attempt < 3; attempt++ {
		result := db.WithContext(ctx).Exec(
			`UPDATE usage_counters
			 SET used = used + ?, updated_at = ?
			 WHERE workspace_id = ? AND feature_code = ? AND period_key = ? AND used + ? <= ?`,
			quantity,
			now,
			workspaceID,
			featureCode,
			periodKey,
			quantity,
			limit,
		)
		if result.Error != nil {
			return false, result.Error
		}
		if result.RowsAffected > 0 {
			return true, nil
		}

		existing, err := r.Get(ctx, db, workspaceID, featureCode, periodKey)
		if err != nil {
			return false, err
		}
		if existing != nil {
			// Row exists and the condition failed: over limit.
			return false, nil
		}

		if quantity > limit {
			return false, nil
		}

		insert := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "feature_code"}, {Name: "period_key"}},
			DoNothing: true,
		}).Create(&domain.UsageCounter{
			ID:          newID,
			WorkspaceID: workspaceID,
			FeatureCode: featureCode,
			PeriodKey:   periodKey,
			Used:        quantity,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if insert.Error != nil {
			return false, insert.Error
		}
		if insert.RowsAffected > 0 {
			return true, nil
		}
		// A concurrent consumer created the row first; retry the conditional update.
	}
	return false, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.UsageEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_events (
			id, workspace_id, feature_code, period_key, quantity, actor, metadata, recorded_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.WorkspaceID,
		event.FeatureCode,
		event.PeriodKey,
		event.Quantity,
		event.Actor,
		event.Metadata,
		event.RecordedAt,
		event.CreatedAt,
	).Error
}
