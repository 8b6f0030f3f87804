package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/clock"
	cycledomain "github.com/smallbiznis/entitle/internal/cycle/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	"github.com/smallbiznis/entitle/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/entitle/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	incrementAttempts = 3
	backoffBase       = 25 * time.Millisecond
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	FeatureRepo featuredomain.Repository
	Cycles      cycledomain.Provider
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	featureRepo featuredomain.Repository
	keyer       *PeriodKeyer
	genID       *snowflake.Node
	clock       clock.Clock
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		repo:        p.Repo,
		featureRepo: p.FeatureRepo,
		keyer:       NewPeriodKeyer(p.Cycles, p.Clock, p.Log),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) error {
	workspaceID, err := snowflake.ParseString(strings.TrimSpace(req.WorkspaceID))
	if err != nil || workspaceID == 0 {
		return domain.ErrInvalidWorkspace
	}
	if req.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	featureCode := strings.TrimSpace(req.FeatureCode)
	feature, err := s.featureRepo.FindByCode(ctx, s.db, featureCode)
	if err != nil {
		return err
	}
	if feature == nil {
		return featuredomain.ErrUnknownFeature
	}
	if feature.Kind != featuredomain.FeatureKindLimited {
		return domain.ErrFeatureNotLimited
	}

	periodKey, err := s.keyer.KeyFor(ctx, workspaceID, feature.ResetType)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.incrementWithRetry(ctx, workspaceID, featureCode, periodKey, req.Quantity, now); err != nil {
		return err
	}

	s.appendEvent(ctx, workspaceID, featureCode, periodKey, req.Quantity, req.Actor, req.Metadata, now)
	s.metrics.IncUsageRecord(featureCode)
	return nil
}

func (s *Service) ConsumeWithinLimit(ctx context.Context, req domain.ConsumeRequest) (bool, int64, error) {
	if req.Quantity < 1 {
		return false, 0, domain.ErrInvalidQuantity
	}

	periodKey, err := s.keyer.KeyFor(ctx, req.WorkspaceID, req.Reset)
	if err != nil {
		return false, 0, err
	}

	now := s.clock.Now()
	applied, err := s.repo.IncrementIfUnderLimit(ctx, s.db, req.WorkspaceID, req.FeatureCode, periodKey, req.Quantity, req.Limit, s.genID.Generate(), now)
	if err != nil {
		return false, 0, fmt.Errorf("conditional increment: %w", err)
	}

	counter, err := s.repo.Get(ctx, s.db, req.WorkspaceID, req.FeatureCode, periodKey)
	if err != nil {
		return applied, 0, err
	}
	var used int64
	if counter != nil {
		used = counter.Used
	}

	if applied {
		s.appendEvent(ctx, req.WorkspaceID, req.FeatureCode, periodKey, req.Quantity, req.Actor, req.Metadata, now)
		s.metrics.IncUsageRecord(req.FeatureCode)
	} else {
		s.metrics.IncConsumeDenied(req.FeatureCode)
	}
	return applied, used, nil
}

func (s *Service) UsedInPeriod(ctx context.Context, workspaceID snowflake.ID, featureCode string, reset featuredomain.ResetType) (int64, string, error) {
	periodKey, err := s.keyer.KeyFor(ctx, workspaceID, reset)
	if err != nil {
		return 0, "", err
	}

	counter, err := s.repo.Get(ctx, s.db, workspaceID, featureCode, periodKey)
	if err != nil {
		return 0, "", err
	}
	if counter == nil {
		return 0, periodKey, nil
	}
	return counter.Used, periodKey, nil
}

// incrementWithRetry retries transient storage failures a bounded number of
// times; under-counting usage is a correctness bug, not an edge case.
func (s *Service) incrementWithRetry(ctx context.Context, workspaceID snowflake.ID, featureCode, periodKey string, quantity int64, now time.Time) error {
	var lastErr error
	for attempt := 0; attempt < incrementAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffBase << (attempt - 1)):
			}
		}
		lastErr = s.repo.Increment(ctx, s.db, workspaceID, featureCode, periodKey, quantity, s.genID.Generate(), now)
		if lastErr == nil {
			return nil
		}
		s.log.Warn("usage increment failed",
			zap.Int("attempt", attempt+1),
			zap.String("workspace_id", workspaceID.String()),
			zap.String("feature_code", featureCode),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("increment usage: %w", lastErr)
}

func (s *Service) appendEvent(ctx context.Context, workspaceID snowflake.ID, featureCode, periodKey string, quantity int64, actor string, metadata map[string]any, now time.Time) {
	event := &domain.UsageEvent{
		ID:          s.genID.Generate(),
		WorkspaceID: workspaceID,
		FeatureCode: featureCode,
		PeriodKey:   periodKey,
		Quantity:    quantity,
		Actor:       strings.TrimSpace(actor),
		RecordedAt:  now,
		CreatedAt:   now,
	}
	if metadata != nil {
		event.Metadata = datatypes.JSONMap(metadata)
	}
	// The journal is best-effort; the counter upsert already committed.
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		s.log.Warn("usage event journal insert failed",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("feature_code", featureCode),
			zap.Error(err),
		)
	}
}
