package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/boost/domain"
	"github.com/smallbiznis/entitle/internal/clock"
	cycledomain "github.com/smallbiznis/entitle/internal/cycle/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
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
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	featureRepo featuredomain.Repository
	cycles      cycledomain.Provider
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("boost.service"),
		repo:        p.Repo,
		featureRepo: p.FeatureRepo,
		cycles:      p.Cycles,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

func (s *Service) ProvisionBoost(ctx context.Context, req domain.ProvisionRequest) (*domain.Response, error) {
	workspaceID, err := snowflake.ParseString(strings.TrimSpace(req.WorkspaceID))
	if err != nil || workspaceID == 0 {
		return nil, domain.ErrInvalidWorkspace
	}

	featureCode := strings.TrimSpace(req.FeatureCode)
	feature, err := s.featureRepo.FindByCode(ctx, s.db, featureCode)
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, featuredomain.ErrUnknownFeature
	}

	boostType, err := normalizeBoostType(req.Type)
	if err != nil {
		return nil, err
	}
	if boostType == domain.BoostTypeAddLimit {
		if req.LimitValue == nil || *req.LimitValue <= 0 {
			return nil, domain.ErrInvalidLimitValue
		}
	}

	durationType, err := normalizeDurationType(req.DurationType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expiresAt := req.ExpiresAt

	switch durationType {
	case domain.DurationTypePermanent:
		if expiresAt != nil {
			return nil, domain.ErrUnexpectedExpiry
		}
	case domain.DurationTypeDuration:
		// Admin tooling has been observed to submit duration boosts without an
		// expiry; that is a data-entry bug upstream, rejected here.
		if expiresAt == nil || !expiresAt.After(now) {
			return nil, domain.ErrMissingExpiry
		}
	case domain.DurationTypeCycleBound:
		cycle, cycleErr := s.cycles.CurrentCycle(ctx, workspaceID)
		if cycleErr != nil {
			if errors.Is(cycleErr, cycledomain.ErrNoOpenCycle) {
				return nil, domain.ErrMissingExpiry
			}
			return nil, cycleErr
		}
		end := cycle.End.UTC()
		expiresAt = &end
	}

	record := &domain.Boost{
		ID:           s.genID.Generate(),
		WorkspaceID:  workspaceID,
		FeatureCode:  featureCode,
		Type:         boostType,
		LimitValue:   req.LimitValue,
		DurationType: durationType,
		ExpiresAt:    expiresAt,
		Status:       domain.StatusActive,
		Source:       strings.TrimSpace(req.Source),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("boost provisioned",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("feature_code", featureCode),
		zap.String("boost_type", string(boostType)),
		zap.String("duration_type", string(durationType)),
	)
	resp := s.toResponse(record)
	return &resp, nil
}

func (s *Service) CancelBoost(ctx context.Context, boostID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(boostID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	changed, err := s.repo.Cancel(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return err
	}
	if changed {
		s.log.Info("boost cancelled",
			zap.String("boost_id", id.String()),
			zap.String("workspace_id", existing.WorkspaceID.String()),
			zap.String("feature_code", existing.FeatureCode),
		)
	}
	return nil
}

func (s *Service) ActiveBoosts(ctx context.Context, workspaceID string) ([]domain.Response, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(workspaceID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidWorkspace
	}

	items, err := s.repo.ListLiveForWorkspace(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) toResponse(b *domain.Boost) domain.Response {
	resp := domain.Response{
		ID:           b.ID.String(),
		WorkspaceID:  b.WorkspaceID.String(),
		FeatureCode:  b.FeatureCode,
		Type:         b.Type,
		LimitValue:   b.LimitValue,
		DurationType: b.DurationType,
		ExpiresAt:    b.ExpiresAt,
		Status:       b.Status,
		Source:       b.Source,
		CreatedAt:    b.CreatedAt,
	}
	if len(b.Metadata) > 0 {
		resp.Metadata = map[string]any(b.Metadata)
	}
	return resp
}

func normalizeBoostType(value domain.BoostType) (domain.BoostType, error) {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case string(domain.BoostTypeEnable):
		return domain.BoostTypeEnable, nil
	case string(domain.BoostTypeAddLimit):
		return domain.BoostTypeAddLimit, nil
	case string(domain.BoostTypeUnlimited):
		return domain.BoostTypeUnlimited, nil
	default:
		return "", domain.ErrInvalidBoostType
	}
}

func normalizeDurationType(value domain.DurationType) (domain.DurationType, error) {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case string(domain.DurationTypePermanent):
		return domain.DurationTypePermanent, nil
	case string(domain.DurationTypeDuration):
		return domain.DurationTypeDuration, nil
	case string(domain.DurationTypeCycleBound):
		return domain.DurationTypeCycleBound, nil
	default:
		return "", domain.ErrInvalidDurationType
	}
}
