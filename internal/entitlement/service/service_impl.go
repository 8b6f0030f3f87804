package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	boostdomain "github.com/smallbiznis/entitle/internal/boost/domain"
	catalogdomain "github.com/smallbiznis/entitle/internal/catalog/domain"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/entitlement/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	grantdomain "github.com/smallbiznis/entitle/internal/grant/domain"
	ledgerdomain "github.com/smallbiznis/entitle/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/entitle/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	FeatureRepo featuredomain.Repository
	CatalogRepo catalogdomain.Repository
	GrantRepo   grantdomain.Repository
	BoostRepo   boostdomain.Repository
	Ledger      ledgerdomain.Service
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	featureRepo featuredomain.Repository
	catalogRepo catalogdomain.Repository
	grantRepo   grantdomain.Repository
	boostRepo   boostdomain.Repository
	ledger      ledgerdomain.Service
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("entitlement.service"),
		clock:       p.Clock,
		featureRepo: p.FeatureRepo,
		catalogRepo: p.CatalogRepo,
		grantRepo:   p.GrantRepo,
		boostRepo:   p.BoostRepo,
		ledger:      p.Ledger,
		metrics:     p.Metrics,
	}
}

// effective is the merged contribution of packages and boosts for one
// workspace/feature pair, before usage is applied.
type effective struct {
	granted          bool
	enabled          bool
	packageUnlimited bool
	boostUnlimited   bool
	limit            int64
	hasBoost         bool
}

func (e effective) unlimited() bool {
	return e.packageUnlimited || e.boostUnlimited
}

func (s *Service) Check(ctx context.Context, workspaceID snowflake.ID, featureCode string) (domain.EntitlementResult, error) {
	feature, err := s.lookupFeature(ctx, featureCode)
	if err != nil {
		return domain.EntitlementResult{}, err
	}

	eff, err := s.resolve(ctx, workspaceID, feature.Code)
	if err != nil {
		return domain.EntitlementResult{}, err
	}

	result, err := s.verdict(ctx, workspaceID, feature, eff)
	if err != nil {
		return domain.EntitlementResult{}, err
	}
	s.metrics.IncCheck(string(result.Reason))
	return result, nil
}

func (s *Service) CheckAndConsume(ctx context.Context, req domain.ConsumeRequest) (domain.EntitlementResult, error) {
	if req.Quantity < 1 {
		return domain.EntitlementResult{}, ledgerdomain.ErrInvalidQuantity
	}

	feature, err := s.lookupFeature(ctx, req.FeatureCode)
	if err != nil {
		return domain.EntitlementResult{}, err
	}
	if feature.Kind != featuredomain.FeatureKindLimited {
		return domain.EntitlementResult{}, ledgerdomain.ErrFeatureNotLimited
	}

	eff, err := s.resolve(ctx, req.WorkspaceID, feature.Code)
	if err != nil {
		return domain.EntitlementResult{}, err
	}

	if !eff.granted && !eff.hasBoost {
		result := domain.EntitlementResult{Reason: domain.ReasonNoPackage}
		s.metrics.IncCheck(string(result.Reason))
		return result, nil
	}

	if eff.unlimited() {
		if err := s.ledger.Record(ctx, ledgerdomain.RecordRequest{
			WorkspaceID: req.WorkspaceID.String(),
			FeatureCode: feature.Code,
			Quantity:    req.Quantity,
			Actor:       req.Actor,
			Metadata:    req.Metadata,
		}); err != nil {
			return domain.EntitlementResult{}, err
		}
		used, _, err := s.ledger.UsedInPeriod(ctx, req.WorkspaceID, feature.Code, feature.ResetType)
		if err != nil {
			return domain.EntitlementResult{}, err
		}
		result := domain.EntitlementResult{
			Allowed:   true,
			Unlimited: true,
			Used:      used,
			Reason:    domain.ReasonUnlimited,
		}
		s.metrics.IncCheck(string(result.Reason))
		return result, nil
	}

	applied, used, err := s.ledger.ConsumeWithinLimit(ctx, ledgerdomain.ConsumeRequest{
		WorkspaceID: req.WorkspaceID,
		FeatureCode: feature.Code,
		Reset:       feature.ResetType,
		Quantity:    req.Quantity,
		Limit:       eff.limit,
		Actor:       req.Actor,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return domain.EntitlementResult{}, err
	}

	result := domain.EntitlementResult{
		Allowed:   applied,
		Limit:     eff.limit,
		Used:      used,
		Remaining: clampRemaining(eff.limit, used),
		Reason:    domain.ReasonOK,
	}
	if !applied {
		result.Reason = domain.ReasonLimitReached
	}
	s.metrics.IncCheck(string(result.Reason))
	return result, nil
}

func (s *Service) UsageSummary(ctx context.Context, workspaceID snowflake.ID) (map[string]domain.EntitlementResult, error) {
	packageCodes, err := s.grantRepo.ActivePackageCodes(ctx, s.db, workspaceID)
	if err != nil {
		return nil, err
	}

	featureCodes, err := s.catalogRepo.FeatureCodes(ctx, s.db, packageCodes)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(featureCodes))
	for _, code := range featureCodes {
		seen[code] = struct{}{}
	}

	boosts, err := s.boostRepo.ListLiveForWorkspace(ctx, s.db, workspaceID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	for _, b := range boosts {
		seen[b.FeatureCode] = struct{}{}
	}

	summary := make(map[string]domain.EntitlementResult, len(seen))
	for code := range seen {
		result, checkErr := s.Check(ctx, workspaceID, code)
		if checkErr != nil {
			// A boost or assignment referencing a feature that no longer
			// resolves must not sink the whole summary.
			s.log.Warn("summary check failed",
				zap.String("workspace_id", workspaceID.String()),
				zap.String("feature_code", code),
				zap.Error(checkErr),
			)
			continue
		}
		summary[code] = result
	}
	return summary, nil
}

func (s *Service) lookupFeature(ctx context.Context, featureCode string) (*featuredomain.Feature, error) {
	code := strings.TrimSpace(featureCode)
	if code == "" {
		return nil, domain.ErrUnknownFeature
	}
	feature, err := s.featureRepo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, domain.ErrUnknownFeature
	}
	return feature, nil
}

// resolve merges the workspace's active packages and live boosts into the
// effective grant for featureCode. Boost expiry is evaluated against the
// current clock on every call; no sweep needs to have run.
func (s *Service) resolve(ctx context.Context, workspaceID snowflake.ID, featureCode string) (effective, error) {
	var eff effective

	packageCodes, err := s.grantRepo.ActivePackageCodes(ctx, s.db, workspaceID)
	if err != nil {
		return eff, err
	}

	grants, err := s.catalogRepo.FeatureGrants(ctx, s.db, packageCodes, featureCode)
	if err != nil {
		return eff, err
	}

	eff.granted = len(grants) > 0

	// Base tier: the single most generous non-stackable package. Stackable
	// packages sum on top. A nil limit anywhere makes the base unlimited.
	var baseTier int64
	var stacked int64
	for _, g := range grants {
		if g.LimitValue == nil {
			eff.packageUnlimited = true
			continue
		}
		if g.Stackable {
			stacked += *g.LimitValue
		} else if *g.LimitValue > baseTier {
			baseTier = *g.LimitValue
		}
	}
	eff.limit = baseTier + stacked

	boosts, err := s.boostRepo.ListLiveForFeature(ctx, s.db, workspaceID, featureCode, s.clock.Now())
	if err != nil {
		return eff, err
	}
	eff.hasBoost = len(boosts) > 0

	for _, b := range boosts {
		switch b.Type {
		case boostdomain.BoostTypeUnlimited:
			eff.boostUnlimited = true
		case boostdomain.BoostTypeEnable:
			eff.enabled = true
		case boostdomain.BoostTypeAddLimit:
			if b.LimitValue != nil {
				eff.limit += *b.LimitValue
			}
		}
	}
	return eff, nil
}

func (s *Service) verdict(ctx context.Context, workspaceID snowflake.ID, feature *featuredomain.Feature, eff effective) (domain.EntitlementResult, error) {
	if feature.Kind == featuredomain.FeatureKindBoolean {
		// Boolean features never consult the usage ledger.
		switch {
		case eff.granted || eff.enabled:
			return domain.EntitlementResult{Allowed: true, Reason: domain.ReasonOK}, nil
		case eff.boostUnlimited:
			return domain.EntitlementResult{Allowed: true, Unlimited: true, Reason: domain.ReasonUnlimited}, nil
		default:
			return domain.EntitlementResult{Reason: domain.ReasonNoPackage}, nil
		}
	}

	if !eff.granted && !eff.hasBoost {
		return domain.EntitlementResult{Reason: domain.ReasonNoPackage}, nil
	}

	used, _, err := s.ledger.UsedInPeriod(ctx, workspaceID, feature.Code, feature.ResetType)
	if err != nil {
		return domain.EntitlementResult{}, err
	}

	if eff.unlimited() {
		return domain.EntitlementResult{
			Allowed:   true,
			Unlimited: true,
			Used:      used,
			Reason:    domain.ReasonUnlimited,
		}, nil
	}

	result := domain.EntitlementResult{
		Allowed:   used < eff.limit,
		Limit:     eff.limit,
		Used:      used,
		Remaining: clampRemaining(eff.limit, used),
		Reason:    domain.ReasonOK,
	}
	if !result.Allowed {
		result.Reason = domain.ReasonLimitReached
	}
	return result, nil
}

func clampRemaining(limit, used int64) int64 {
	if remaining := limit - used; remaining > 0 {
		return remaining
	}
	return 0
}
