package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/entitle/internal/catalog/domain"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/grant/domain"
	"github.com/smallbiznis/entitle/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("grant.service"),
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

func (s *Service) ProvisionPackage(ctx context.Context, req domain.ProvisionRequest) (*domain.Response, error) {
	workspaceID, err := parseWorkspaceID(req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.PackageCode)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	pkg, err := s.catalogRepo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, catalogdomain.ErrUnknownPackage
	}

	existing, err := s.repo.FindActive(ctx, s.db, workspaceID, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		resp := s.toResponse(existing)
		return &resp, nil
	}

	now := s.clock.Now()
	record := &domain.WorkspacePackage{
		ID:          s.genID.Generate(),
		WorkspaceID: workspaceID,
		PackageCode: code,
		Status:      domain.StatusActive,
		Source:      strings.TrimSpace(req.Source),
		GrantedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// A concurrent provision won the partial unique index race; the grant
		// exists, which is the requested outcome.
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindActive(ctx, s.db, workspaceID, code)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				resp := s.toResponse(winner)
				return &resp, nil
			}
		}
		return nil, err
	}

	s.log.Info("package provisioned",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("package_code", code),
		zap.String("source", record.Source),
	)
	resp := s.toResponse(record)
	return &resp, nil
}

func (s *Service) RevokePackage(ctx context.Context, req domain.RevokeRequest) error {
	workspaceID, err := parseWorkspaceID(req.WorkspaceID)
	if err != nil {
		return err
	}

	code := strings.TrimSpace(req.PackageCode)
	if code == "" {
		return domain.ErrInvalidCode
	}

	changed, err := s.repo.Revoke(ctx, s.db, workspaceID, code, s.clock.Now())
	if err != nil {
		return err
	}
	if changed {
		s.log.Info("package revoked",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("package_code", code),
			zap.String("source", strings.TrimSpace(req.Source)),
		)
	}
	return nil
}

func (s *Service) ActivePackages(ctx context.Context, workspaceID string) ([]domain.Response, error) {
	id, err := parseWorkspaceID(workspaceID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListActive(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) toResponse(g *domain.WorkspacePackage) domain.Response {
	return domain.Response{
		ID:          g.ID.String(),
		WorkspaceID: g.WorkspaceID.String(),
		PackageCode: g.PackageCode,
		Status:      g.Status,
		Source:      g.Source,
		GrantedAt:   g.GrantedAt,
		RevokedAt:   g.RevokedAt,
	}
}

func parseWorkspaceID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidWorkspace
	}
	return parsed, nil
}
