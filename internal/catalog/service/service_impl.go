package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/catalog/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	"github.com/smallbiznis/entitle/pkg/db"
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
	Repo        domain.Repository
	FeatureRepo featuredomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	featureRepo featuredomain.Repository
	genID       *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("catalog.service"),
		repo:        p.Repo,
		featureRepo: p.FeatureRepo,
		genID:       p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}

	now := time.Now().UTC()
	record := &domain.Package{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Stackable: req.Stackable,
		Active:    active,
		Public:    public,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	resp := s.toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Code:      strings.TrimSpace(req.Code),
		Stackable: req.Stackable,
		Active:    req.Active,
		Public:    req.Public,
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Response, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	item, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) SetFeatureLimit(ctx context.Context, req domain.SetFeatureLimitRequest) error {
	pkg, err := s.repo.FindByCode(ctx, s.db, strings.TrimSpace(req.PackageCode))
	if err != nil {
		return err
	}
	if pkg == nil {
		return domain.ErrUnknownPackage
	}

	feature, err := s.featureRepo.FindByCode(ctx, s.db, strings.TrimSpace(req.FeatureCode))
	if err != nil {
		return err
	}
	if feature == nil {
		return featuredomain.ErrUnknownFeature
	}

	now := time.Now().UTC()
	return s.repo.SetFeatureLimit(ctx, s.db, &domain.PackageFeature{
		ID:         s.genID.Generate(),
		PackageID:  pkg.ID,
		FeatureID:  feature.ID,
		LimitValue: req.LimitValue,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (s *Service) Archive(ctx context.Context, code string) (*domain.Response, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	item, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	item.Active = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) toResponse(p *domain.Package) domain.Response {
	resp := domain.Response{
		ID:        p.ID.String(),
		Code:      p.Code,
		Name:      p.Name,
		Stackable: p.Stackable,
		Active:    p.Active,
		Public:    p.Public,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = map[string]any(p.Metadata)
	}
	return resp
}
