package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/feature/domain"
	"github.com/smallbiznis/entitle/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("feature.service"),
		repo:  p.Repo,
		genID: p.GenID,
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

	kind, err := normalizeKind(req.Kind)
	if err != nil {
		return nil, err
	}

	resetType, err := normalizeResetType(req.ResetType)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	record := &domain.Feature{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Category:  strings.TrimSpace(req.Category),
		Kind:      kind,
		ResetType: resetType,
		Active:    active,
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
		Code:     strings.TrimSpace(req.Code),
		Category: strings.TrimSpace(req.Category),
		Kind:     req.Kind,
		Active:   req.Active,
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

func (s *Service) toResponse(f *domain.Feature) domain.Response {
	resp := domain.Response{
		ID:        f.ID.String(),
		Code:      f.Code,
		Name:      f.Name,
		Category:  f.Category,
		Kind:      f.Kind,
		ResetType: f.ResetType,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if len(f.Metadata) > 0 {
		resp.Metadata = map[string]any(f.Metadata)
	}
	return resp
}

func normalizeKind(value domain.FeatureKind) (domain.FeatureKind, error) {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case string(domain.FeatureKindBoolean):
		return domain.FeatureKindBoolean, nil
	case string(domain.FeatureKindLimited):
		return domain.FeatureKindLimited, nil
	default:
		return "", domain.ErrInvalidKind
	}
}

func normalizeResetType(value domain.ResetType) (domain.ResetType, error) {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case "", string(domain.ResetTypeNone):
		return domain.ResetTypeNone, nil
	case string(domain.ResetTypeDaily):
		return domain.ResetTypeDaily, nil
	case string(domain.ResetTypeMonthly):
		return domain.ResetTypeMonthly, nil
	case string(domain.ResetTypeCycleBound):
		return domain.ResetTypeCycleBound, nil
	default:
		return "", domain.ErrInvalidResetType
	}
}
