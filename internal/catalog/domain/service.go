package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	GetByCode(ctx context.Context, code string) (*Response, error)
	SetFeatureLimit(ctx context.Context, req SetFeatureLimitRequest) error
	Archive(ctx context.Context, code string) (*Response, error)
}

type ListRequest struct {
	Code      string
	Stackable *bool
	Active    *bool
	Public    *bool
}

type CreateRequest struct {
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Stackable bool           `json:"stackable"`
	Active    *bool          `json:"active"`
	Public    *bool          `json:"public"`
	Metadata  map[string]any `json:"metadata"`
}

type SetFeatureLimitRequest struct {
	PackageCode string `json:"package_code"`
	FeatureCode string `json:"feature_code"`
	LimitValue  *int64 `json:"limit_value"`
}

type Response struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Stackable bool           `json:"stackable"`
	Active    bool           `json:"active"`
	Public    bool           `json:"public"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

var (
	ErrInvalidCode    = errors.New("invalid_code")
	ErrInvalidName    = errors.New("invalid_name")
	ErrDuplicateCode  = errors.New("duplicate_code")
	ErrNotFound       = errors.New("not_found")
	ErrUnknownPackage = errors.New("unknown_package")
)
