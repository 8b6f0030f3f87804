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
	Archive(ctx context.Context, code string) (*Response, error)
}

type ListRequest struct {
	Code     string
	Category string
	Kind     *FeatureKind
	Active   *bool
}

type CreateRequest struct {
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Kind      FeatureKind    `json:"kind"`
	ResetType ResetType      `json:"reset_type"`
	Active    *bool          `json:"active"`
	Metadata  map[string]any `json:"metadata"`
}

type Response struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Category  string         `json:"category,omitempty"`
	Kind      FeatureKind    `json:"kind"`
	ResetType ResetType      `json:"reset_type"`
	Active    bool           `json:"active"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

var (
	ErrInvalidCode      = errors.New("invalid_code")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidKind      = errors.New("invalid_feature_kind")
	ErrInvalidResetType = errors.New("invalid_reset_type")
	ErrDuplicateCode    = errors.New("duplicate_code")
	ErrNotFound         = errors.New("not_found")

	// ErrUnknownFeature distinguishes a data-integrity problem (a caller
	// referencing a feature code that does not exist) from an ordinary denial.
	ErrUnknownFeature = errors.New("unknown_feature")
)
