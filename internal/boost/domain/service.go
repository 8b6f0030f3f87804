package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// ProvisionBoost always creates a new boost row; boosts are additive and
	// never deduplicated.
	ProvisionBoost(ctx context.Context, req ProvisionRequest) (*Response, error)
	// CancelBoost sets the boost to cancelled, effective on the next
	// entitlement check. Cancelling an already-cancelled boost is a no-op.
	CancelBoost(ctx context.Context, boostID string) error
	ActiveBoosts(ctx context.Context, workspaceID string) ([]Response, error)
}

type ProvisionRequest struct {
	WorkspaceID  string         `json:"workspace_id"`
	FeatureCode  string         `json:"feature_code"`
	Type         BoostType      `json:"boost_type"`
	LimitValue   *int64         `json:"limit_value"`
	DurationType DurationType   `json:"duration_type"`
	ExpiresAt    *time.Time     `json:"expires_at"`
	Source       string         `json:"source"`
	Metadata     map[string]any `json:"metadata"`
}

type Response struct {
	ID           string         `json:"id"`
	WorkspaceID  string         `json:"workspace_id"`
	FeatureCode  string         `json:"feature_code"`
	Type         BoostType      `json:"boost_type"`
	LimitValue   *int64         `json:"limit_value,omitempty"`
	DurationType DurationType   `json:"duration_type"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	Status       Status         `json:"status"`
	Source       string         `json:"source,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

var (
	ErrInvalidWorkspace    = errors.New("invalid_workspace")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidBoostType    = errors.New("invalid_boost_type")
	ErrInvalidDurationType = errors.New("invalid_duration_type")
	ErrInvalidLimitValue   = errors.New("invalid_limit_value")
	// ErrMissingExpiry rejects duration boosts without an expiry instead of
	// silently treating them as permanent.
	ErrMissingExpiry    = errors.New("missing_expiry")
	ErrUnexpectedExpiry = errors.New("unexpected_expiry")
	ErrNotFound         = errors.New("not_found")
)
