package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
)

// RecordRequest accounts consumption against the current period. Quantity
// must be at least 1.
type RecordRequest struct {
	WorkspaceID string         `json:"workspace_id"`
	FeatureCode string         `json:"feature_code"`
	Quantity    int64          `json:"quantity"`
	Actor       string         `json:"actor"`
	Metadata    map[string]any `json:"metadata"`
}

// ConsumeRequest is the hard-limit path: increment only if the resulting
// used stays within Limit, as one conditional storage operation.
type ConsumeRequest struct {
	WorkspaceID snowflake.ID
	FeatureCode string
	Reset       featuredomain.ResetType
	Quantity    int64
	Limit       int64
	Actor       string
	Metadata    map[string]any
}

type Service interface {
	// Record increments the usage counter for the current period. It does not
	// re-check any limit; callers gate with an entitlement check first.
	Record(ctx context.Context, req RecordRequest) error
	// ConsumeWithinLimit applies the conditional increment and reports whether
	// it was applied along with the counter value after the attempt.
	ConsumeWithinLimit(ctx context.Context, req ConsumeRequest) (bool, int64, error)
	// UsedInPeriod returns the current-period usage and the period key it was
	// read from (0 if no counter row exists yet).
	UsedInPeriod(ctx context.Context, workspaceID snowflake.ID, featureCode string, reset featuredomain.ResetType) (int64, string, error)
}

var (
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	// ErrInvalidQuantity rejects zero or negative quantities outright; they
	// are invariant violations, never coerced.
	ErrInvalidQuantity = errors.New("invalid_quantity")
	// ErrFeatureNotLimited rejects usage recording against boolean features,
	// which have no ledger.
	ErrFeatureNotLimited = errors.New("feature_not_limited")
)
