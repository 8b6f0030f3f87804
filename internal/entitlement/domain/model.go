package domain

import (
	"github.com/bwmarrin/snowflake"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
)

// Reason is a short machine-readable resolution code; callers map it to
// user-facing messaging.
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonUnlimited    Reason = "unlimited"
	ReasonNoPackage    Reason = "no_package"
	ReasonLimitReached Reason = "limit_reached"
)

// EntitlementResult is the resolver's verdict for one workspace/feature pair
// at a point in time. It is derived, never stored.
type EntitlementResult struct {
	Allowed   bool   `json:"allowed"`
	Unlimited bool   `json:"unlimited"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Reason    Reason `json:"reason"`
}

// ConsumeRequest is the atomic check-then-consume operation for hard-limited
// features.
type ConsumeRequest struct {
	WorkspaceID snowflake.ID
	FeatureCode string
	Quantity    int64
	Actor       string
	Metadata    map[string]any
}

// ErrUnknownFeature re-exports the feature catalog sentinel so resolver
// callers need only this package.
var ErrUnknownFeature = featuredomain.ErrUnknownFeature
