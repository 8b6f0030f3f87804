package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Check resolves the workspace's entitlement for featureCode from current
	// packages, boosts and usage. Denial is a value, not an error; Check fails
	// only when featureCode references no known feature.
	Check(ctx context.Context, workspaceID snowflake.ID, featureCode string) (EntitlementResult, error)
	// CheckAndConsume performs the limit check and the increment as one
	// conditional storage operation, closing the race window between a Check
	// and a Record.
	CheckAndConsume(ctx context.Context, req ConsumeRequest) (EntitlementResult, error)
	// UsageSummary runs Check for every feature the workspace's packages and
	// boosts reference. Features that no longer resolve are skipped rather
	// than failing the whole summary.
	UsageSummary(ctx context.Context, workspaceID snowflake.ID) (map[string]EntitlementResult, error)
}
