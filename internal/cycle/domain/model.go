package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Cycle is a billing period supplied by the subscription collaborator.
type Cycle struct {
	Start time.Time
	End   time.Time
}

// Provider supplies the workspace's current billing-cycle boundaries for
// cycle-bound period bucketing and cycle-bound boost expiry.
type Provider interface {
	CurrentCycle(ctx context.Context, workspaceID snowflake.ID) (Cycle, error)
}

// ErrNoOpenCycle reports that the workspace has no open billing cycle.
var ErrNoOpenCycle = errors.New("no_open_cycle")
