package cycle

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/cycle/domain"
)

// FixedProvider serves one cycle for every workspace. Test helper.
type FixedProvider struct {
	Cycle domain.Cycle
	Err   error
}

func (p *FixedProvider) CurrentCycle(ctx context.Context, workspaceID snowflake.ID) (domain.Cycle, error) {
	if p.Err != nil {
		return domain.Cycle{}, p.Err
	}
	return p.Cycle, nil
}
