package cycle

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/cycle/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type provider struct {
	db *gorm.DB
}

// New returns a Provider reading the billing_cycles table maintained by the
// subscription collaborator.
func New(p Params) domain.Provider {
	return &provider{db: p.DB}
}

type cycleRow struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
}

func (p *provider) CurrentCycle(ctx context.Context, workspaceID snowflake.ID) (domain.Cycle, error) {
	var row cycleRow
	err := p.db.WithContext(ctx).Raw(
		`SELECT period_start, period_end
		   FROM billing_cycles
		  WHERE workspace_id = ? AND status = ?
		  ORDER BY period_start DESC
		  LIMIT 1`,
		workspaceID,
		"OPEN",
	).Scan(&row).Error
	if err != nil {
		return domain.Cycle{}, err
	}
	if row.PeriodStart.IsZero() {
		return domain.Cycle{}, domain.ErrNoOpenCycle
	}
	return domain.Cycle{Start: row.PeriodStart.UTC(), End: row.PeriodEnd.UTC()}, nil
}
