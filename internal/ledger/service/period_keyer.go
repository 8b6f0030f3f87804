package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/clock"
	cycledomain "github.com/smallbiznis/entitle/internal/cycle/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	"github.com/smallbiznis/entitle/internal/ledger/domain"
	"go.uber.org/zap"
)

// PeriodKeyer maps a feature's reset cadence to the active period key.
type PeriodKeyer struct {
	cycles cycledomain.Provider
	clock  clock.Clock
	log    *zap.Logger
}

func NewPeriodKeyer(cycles cycledomain.Provider, clk clock.Clock, log *zap.Logger) *PeriodKeyer {
	return &PeriodKeyer{cycles: cycles, clock: clk, log: log.Named("ledger.periodkeyer")}
}

func (k *PeriodKeyer) KeyFor(ctx context.Context, workspaceID snowflake.ID, reset featuredomain.ResetType) (string, error) {
	now := k.clock.Now()
	switch reset {
	case featuredomain.ResetTypeDaily:
		return domain.DailyPeriodKey(now), nil
	case featuredomain.ResetTypeMonthly:
		return domain.MonthlyPeriodKey(now), nil
	case featuredomain.ResetTypeCycleBound:
		cycle, err := k.cycles.CurrentCycle(ctx, workspaceID)
		if err != nil {
			if errors.Is(err, cycledomain.ErrNoOpenCycle) {
				// No open cycle on record yet; bucket by calendar month so
				// usage is still counted rather than dropped.
				k.log.Warn("no open billing cycle, falling back to monthly bucket",
					zap.String("workspace_id", workspaceID.String()),
				)
				return domain.MonthlyPeriodKey(now), nil
			}
			return "", err
		}
		return domain.CyclePeriodKey(cycle.Start), nil
	default:
		return domain.AllTimePeriodKey, nil
	}
}
