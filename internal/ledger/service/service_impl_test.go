package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/cycle"
	cycledomain "github.com/smallbiznis/entitle/internal/cycle/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	featurerepo "github.com/smallbiznis/entitle/internal/feature/repository"
	"github.com/smallbiznis/entitle/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/entitle/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ledgerEnv struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	cycles *cycle.FixedProvider
	svc    domain.Service
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&featuredomain.Feature{},
		&domain.UsageCounter{},
		&domain.UsageEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	cycles := &cycle.FixedProvider{Err: cycledomain.ErrNoOpenCycle}

	svc := New(Params{
		DB:          gdb,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        ledgerrepo.Provide(),
		FeatureRepo: featurerepo.Provide(),
		Cycles:      cycles,
	})

	return &ledgerEnv{db: gdb, node: node, clock: clk, cycles: cycles, svc: svc}
}

func (e *ledgerEnv) createFeature(t *testing.T, code string, kind featuredomain.FeatureKind, reset featuredomain.ResetType) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&featuredomain.Feature{
		ID:        e.node.Generate(),
		Code:      code,
		Name:      code,
		Kind:      kind,
		ResetType: reset,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "ai.credits", featuredomain.FeatureKindLimited, featuredomain.ResetTypeMonthly)
	ws := env.node.Generate()

	err := env.svc.Record(context.Background(), domain.RecordRequest{
		WorkspaceID: "not-a-number", FeatureCode: "ai.credits", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidWorkspace)

	err = env.svc.Record(context.Background(), domain.RecordRequest{
		WorkspaceID: ws.String(), FeatureCode: "ai.credits", Quantity: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	err = env.svc.Record(context.Background(), domain.RecordRequest{
		WorkspaceID: ws.String(), FeatureCode: "ai.credits", Quantity: -5,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestRecordRejectsBooleanFeature(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "sso", featuredomain.FeatureKindBoolean, featuredomain.ResetTypeNone)
	ws := env.node.Generate()

	err := env.svc.Record(context.Background(), domain.RecordRequest{
		WorkspaceID: ws.String(), FeatureCode: "sso", Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrFeatureNotLimited)
}

func TestRecordUnknownFeature(t *testing.T) {
	env := newLedgerEnv(t)
	ws := env.node.Generate()

	err := env.svc.Record(context.Background(), domain.RecordRequest{
		WorkspaceID: ws.String(), FeatureCode: "nope", Quantity: 1,
	})
	assert.ErrorIs(t, err, featuredomain.ErrUnknownFeature)
}

func TestRecordAccumulatesInPeriodBucket(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "api.requests", featuredomain.FeatureKindLimited, featuredomain.ResetTypeDaily)
	ws := env.node.Generate()

	for _, qty := range []int64{3, 2, 4} {
		require.NoError(t, env.svc.Record(context.Background(), domain.RecordRequest{
			WorkspaceID: ws.String(), FeatureCode: "api.requests", Quantity: qty,
		}))
	}

	used, periodKey, err := env.svc.UsedInPeriod(context.Background(), ws, "api.requests", featuredomain.ResetTypeDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(9), used)
	assert.Equal(t, "2024-03-10", periodKey)

	env.clock.Advance(24 * time.Hour)
	used, periodKey, err = env.svc.UsedInPeriod(context.Background(), ws, "api.requests", featuredomain.ResetTypeDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)
	assert.Equal(t, "2024-03-11", periodKey)
}

func TestRecordConcurrentLosesNothing(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "ai.credits", featuredomain.FeatureKindLimited, featuredomain.ResetTypeNone)
	ws := env.node.Generate()

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = env.svc.Record(context.Background(), domain.RecordRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits", Quantity: 1,
			})
		}()
	}
	wg.Wait()

	used, _, err := env.svc.UsedInPeriod(context.Background(), ws, "ai.credits", featuredomain.ResetTypeNone)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), used)
}

func TestRecordWritesJournalEvent(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "ai.credits", featuredomain.FeatureKindLimited, featuredomain.ResetTypeNone)
	ws := env.node.Generate()

	require.NoError(t, env.svc.Record(context.Background(), domain.RecordRequest{
		WorkspaceID: ws.String(),
		FeatureCode: "ai.credits",
		Quantity:    2,
		Actor:       "api-key:123",
	}))

	var events []domain.UsageEvent
	require.NoError(t, env.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, ws, events[0].WorkspaceID)
	assert.Equal(t, int64(2), events[0].Quantity)
	assert.Equal(t, "api-key:123", events[0].Actor)
	assert.Equal(t, domain.AllTimePeriodKey, events[0].PeriodKey)
}

func TestConsumeWithinLimitStopsAtBoundary(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "ai.credits", featuredomain.FeatureKindLimited, featuredomain.ResetTypeNone)
	ws := env.node.Generate()

	req := domain.ConsumeRequest{
		WorkspaceID: ws,
		FeatureCode: "ai.credits",
		Reset:       featuredomain.ResetTypeNone,
		Quantity:    4,
		Limit:       10,
	}

	applied, used, err := env.svc.ConsumeWithinLimit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(4), used)

	applied, used, err = env.svc.ConsumeWithinLimit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(8), used)

	// 8 + 4 would exceed 10; the counter must not move.
	applied, used, err = env.svc.ConsumeWithinLimit(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(8), used)

	// An exact fit is still accepted.
	req.Quantity = 2
	applied, used, err = env.svc.ConsumeWithinLimit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(10), used)
}

func TestConsumeWithinLimitFirstRequestOverLimit(t *testing.T) {
	env := newLedgerEnv(t)
	env.createFeature(t, "ai.credits", featuredomain.FeatureKindLimited, featuredomain.ResetTypeNone)
	ws := env.node.Generate()

	applied, used, err := env.svc.ConsumeWithinLimit(context.Background(), domain.ConsumeRequest{
		WorkspaceID: ws,
		FeatureCode: "ai.credits",
		Reset:       featuredomain.ResetTypeNone,
		Quantity:    11,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(0), used)
}

func TestPeriodKeys(t *testing.T) {
	at := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "all", domain.AllTimePeriodKey)
	assert.Equal(t, "2024-03-10", domain.DailyPeriodKey(at))
	assert.Equal(t, "2024-03", domain.MonthlyPeriodKey(at))

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "cycle:1709251200", domain.CyclePeriodKey(start))
}
