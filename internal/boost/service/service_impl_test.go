package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/entitle/internal/boost/domain"
	boostrepo "github.com/smallbiznis/entitle/internal/boost/repository"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/cycle"
	cycledomain "github.com/smallbiznis/entitle/internal/cycle/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	featurerepo "github.com/smallbiznis/entitle/internal/feature/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type boostEnv struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	cycles *cycle.FixedProvider
	svc    domain.Service
}

func newBoostEnv(t *testing.T) *boostEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(&featuredomain.Feature{}, &domain.Boost{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	cycles := &cycle.FixedProvider{Err: cycledomain.ErrNoOpenCycle}

	svc := New(Params{
		DB:          gdb,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        boostrepo.Provide(),
		FeatureRepo: featurerepo.Provide(),
		Cycles:      cycles,
	})

	env := &boostEnv{db: gdb, node: node, clock: clk, cycles: cycles, svc: svc}

	now := time.Now().UTC()
	require.NoError(t, gdb.Create(&featuredomain.Feature{
		ID:        node.Generate(),
		Code:      "ai.credits",
		Name:      "ai.credits",
		Kind:      featuredomain.FeatureKindLimited,
		ResetType: featuredomain.ResetTypeMonthly,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	return env
}

func limitValue(v int64) *int64 { return &v }

func TestProvisionBoostUnknownFeature(t *testing.T) {
	env := newBoostEnv(t)
	ws := env.node.Generate()

	_, err := env.svc.ProvisionBoost(context.Background(), domain.ProvisionRequest{
		WorkspaceID:  ws.String(),
		FeatureCode:  "missing",
		Type:         domain.BoostTypeEnable,
		DurationType: domain.DurationTypePermanent,
	})
	assert.ErrorIs(t, err, featuredomain.ErrUnknownFeature)
}

func TestProvisionBoostValidation(t *testing.T) {
	env := newBoostEnv(t)
	ws := env.node.Generate()
	future := env.clock.Now().Add(time.Hour)
	past := env.clock.Now().Add(-time.Hour)

	cases := []struct {
		name string
		req  domain.ProvisionRequest
		want error
	}{
		{
			name: "invalid workspace",
			req: domain.ProvisionRequest{
				WorkspaceID: "abc", FeatureCode: "ai.credits",
				Type: domain.BoostTypeEnable, DurationType: domain.DurationTypePermanent,
			},
			want: domain.ErrInvalidWorkspace,
		},
		{
			name: "unknown boost type",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: "mystery", DurationType: domain.DurationTypePermanent,
			},
			want: domain.ErrInvalidBoostType,
		},
		{
			name: "add_limit without value",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: domain.BoostTypeAddLimit, DurationType: domain.DurationTypePermanent,
			},
			want: domain.ErrInvalidLimitValue,
		},
		{
			name: "add_limit non-positive value",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: domain.BoostTypeAddLimit, LimitValue: limitValue(0),
				DurationType: domain.DurationTypePermanent,
			},
			want: domain.ErrInvalidLimitValue,
		},
		{
			name: "permanent with expiry",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: domain.BoostTypeEnable, DurationType: domain.DurationTypePermanent,
				ExpiresAt: &future,
			},
			want: domain.ErrUnexpectedExpiry,
		},
		{
			name: "duration without expiry",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: domain.BoostTypeEnable, DurationType: domain.DurationTypeDuration,
			},
			want: domain.ErrMissingExpiry,
		},
		{
			name: "duration with past expiry",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: domain.BoostTypeEnable, DurationType: domain.DurationTypeDuration,
				ExpiresAt: &past,
			},
			want: domain.ErrMissingExpiry,
		},
		{
			name: "cycle_bound without open cycle",
			req: domain.ProvisionRequest{
				WorkspaceID: ws.String(), FeatureCode: "ai.credits",
				Type: domain.BoostTypeEnable, DurationType: domain.DurationTypeCycleBound,
			},
			want: domain.ErrMissingExpiry,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.ProvisionBoost(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestProvisionBoostCycleBoundStampsExpiry(t *testing.T) {
	env := newBoostEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	env.cycles.Cycle = cycledomain.Cycle{Start: start, End: end}
	env.cycles.Err = nil
	ws := env.node.Generate()

	resp, err := env.svc.ProvisionBoost(context.Background(), domain.ProvisionRequest{
		WorkspaceID:  ws.String(),
		FeatureCode:  "ai.credits",
		Type:         domain.BoostTypeAddLimit,
		LimitValue:   limitValue(100),
		DurationType: domain.DurationTypeCycleBound,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, resp.ExpiresAt.Equal(end))
}

func TestProvisionBoostNeverDeduplicates(t *testing.T) {
	env := newBoostEnv(t)
	ws := env.node.Generate()

	req := domain.ProvisionRequest{
		WorkspaceID:  ws.String(),
		FeatureCode:  "ai.credits",
		Type:         domain.BoostTypeAddLimit,
		LimitValue:   limitValue(50),
		DurationType: domain.DurationTypePermanent,
	}

	first, err := env.svc.ProvisionBoost(context.Background(), req)
	require.NoError(t, err)
	second, err := env.svc.ProvisionBoost(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	active, err := env.svc.ActiveBoosts(context.Background(), ws.String())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestCancelBoost(t *testing.T) {
	env := newBoostEnv(t)
	ws := env.node.Generate()

	resp, err := env.svc.ProvisionBoost(context.Background(), domain.ProvisionRequest{
		WorkspaceID:  ws.String(),
		FeatureCode:  "ai.credits",
		Type:         domain.BoostTypeUnlimited,
		DurationType: domain.DurationTypePermanent,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.CancelBoost(context.Background(), resp.ID))
	// Cancelling again is a no-op, not an error.
	require.NoError(t, env.svc.CancelBoost(context.Background(), resp.ID))

	active, err := env.svc.ActiveBoosts(context.Background(), ws.String())
	require.NoError(t, err)
	assert.Empty(t, active)

	err = env.svc.CancelBoost(context.Background(), env.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActiveBoostsExcludesExpired(t *testing.T) {
	env := newBoostEnv(t)
	ws := env.node.Generate()

	soon := env.clock.Now().Add(time.Hour)
	_, err := env.svc.ProvisionBoost(context.Background(), domain.ProvisionRequest{
		WorkspaceID:  ws.String(),
		FeatureCode:  "ai.credits",
		Type:         domain.BoostTypeAddLimit,
		LimitValue:   limitValue(10),
		DurationType: domain.DurationTypeDuration,
		ExpiresAt:    &soon,
	})
	require.NoError(t, err)
	_, err = env.svc.ProvisionBoost(context.Background(), domain.ProvisionRequest{
		WorkspaceID:  ws.String(),
		FeatureCode:  "ai.credits",
		Type:         domain.BoostTypeEnable,
		DurationType: domain.DurationTypePermanent,
	})
	require.NoError(t, err)

	active, err := env.svc.ActiveBoosts(context.Background(), ws.String())
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// Only live rows come back after expiry, sweep or no sweep.
	env.clock.Advance(2 * time.Hour)
	active, err = env.svc.ActiveBoosts(context.Background(), ws.String())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.BoostTypeEnable, active[0].Type)
}
