package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	boostdomain "github.com/smallbiznis/entitle/internal/boost/domain"
	boostrepo "github.com/smallbiznis/entitle/internal/boost/repository"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSweepEnv(t *testing.T, batchSize int) (*Scheduler, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(&boostdomain.Boost{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	sched, err := New(Params{
		DB:        gdb,
		Log:       zap.NewNop(),
		Config:    config.Config{SweepInterval: time.Minute, SweepBatchSize: batchSize},
		Clock:     clk,
		BoostRepo: boostrepo.Provide(),
	})
	require.NoError(t, err)

	return sched, gdb, node, clk
}

func insertBoost(t *testing.T, gdb *gorm.DB, node *snowflake.Node, duration boostdomain.DurationType, expiresAt *time.Time) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	record := &boostdomain.Boost{
		ID:           node.Generate(),
		WorkspaceID:  node.Generate(),
		FeatureCode:  "ai.credits",
		Type:         boostdomain.BoostTypeAddLimit,
		LimitValue:   func(v int64) *int64 { return &v }(10),
		DurationType: duration,
		ExpiresAt:    expiresAt,
		Status:       boostdomain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, gdb.Create(record).Error)
	return record.ID
}

func TestRunOnceCancelsOnlyExpired(t *testing.T) {
	sched, gdb, node, clk := newSweepEnv(t, 500)

	past := clk.Now().Add(-time.Hour)
	future := clk.Now().Add(time.Hour)

	expired := insertBoost(t, gdb, node, boostdomain.DurationTypeDuration, &past)
	live := insertBoost(t, gdb, node, boostdomain.DurationTypeDuration, &future)
	permanent := insertBoost(t, gdb, node, boostdomain.DurationTypePermanent, nil)

	require.NoError(t, sched.RunOnce(context.Background()))

	statuses := map[snowflake.ID]boostdomain.Status{}
	var rows []boostdomain.Boost
	require.NoError(t, gdb.Find(&rows).Error)
	for _, row := range rows {
		statuses[row.ID] = row.Status
	}

	assert.Equal(t, boostdomain.StatusCancelled, statuses[expired])
	assert.Equal(t, boostdomain.StatusActive, statuses[live])
	assert.Equal(t, boostdomain.StatusActive, statuses[permanent])
}

func TestRunOnceDrainsBacklogBeyondBatchSize(t *testing.T) {
	sched, gdb, node, clk := newSweepEnv(t, 2)

	past := clk.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		insertBoost(t, gdb, node, boostdomain.DurationTypeDuration, &past)
	}

	require.NoError(t, sched.RunOnce(context.Background()))

	var remaining int64
	require.NoError(t, gdb.Model(&boostdomain.Boost{}).
		Where("status = ?", boostdomain.StatusActive).
		Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	sched, gdb, node, clk := newSweepEnv(t, 500)

	past := clk.Now().Add(-time.Minute)
	insertBoost(t, gdb, node, boostdomain.DurationTypeDuration, &past)

	require.NoError(t, sched.RunOnce(context.Background()))
	require.NoError(t, sched.RunOnce(context.Background()))

	var cancelled int64
	require.NoError(t, gdb.Model(&boostdomain.Boost{}).
		Where("status = ?", boostdomain.StatusCancelled).
		Count(&cancelled).Error)
	assert.Equal(t, int64(1), cancelled)
}
