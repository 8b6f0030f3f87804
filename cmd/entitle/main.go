package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/smallbiznis/entitle/internal/logger"
	"github.com/smallbiznis/entitle/internal/migration"
	"github.com/smallbiznis/entitle/internal/observability/metrics"
	"github.com/smallbiznis/entitle/internal/scheduler"
	"github.com/smallbiznis/entitle/internal/server"
	"github.com/smallbiznis/entitle/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		// Domain modules and HTTP surface
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
