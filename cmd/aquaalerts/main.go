package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/smallbiznis/aquaalerts/internal/migration"
	"github.com/smallbiznis/aquaalerts/internal/observability"
	"github.com/smallbiznis/aquaalerts/internal/server"
	"github.com/smallbiznis/aquaalerts/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and the domains behind it
		server.Module,
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
