package main

import (
	"github.com/brightlearn/campus/internal/clock"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/internal/observability"
	"github.com/brightlearn/campus/internal/server"
	"github.com/brightlearn/campus/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
