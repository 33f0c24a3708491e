package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"hireloop-billing/pkg/config"
	"hireloop-billing/pkg/db"
	"hireloop-billing/pkg/health"
	"hireloop-billing/pkg/logger"
	"hireloop-billing/pkg/payment"
	"hireloop-billing/pkg/redis"
	"hireloop-billing/pkg/sequence"
	"hireloop-billing/pkg/server"
	"hireloop-billing/pkg/task"
	"hireloop-billing/services/connect"
	"hireloop-billing/services/escrow"
	"hireloop-billing/services/payout"
	"hireloop-billing/services/schedule"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		task.Client,
		task.Server,
		payment.Module,
		health.Module,
		fx.Provide(provideSnowflakeNode),
		server.Module,
		connect.Module,
		payout.Module,
		escrow.Module,
		escrow.Worker,
		schedule.Module,
		schedule.Worker,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
