package connect

import (
	"hireloop-billing/services/payout"

	"go.uber.org/fx"
)

var Module = fx.Module("connect.service",
	fx.Provide(
		NewService,
		NewHandler,
		func(s *Service) payout.AccountResolver { return s },
	),
	fx.Invoke(RegisterRoutes),
)
