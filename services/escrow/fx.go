package escrow

import (
	"hireloop-billing/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("escrow.service",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("escrow.worker",
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.EscrowReleaseDue, svc.HandleReleaseDueTask)
}
