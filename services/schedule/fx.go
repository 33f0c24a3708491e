package schedule

import (
	"hireloop-billing/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("schedule.service",
	fx.Provide(NewService, NewHandler, NewScheduler),
	fx.Invoke(RegisterRoutes, StartScheduler),
)

var Worker = fx.Module("schedule.worker",
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.PayoutScheduleSweep, svc.HandleSweepTask)
}
