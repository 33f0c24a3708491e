package schedule

import (
	"net/http"
	"time"

	"hireloop-billing/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.POST("/payouts/schedule", h.create)
}

type schedulePayoutRequest struct {
	PlacementID   string    `json:"placement_id" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	TriggerEvent  string    `json:"trigger_event" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req schedulePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	sch, err := h.svc.Schedule(c.Request.Context(), ScheduleInput{
		PlacementID:   req.PlacementID,
		ScheduledDate: req.ScheduledDate,
		TriggerEvent:  req.TriggerEvent,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sch)
}
