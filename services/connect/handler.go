package connect

import (
	"net/http"

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
	r.POST("/stripe/connect/onboard", h.onboard)
	r.GET("/stripe/connect/status/:accountId", h.status)
}

type onboardRequest struct {
	RecruiterID string `json:"recruiter_id" binding:"required"`
}

func (h *Handler) onboard(c *gin.Context) {
	var req onboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	result, err := h.svc.Onboard(c.Request.Context(), req.RecruiterID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}
