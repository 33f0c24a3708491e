package escrow

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
	r.POST("/escrow/holds", h.create)
	r.GET("/escrow/holds/:id", h.get)
	r.POST("/escrow/holds/:id/release", h.release)
}

type createHoldRequest struct {
	PlacementID string     `json:"placement_id" binding:"required"`
	PayoutID    string     `json:"payout_id"`
	Amount      float64    `json:"amount"`
	Reason      string     `json:"reason"`
	ReleaseDate *time.Time `json:"release_date"`
}

func (h *Handler) create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	hold, err := h.svc.CreateHold(c.Request.Context(), CreateHoldInput{
		PlacementID: req.PlacementID,
		PayoutID:    req.PayoutID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		ReleaseDate: req.ReleaseDate,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, hold)
}

func (h *Handler) get(c *gin.Context) {
	hold, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

type releaseHoldRequest struct {
	ReleasedBy string `json:"released_by" binding:"required"`
}

func (h *Handler) release(c *gin.Context) {
	var req releaseHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	hold, err := h.svc.ReleaseHold(c.Request.Context(), c.Param("id"), req.ReleasedBy)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, hold)
}
