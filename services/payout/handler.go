package payout

import (
	"net/http"

	"hireloop-billing/pkg/db/pagination"
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
	r.POST("/payouts", h.create)
	r.GET("/payouts/:id", h.get)
	r.POST("/payouts/:id/process", h.process)
	r.POST("/payouts/:id/splits", h.addSplits)
	r.GET("/payouts/:id/audit-log", h.auditLog)
	r.GET("/recruiters/:id/payouts", h.listByRecruiter)
	r.GET("/placements/:id/payouts", h.listByPlacement)
}

type createPayoutRequest struct {
	PlacementID       string  `json:"placement_id" binding:"required"`
	RecruiterID       string  `json:"recruiter_id" binding:"required"`
	PlacementFee      float64 `json:"placement_fee"`
	RecruiterSharePct float64 `json:"recruiter_share_pct"`
	Amount            float64 `json:"amount"`
	HoldbackAmount    float64 `json:"holdback_amount"`
	CreatedBy         string  `json:"created_by"`
}

func (h *Handler) create(c *gin.Context) {
	var req createPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), CreatePayoutInput{
		PlacementID:       req.PlacementID,
		RecruiterID:       req.RecruiterID,
		PlacementFee:      req.PlacementFee,
		RecruiterSharePct: req.RecruiterSharePct,
		Amount:            req.Amount,
		HoldbackAmount:    req.HoldbackAmount,
		CreatedBy:         req.CreatedBy,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) process(c *gin.Context) {
	p, err := h.svc.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type addSplitsRequest struct {
	Splits []struct {
		RecruiterID string  `json:"recruiter_id" binding:"required"`
		Percentage  float64 `json:"percentage"`
		Amount      float64 `json:"amount"`
	} `json:"splits" binding:"required,min=1"`
}

func (h *Handler) addSplits(c *gin.Context) {
	var req addSplitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	inputs := make([]SplitInput, 0, len(req.Splits))
	for _, s := range req.Splits {
		inputs = append(inputs, SplitInput{
			RecruiterID: s.RecruiterID,
			Percentage:  s.Percentage,
			Amount:      s.Amount,
		})
	}

	splits, err := h.svc.AddSplits(c.Request.Context(), c.Param("id"), inputs)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, splits)
}

func (h *Handler) auditLog(c *gin.Context) {
	entries, err := h.svc.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) listByRecruiter(c *gin.Context) {
	h.list(c, &Payout{RecruiterID: c.Param("id")})
}

func (h *Handler) listByPlacement(c *gin.Context) {
	h.list(c, &Payout{PlacementID: c.Param("id")})
}

func (h *Handler) list(c *gin.Context, query *Payout) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	payouts, pageInfo, err := h.svc.List(c.Request.Context(), query, page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payouts, "page_info": pageInfo})
}
