package server

import (
	"net/http"

	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type updatePriceTiersRequest struct {
	Tiers []pricetierdomain.AmountUpdate `json:"tiers"`
}

func (s *Server) ListPriceTiers(c *gin.Context) {
	tiers, err := s.priceTierSvc.List(c.Request.Context(), pricetierdomain.ListRequest{})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tiers})
}

func (s *Server) UpdatePriceTierAmounts(c *gin.Context) {
	var req updatePriceTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Tiers) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	tiers, err := s.priceTierSvc.UpdateAmounts(c.Request.Context(), req.Tiers)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	amounts := make(map[string]any, len(req.Tiers))
	for _, t := range req.Tiers {
		var value any
		if t.Amount != nil {
			value = t.Amount.String()
		}
		amounts[formatInt(t.ID)] = value
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), "", nil, auditdomain.ActionPriceTiersUpdated, "price_tier", nil, map[string]any{
		"amounts": amounts,
	}); err != nil {
		s.log.Warn("price tier audit failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"data": tiers})
}
