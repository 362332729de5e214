package server

import (
	"errors"
	"net/http"

	"github.com/galette-community/plugin-stripe/internal/payment/checkout"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/gin-gonic/gin"
)

type publicConfigResponse struct {
	PublishableKey string `json:"publishable_key"`
	Country        string `json:"country"`
	Currency       string `json:"currency"`
	Configured     bool   `json:"configured"`
}

func (s *Server) GetPublicConfig(c *gin.Context) {
	cfg, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil && !errors.Is(err, settingsdomain.ErrNotConfigured) {
		AbortWithError(c, err)
		return
	}

	resp := publicConfigResponse{
		Country:    cfg.Country,
		Currency:   cfg.Currency,
		Configured: cfg.Configured(),
	}
	if resp.Configured {
		resp.PublishableKey = cfg.PublicKey
	}
	c.JSON(http.StatusOK, resp)
}

// ListPublicPriceTiers lists what the payment form may offer. Without a
// member_id only donation tiers are listed.
func (s *Server) ListPublicPriceTiers(c *gin.Context) {
	memberID, err := parseOptionalInt(c.Query("member_id"))
	if err != nil {
		AbortWithError(c, newValidationError("member_id", "invalid_member_id", "invalid member id"))
		return
	}

	tiers, err := s.priceTierSvc.List(c.Request.Context(), pricetierdomain.ListRequest{
		OnlyActive: true,
		OnlyPriced: true,
		Anonymous:  memberID == 0,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tiers})
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.ItemID <= 0 {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "item is required"))
		return
	}
	if req.MemberID != nil && *req.MemberID <= 0 {
		AbortWithError(c, newValidationError("member_id", "invalid_member_id", "invalid member id"))
		return
	}
	req.ClientKey = c.ClientIP()

	resp, err := s.checkoutSvc.CreateIntent(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
