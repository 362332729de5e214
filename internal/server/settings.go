package server

import (
	"net/http"

	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	"github.com/galette-community/plugin-stripe/internal/audit/masking"
	"github.com/galette-community/plugin-stripe/internal/authorization"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) GetSettings(c *gin.Context) {
	view, err := s.settingsSvc.View(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdateSettings applies a partial update. Keys, webhook secret, country and
// currency need the credentials grant on top of settings.update.
func (s *Server) UpdateSettings(c *gin.Context) {
	var req settingsdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	principal, ok := principalFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if req.TouchesCredentials() {
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, authorization.ObjectSettings, authorization.ActionSettingsCredentials); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	res := s.settingsSvc.Update(c.Request.Context(), req)
	if len(res.Errors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors:  asValidationErrors(fieldErrorsToValidation(res.Errors)).Errors,
			},
			"input":    res.Input,
			"settings": res.Settings,
		})
		return
	}
	if res.Err != nil {
		AbortWithError(c, res.Err)
		return
	}

	s.auditSettingsChange(c, req)
	c.JSON(http.StatusOK, res.Settings)
}

func (s *Server) auditSettingsChange(c *gin.Context, req settingsdomain.UpdateRequest) {
	changes := map[string]any{}
	if req.PublicKey != nil {
		changes["public_key"] = *req.PublicKey
	}
	if req.PrivateKey != nil {
		changes["private_key"] = *req.PrivateKey
	}
	if req.WebhookSecret != nil {
		changes["webhook_secret"] = *req.WebhookSecret
	}
	if req.Country != nil {
		changes["country"] = *req.Country
	}
	if req.Currency != nil {
		changes["currency"] = *req.Currency
	}
	if req.InactiveTierIDs != nil {
		changes["inactive_tier_ids"] = *req.InactiveTierIDs
	}
	if len(changes) == 0 {
		return
	}

	target := "stripe"
	metadata := masking.MaskFields(changes, "private_key", "webhook_secret")
	if err := s.auditSvc.AuditLog(c.Request.Context(), "", nil, auditdomain.ActionSettingsUpdated, "settings", &target, metadata); err != nil {
		s.log.Warn("settings audit failed", zap.Error(err))
	}
}
