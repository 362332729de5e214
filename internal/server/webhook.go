package server

import (
	"io"
	"net/http"

	stripeadapter "github.com/galette-community/plugin-stripe/internal/payment/adapters/stripe"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody bounds a Stripe event payload.
const maxWebhookBody = 1 << 20

// HandleStripeWebhook answers Stripe with a plain-text body. The status code
// alone drives Stripe's retry behaviour.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		s.log.Warn("failed to read webhook body", zap.Error(err))
		c.Set("webhook_outcome", "unreadable")
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	signatures := c.Request.Header.Values(stripeadapter.SignatureHeader)
	res := s.webhookSvc.Handle(c.Request.Context(), payload, signatures)

	c.Set("webhook_outcome", string(res.Outcome))
	if res.EntryID != 0 {
		c.Header("X-History-Entry", res.EntryID.String())
	}
	c.String(res.Status, res.Message)
}
