package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	"github.com/galette-community/plugin-stripe/internal/providers/pdf"
	referencedomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) ListHistory(c *gin.Context) {
	order, err := parseOrder(c.Query("order"))
	if err != nil {
		AbortWithError(c, newValidationError("order", "invalid_order", "order must be asc or desc"))
		return
	}
	page, err := parseOptionalInt(c.Query("page"))
	if err != nil {
		AbortWithError(c, newValidationError("page", "invalid_page", "invalid page"))
		return
	}
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListRequest{
		Order:    order,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetHistoryEntry(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	entry, err := s.ledgerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ledgerdomain.EntryView{
		Entry:      entry,
		StateLabel: entry.State.String(),
	})
}

// GetHistoryReceipt renders a PDF receipt for a processed payment.
func (s *Server) GetHistoryReceipt(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	entry, err := s.ledgerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if entry.State != ledgerdomain.StateProcessed {
		AbortWithError(c, ErrNotFound)
		return
	}

	data := receiptFromEntry(s.cfg.Receipt.OrganizationName, entry)
	reader, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	target := entry.ID.String()
	if err := s.auditSvc.AuditLog(c.Request.Context(), "", nil, auditdomain.ActionHistoryReceiptIssued, "history", &target, map[string]any{
		"intent_id": entry.IntentID,
	}); err != nil {
		s.log.Warn("receipt audit failed", zap.Error(err))
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename(data)))
	c.Data(http.StatusOK, "application/pdf", body)
}

func receiptFromEntry(orgName string, entry ledgerdomain.Entry) pdf.ReceiptData {
	return pdf.ReceiptData{
		OrgName:     orgName,
		Number:      entry.ID.String(),
		Reference:   entry.IntentID,
		DatePaid:    entry.ReceivedAt.UTC().Format("2006-01-02"),
		PayerName:   entry.PayerName,
		Description: entry.Comment,
		EventType:   entry.EventType,
		Amount:      formatAmount(entry),
	}
}

func formatAmount(entry ledgerdomain.Entry) string {
	places := int32(2)
	if referencedomain.IsZeroDecimalCurrency(entry.Currency) {
		places = 0
	}
	amount := entry.Amount.StringFixed(places)
	if entry.Currency == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(entry.Currency)
}
