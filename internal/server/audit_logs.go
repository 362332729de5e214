package server

import (
	"net/http"
	"strconv"
	"strings"

	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	"github.com/galette-community/plugin-stripe/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
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
	startAt, err := parseOptionalTime(c.Query("start_at"), false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start time"))
		return
	}
	endAt, err := parseOptionalTime(c.Query("end_at"), true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end time"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{Page: page, PageSize: pageSize},
		Action:     strings.TrimSpace(c.Query("action")),
		ActorType:  strings.TrimSpace(c.Query("actor_type")),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
