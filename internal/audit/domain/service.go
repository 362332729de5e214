package domain

import (
	"context"
	"errors"
	"time"

	"github.com/galette-community/plugin-stripe/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action    string
	ActorType string
	StartAt   *time.Time
	EndAt     *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type ListFilter struct {
	Action    string
	ActorType string
	StartAt   *time.Time
	EndAt     *time.Time
	Offset    int
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, int64, error)
}

type Service interface {
	// AuditLog records an action. An empty actorType falls back to the
	// actor carried by ctx, then to system.
	AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
