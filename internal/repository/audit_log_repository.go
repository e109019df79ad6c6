package repository

import (
	"context"

	"app/internal/domain/model"
)

type AuditLogListFilter struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	ResourceType string
}

type AuditLogRepository interface {
	Create(ctx context.Context, l model.AuditLog) error
	List(ctx context.Context, f AuditLogListFilter) ([]model.AuditLog, int64, error)
}
