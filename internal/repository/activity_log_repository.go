package repository

import (
	"context"

	"app/internal/domain/model"
)

type ActivityLogRepository interface {
	Create(ctx context.Context, l model.ActivityLog) error
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.ActivityLog, int64, error)
}
