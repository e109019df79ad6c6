package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type ActivityLogGormRepository struct {
	db *gorm.DB
}

func NewActivityLogGormRepository(db *gorm.DB) *ActivityLogGormRepository {
	return &ActivityLogGormRepository{db: db}
}

func (r *ActivityLogGormRepository) Create(ctx context.Context, l model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(&l).Error
}

func (r *ActivityLogGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.ActivityLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.ActivityLog{}, 0, err
	}

	var items []model.ActivityLog
	offset := (page - 1) * limit
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.ActivityLog{}, 0, err
	}

	return items, total, nil
}
