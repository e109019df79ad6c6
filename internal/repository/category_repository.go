package repository

import (
	"context"

	"app/internal/domain/model"
)

type CategoryRepository interface {
	FindByID(ctx context.Context, categoryID int64) (model.Category, error)
	ListAll(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, c model.Category) (int64, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, categoryID int64) error
}
