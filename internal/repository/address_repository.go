package repository

import (
	"context"

	"app/internal/domain/model"
)

type AddressRepository interface {
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)
	Create(ctx context.Context, a model.Address) (int64, error)
	Update(ctx context.Context, a model.Address) error
	Delete(ctx context.Context, addressID int64) error
	//デフォルトを付け替える（他はfalseに落とす）
	SetDefault(ctx context.Context, userID int64, addressID int64) error
}
