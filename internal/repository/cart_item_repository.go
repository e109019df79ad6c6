package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	//同一（商品・色）は数量加算
	UpsertByCartProductColor(ctx context.Context, cartID int64, productID int64, color string, qty int64, unitPrice int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
