package repository

import (
	"context"

	"app/internal/domain/model"
)

type InventoryRepository interface {
	//在庫減算（足りないなら false）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
	IncreaseStock(ctx context.Context, productID int64, qty int64) error
	SetStock(ctx context.Context, productID int64, newStock int64) error

	RecordAdjustment(ctx context.Context, adj model.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error)
}
