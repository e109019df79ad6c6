package repository

import (
	"context"

	"app/internal/domain/model"
)

type ListProductsFilter struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	Color      string
	MinPrice   *int64
	MaxPrice   *int64
	//"price_asc" / "price_desc" / "newest"
	Sort string
	//公開APIは true（非公開商品を隠す）
	OnlyActive bool
}

type ProductRepository interface {
	FindByID(ctx context.Context, productID int64) (model.Product, error)
	List(ctx context.Context, f ListProductsFilter) ([]model.Product, int64, error)
	Create(ctx context.Context, p model.Product) (int64, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, productID int64) error
}
