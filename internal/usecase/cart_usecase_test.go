package usecase

import (
	"context"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCartUsecaseForTest() (*CartUsecase, *cartRepoMock, *cartItemRepoMock, *productRepoMock) {
	carts := &cartRepoMock{}
	items := &cartItemRepoMock{}
	products := &productRepoMock{}
	return NewCartUsecase(carts, items, products), carts, items, products
}

func TestAddToCart_InvalidColorRejected(t *testing.T) {
	uc, carts, _, products := newCartUsecaseForTest()

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Oak Table", Price: 5000, Stock: 5, IsActive: true,
		Colors: []string{"Oak", "Walnut"},
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{
		ProductID: 10, Color: "Neon Pink", Quantity: 1,
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}

func TestAddToCart_InactiveProductRejected(t *testing.T) {
	uc, carts, _, products := newCartUsecaseForTest()

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Price: 5000, Stock: 5, IsActive: false,
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{
		ProductID: 10, Quantity: 1,
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}

func TestAddToCart_StockBoundCountsExistingQuantity(t *testing.T) {
	uc, carts, items, products := newCartUsecaseForTest()

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Oak Table", Price: 5000, Stock: 5, IsActive: true,
		Colors: []string{"Oak"},
	}, nil)
	//すでに4個入っている
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 100, CartID: 3, ProductID: 10, Color: "Oak", Quantity: 4, UnitPriceSnapshot: 5000},
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{
		ProductID: 10, Color: "Oak", Quantity: 2,
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	items.AssertNotCalled(t, "UpsertByCartProductColor",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToCart_SameProductColorAccumulates(t *testing.T) {
	uc, carts, items, products := newCartUsecaseForTest()

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Oak Table", Price: 5000, Stock: 10, IsActive: true,
		Colors: []string{"Oak"},
	}, nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 100, CartID: 3, ProductID: 10, Color: "Oak", Quantity: 2, UnitPriceSnapshot: 5000},
	}, nil).Once()
	items.On("UpsertByCartProductColor", mock.Anything, int64(3), int64(10), "Oak", int64(3), int64(5000)).Return(nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 100, CartID: 3, ProductID: 10, Color: "Oak", Quantity: 5, UnitPriceSnapshot: 5000},
	}, nil)

	out, err := uc.AddToCart(context.Background(), 1, AddCartInput{
		ProductID: 10, Color: "Oak", Quantity: 3,
	})

	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(5), out.Items[0].Quantity)
	assert.Equal(t, int64(25000), out.Total)
}

func TestUpdateCartItem_NotOwnedLooksLikeMissing(t *testing.T) {
	uc, _, items, _ := newCartUsecaseForTest()

	items.On("IsOwnedByUser", mock.Anything, int64(100), int64(2)).Return(false, nil)

	_, err := uc.UpdateCartItem(context.Background(), 2, 100, UpdateCartItemInput{Quantity: 1})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	//他人の明細は404で隠す
	assert.Equal(t, 404, he.Status)
}

func TestGetCart_TotalSkipsInactiveProducts(t *testing.T) {
	uc, carts, items, products := newCartUsecaseForTest()

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{ID: 100, ProductID: 10, Quantity: 2, UnitPriceSnapshot: 5000},
		{ID: 101, ProductID: 11, Quantity: 1, UnitPriceSnapshot: 9999},
	}, nil)
	products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Oak Table", IsActive: true,
	}, nil)
	//非公開になった商品は合計から外れる
	products.On("FindByID", mock.Anything, int64(11)).Return(model.Product{
		ID: 11, Name: "Old Sofa", IsActive: false,
	}, nil)

	out, err := uc.GetCart(context.Background(), 1)

	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(10000), out.Total)
}

func TestClearCart_EmptiesItems(t *testing.T) {
	uc, carts, _, _ := newCartUsecaseForTest()

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	carts.On("Clear", mock.Anything, int64(3)).Return(nil)

	out, err := uc.ClearCart(context.Background(), 1)

	assert.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.Total)
	carts.AssertCalled(t, "Clear", mock.Anything, int64(3))
}
