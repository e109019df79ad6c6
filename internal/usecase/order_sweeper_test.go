package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newSweeperForTest(ttl time.Duration) (*OrderSweeper, *orderRepoMock, *orderItemRepoMock, *inventoryRepoMock) {
	orders := &orderRepoMock{}
	orderItems := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}

	txm := &txManagerMock{Repos: &txReposMock{
		orders:     orders,
		orderItems: orderItems,
		inventory:  inventory,
	}}
	txm.On("WithinTx", mock.Anything).Return(nil).Maybe()

	s := NewOrderSweeper(txm, orders, testClock(), testLogger(), ttl, time.Minute)
	return s, orders, orderItems, inventory
}

func TestSweepOnce_DeletesStaleOrdersAndRestoresStock(t *testing.T) {
	s, orders, orderItems, inventory := newSweeperForTest(30 * time.Minute)
	cutoff := testClock().Now().Add(-30 * time.Minute)

	orders.On("ListStalePendingPayment", mock.Anything, cutoff, sweepBatchSize).Return([]int64{5, 6}, nil)

	orderItems.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{
		{ProductID: 10, Quantity: 2},
	}, nil)
	orders.On("DeleteIfPendingPayment", mock.Anything, int64(5)).Return(true, nil)
	inventory.On("IncreaseStock", mock.Anything, int64(10), int64(2)).Return(nil)
	orderItems.On("DeleteByOrderID", mock.Anything, int64(5)).Return(nil)

	orderItems.On("ListByOrderID", mock.Anything, int64(6)).Return([]model.OrderItem{
		{ProductID: 11, Quantity: 1},
	}, nil)
	orders.On("DeleteIfPendingPayment", mock.Anything, int64(6)).Return(true, nil)
	inventory.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)
	orderItems.On("DeleteByOrderID", mock.Anything, int64(6)).Return(nil)

	err := s.SweepOnce(context.Background())

	assert.NoError(t, err)
	inventory.AssertNumberOfCalls(t, "IncreaseStock", 2)
}

func TestSweepOnce_SkipsOrderConfirmedMeanwhile(t *testing.T) {
	s, orders, orderItems, inventory := newSweeperForTest(30 * time.Minute)

	orders.On("ListStalePendingPayment", mock.Anything, mock.Anything, sweepBatchSize).Return([]int64{5}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{
		{ProductID: 10, Quantity: 2},
	}, nil)
	//掃除とcallbackが競合してもう確定していた
	orders.On("DeleteIfPendingPayment", mock.Anything, int64(5)).Return(false, nil)

	err := s.SweepOnce(context.Background())

	assert.NoError(t, err)
	inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	orderItems.AssertNotCalled(t, "DeleteByOrderID", mock.Anything, mock.Anything)
}

func TestSweepOnce_OneFailureDoesNotStopTheRest(t *testing.T) {
	s, orders, orderItems, inventory := newSweeperForTest(30 * time.Minute)

	orders.On("ListStalePendingPayment", mock.Anything, mock.Anything, sweepBatchSize).Return([]int64{5, 6}, nil)

	orderItems.On("ListByOrderID", mock.Anything, int64(5)).Return(nil, errors.New("db down"))

	orderItems.On("ListByOrderID", mock.Anything, int64(6)).Return([]model.OrderItem{
		{ProductID: 11, Quantity: 1},
	}, nil)
	orders.On("DeleteIfPendingPayment", mock.Anything, int64(6)).Return(true, nil)
	inventory.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)
	orderItems.On("DeleteByOrderID", mock.Anything, int64(6)).Return(nil)

	err := s.SweepOnce(context.Background())

	assert.NoError(t, err)
	orders.AssertCalled(t, "DeleteIfPendingPayment", mock.Anything, int64(6))
}
