package usecase

import (
	"context"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newAdminOrderUsecaseForTest() (*AdminOrderUsecase, *orderRepoMock, *orderItemRepoMock, *inventoryRepoMock, *auditLogRepoMock) {
	orders := &orderRepoMock{}
	orderItems := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}
	audits := &auditLogRepoMock{}

	txm := &txManagerMock{Repos: &txReposMock{
		orders:     orders,
		orderItems: orderItems,
		inventory:  inventory,
		auditLogs:  audits,
	}}
	txm.On("WithinTx", mock.Anything).Return(nil).Maybe()

	return NewAdminOrderUsecase(txm, testClock()), orders, orderItems, inventory, audits
}

func TestAdminUpdateStatus_ValidTransition(t *testing.T) {
	uc, orders, _, _, audits := newAdminOrderUsecaseForTest()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusPending,
	}, nil)
	orders.On("UpdateStatus", mock.Anything, int64(5), model.OrderStatusProcessing).Return(nil)
	audits.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateOrderStatus && l.ResourceID == 5
	})).Return(nil)

	err := uc.UpdateStatus(context.Background(), 99, 5, AdminUpdateOrderStatusInput{Status: "processing"})

	assert.NoError(t, err)
	audits.AssertNumberOfCalls(t, "Create", 1)
}

func TestAdminUpdateStatus_RejectedTransitions(t *testing.T) {
	cases := []struct {
		name string
		from model.OrderStatus
		to   string
	}{
		{"pending to delivered", model.OrderStatusPending, "DELIVERED"},
		{"shipped to cancelled", model.OrderStatusShipped, "CANCELLED"},
		{"delivered is terminal", model.OrderStatusDelivered, "SHIPPED"},
		{"cancelled is terminal", model.OrderStatusCancelled, "PENDING"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, orders, _, _, _ := newAdminOrderUsecaseForTest()
			orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
				ID: 5, Status: tc.from,
			}, nil)

			err := uc.UpdateStatus(context.Background(), 99, 5, AdminUpdateOrderStatusInput{Status: tc.to})

			he, ok := AsHTTPError(err)
			assert.True(t, ok)
			assert.Equal(t, 409, he.Status)
			orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAdminUpdateStatus_UnknownStatus(t *testing.T) {
	uc, _, _, _, _ := newAdminOrderUsecaseForTest()

	err := uc.UpdateStatus(context.Background(), 99, 5, AdminUpdateOrderStatusInput{Status: "REFUNDED"})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}

func TestAdminUpdateStatus_SameStatusIsNoop(t *testing.T) {
	uc, orders, _, _, audits := newAdminOrderUsecaseForTest()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusProcessing,
	}, nil)

	err := uc.UpdateStatus(context.Background(), 99, 5, AdminUpdateOrderStatusInput{Status: "PROCESSING"})

	assert.NoError(t, err)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminUpdateStatus_DeliveredSetsDeliveryFields(t *testing.T) {
	uc, orders, _, _, audits := newAdminOrderUsecaseForTest()
	clock := testClock()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusShipped,
	}, nil)
	orders.On("MarkDelivered", mock.Anything, int64(5), clock.Now()).Return(nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := uc.UpdateStatus(context.Background(), 99, 5, AdminUpdateOrderStatusInput{Status: "DELIVERED"})

	assert.NoError(t, err)
	orders.AssertCalled(t, "MarkDelivered", mock.Anything, int64(5), clock.Now())
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminUpdateStatus_CancelRestoresStock(t *testing.T) {
	uc, orders, orderItems, inventory, audits := newAdminOrderUsecaseForTest()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusProcessing,
	}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 1},
	}, nil)
	inventory.On("IncreaseStock", mock.Anything, int64(10), int64(2)).Return(nil)
	inventory.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)
	orders.On("UpdateStatus", mock.Anything, int64(5), model.OrderStatusCancelled).Return(nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := uc.UpdateStatus(context.Background(), 99, 5, AdminUpdateOrderStatusInput{Status: "CANCELLED"})

	assert.NoError(t, err)
	inventory.AssertNumberOfCalls(t, "IncreaseStock", 2)
}

func TestAdminUpdatePayment_CODRequiresDelivered(t *testing.T) {
	uc, orders, _, _, _ := newAdminOrderUsecaseForTest()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusProcessing, PaymentMethod: model.PaymentMethodCOD,
	}, nil)

	err := uc.UpdatePayment(context.Background(), 99, 5, AdminUpdateOrderPaymentInput{IsPaid: true})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
	orders.AssertNotCalled(t, "SetPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminUpdatePayment_CODDeliveredCanBePaid(t *testing.T) {
	uc, orders, _, _, audits := newAdminOrderUsecaseForTest()
	clock := testClock()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusDelivered, PaymentMethod: model.PaymentMethodCOD,
	}, nil)
	now := clock.Now()
	orders.On("SetPaid", mock.Anything, int64(5), true, &now).Return(nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := uc.UpdatePayment(context.Background(), 99, 5, AdminUpdateOrderPaymentInput{IsPaid: true})

	assert.NoError(t, err)
	orders.AssertCalled(t, "SetPaid", mock.Anything, int64(5), true, &now)
}

func TestAdminUpdatePayment_SamePaidStateIsNoop(t *testing.T) {
	uc, orders, _, _, audits := newAdminOrderUsecaseForTest()

	orders.On("FindByID", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusDelivered, PaymentMethod: model.PaymentMethodCOD, IsPaid: true,
	}, nil)

	err := uc.UpdatePayment(context.Background(), 99, 5, AdminUpdateOrderPaymentInput{IsPaid: true})

	assert.NoError(t, err)
	orders.AssertNotCalled(t, "SetPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
