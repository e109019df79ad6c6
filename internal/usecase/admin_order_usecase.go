package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, clock: clock}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminUpdateOrderPaymentInput struct {
	IsPaid bool
}

// 注文一覧（絞り込みとページングつき）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, int64, error) {
	if f.Page < 1 {
		return []OrderOutput{}, 0, NewValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, 0, NewValidationError("invalid limit")
	}

	var outs []OrderOutput
	var total int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, t, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewInternalError()
		}
		total = t

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewInternalError()
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, 0, err
	}
	return outs, total, nil
}

// UpdateStatus は遷移表にある移動だけ許す。
// DELIVEREDなら is_delivered / delivered_at も設定する。
// CANCELLEDなら在庫を戻す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if orderID <= 0 {
		return NewNotFoundError()
	}

	newStatus := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !newStatus.Valid() {
		return NewValidationError("invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		if err != nil {
			return NewInternalError()
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}

		if !o.Status.CanTransitionTo(newStatus) {
			return NewInvalidStateError(
				fmt.Sprintf("cannot move %s to %s", o.Status, newStatus),
			)
		}

		//キャンセル時は在庫戻し
		if newStatus == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewInternalError()
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewInternalError()
				}
			}
		}

		if newStatus == model.OrderStatusDelivered {
			if err := r.Orders().MarkDelivered(ctx, orderID, u.clock.Now()); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return NewNotFoundError()
				}
				return NewInternalError()
			}
		} else {
			if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return NewNotFoundError()
				}
				return NewInternalError()
			}
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, newStatus),
			CreatedAt:    u.clock.Now(),
		})
	})
}

// UpdatePayment は入金トグル。
// CODは配達完了後の集金を表すので、DELIVERED以外ではtrueにできない。
func (u *AdminOrderUsecase) UpdatePayment(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderPaymentInput) error {
	if actorAdminUserID <= 0 {
		return NewUnauthorizedError()
	}
	if orderID <= 0 {
		return NewNotFoundError()
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError()
		}
		if err != nil {
			return NewInternalError()
		}

		if o.IsPaid == in.IsPaid {
			return nil
		}

		if in.IsPaid && o.PaymentMethod == model.PaymentMethodCOD && o.Status != model.OrderStatusDelivered {
			return NewInvalidStateError("cod order must be delivered before marking paid")
		}

		var at *time.Time
		if in.IsPaid {
			now := u.clock.Now()
			at = &now
		}

		if err := r.Orders().SetPaid(ctx, orderID, in.IsPaid, at); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFoundError()
			}
			return NewInternalError()
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderPaid,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"is_paid":%t}`, o.IsPaid),
			AfterJSON:    fmt.Sprintf(`{"is_paid":%t}`, in.IsPaid),
			CreatedAt:    u.clock.Now(),
		})
	})
}
