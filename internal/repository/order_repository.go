package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//配達済みへ（is_delivered / delivered_at も同時に設定）
	MarkDelivered(ctx context.Context, orderID int64, at time.Time) error

	//管理者の入金トグル（paidAt は paid=false なら null に戻す）
	SetPaid(ctx context.Context, orderID int64, paid bool, at *time.Time) error

	//ゲートウェイ成功の条件付き更新。
	//status が PENDING_PAYMENT のときだけ適用し、適用したかを返す。
	MarkPaidIfPendingPayment(ctx context.Context, orderID int64, result model.PaymentResult, at time.Time) (bool, error)

	//ゲートウェイ失敗の条件付き削除。削除したかを返す。
	DeleteIfPendingPayment(ctx context.Context, orderID int64) (bool, error)

	//掃除対象（古い PENDING_PAYMENT）のID一覧
	ListStalePendingPayment(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
