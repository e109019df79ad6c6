package usecase

import (
	"context"
	"log/slog"
	"time"

	repo "app/internal/repository"
)

const sweepBatchSize = 100

// OrderSweeper は支払い画面から戻ってこなかった PENDING_PAYMENT 注文を
// 一定時間後に削除して在庫を戻す。
type OrderSweeper struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	clock    Clock
	logger   *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

func NewOrderSweeper(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	clock Clock,
	logger *slog.Logger,
	ttl time.Duration,
	interval time.Duration,
) *OrderSweeper {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OrderSweeper{
		tx:       tx,
		orders:   orders,
		clock:    clock,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
	}
}

// Run はctxが閉じるまで定期実行する。goroutineで呼ぶ。
func (s *OrderSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("order sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce は1回分の掃除を行う。
// 注文ごとに独立したTxで処理し、1件の失敗で全体を止めない。
func (s *OrderSweeper) SweepOnce(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.ttl)

	ids, err := s.orders.ListStalePendingPayment(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}

	for _, orderID := range ids {
		if err := s.sweepOne(ctx, orderID); err != nil {
			s.logger.Error("failed to sweep stale order", "order_id", orderID, "error", err)
			continue
		}
		s.logger.Info("swept stale pending payment order", "order_id", orderID)
	}
	return nil
}

func (s *OrderSweeper) sweepOne(ctx context.Context, orderID int64) error {
	return s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		//削除できたときだけ在庫を戻す（並行してcallbackが来ていたら何もしない）
		deleted, err := r.Orders().DeleteIfPendingPayment(ctx, orderID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}

		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return r.OrderItems().DeleteByOrderID(ctx, orderID)
	})
}
