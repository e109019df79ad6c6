package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"
)

// リダイレクト決済ゲートウェイの約束。
// 実装は internal/gateway のeSewaクライアント。
type PaymentGateway interface {
	BuildRedirect(orderID int64, amount int64) gateway.RedirectDescriptor
	VerifyPayment(ctx context.Context, orderID int64, amount int64, refID string) (bool, error)
}

// コールバックの同時多重実行を短絡するロック。
// 処理が終わったら（成否に関わらず）Unlockで返す。
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
}

type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	gw         PaymentGateway
	idem       IdempotencyStore
	clock      Clock
	logger     *slog.Logger

	//リダイレクト着地先（フロント）
	feURL string
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	gw PaymentGateway,
	idem IdempotencyStore,
	clock Clock,
	logger *slog.Logger,
	feURL string,
) *OrderUsecase {
	return &OrderUsecase{
		tx:         tx,
		orders:     orders,
		orderItems: orderItems,
		gw:         gw,
		idem:       idem,
		clock:      clock,
		logger:     logger,
		feURL:      strings.TrimRight(feURL, "/"),
	}
}

type PlaceOrderItemInput struct {
	ProductID int64  `json:"product"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
	Color     string `json:"color"`
}

type ShippingInput struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type PlaceOrderInput struct {
	Items          []PlaceOrderItemInput
	Shipping       ShippingInput
	PaymentMethod  string
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Color     string `json:"color"`
}

type OrderOutput struct {
	ID            int64                  `json:"id"`
	UserID        int64                  `json:"user_id"`
	Status        string                 `json:"status"`
	PaymentMethod string                 `json:"payment_method"`
	TotalPrice    int64                  `json:"total_price"`
	Shipping      model.ShippingSnapshot `json:"shipping_address"`
	IsPaid        bool                   `json:"is_paid"`
	PaidAt        *string                `json:"paid_at"`
	IsDelivered   bool                   `json:"is_delivered"`
	DeliveredAt   *string                `json:"delivered_at"`
	Payment       *model.PaymentResult   `json:"payment_result"`
	CreatedAt     string                 `json:"created_at"`
	Items         []OrderItemOutput      `json:"items"`
}

type PlaceOrderOutput struct {
	Order OrderOutput `json:"order"`
	//ESEWAのときだけ入る
	GatewayRedirect *gateway.RedirectDescriptor `json:"gateway_redirect,omitempty"`
}

// PlaceOrder は注文を作る。
// 明細の価格はカタログの現在価格と突き合わせ、ズレていたら拒否する。
// 送信された価格を信じて合計を計算することはしない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewUnauthorizedError()
	}
	if len(in.Items) == 0 {
		return PlaceOrderOutput{}, NewValidationError("order items is empty")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return PlaceOrderOutput{}, NewValidationError("invalid product")
		}
		if it.Quantity < 1 {
			return PlaceOrderOutput{}, NewValidationError("invalid quantity")
		}
	}

	if err := validateShipping(in.Shipping); err != nil {
		return PlaceOrderOutput{}, err
	}

	method := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.PaymentMethod)))
	switch method {
	case model.PaymentMethodCOD, model.PaymentMethodEsewa:
		// OK
	default:
		return PlaceOrderOutput{}, NewValidationError("invalid payment_method")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return PlaceOrderOutput{}, NewValidationError("invalid idempotency_key")
	}

	//ESEWAは確認待ち、CODはそのままPENDING
	initialStatus := model.OrderStatusPending
	if method == model.PaymentMethodEsewa {
		initialStatus = model.OrderStatusPendingPayment
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewInternalError()
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewInternalError()
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		now := u.clock.Now()
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var total int64 = 0

		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewValidationError("unknown product")
			}
			if err != nil {
				return NewInternalError()
			}
			if !p.IsActive {
				return NewValidationError("product not available")
			}

			//クライアント申告の価格はカタログと一致しないと拒否
			if it.Price != p.Price {
				return NewValidationError("price mismatch")
			}
			if !p.HasColor(it.Color) {
				return NewValidationError("invalid color")
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewInternalError()
			}
			if !ok {
				return NewValidationError("out of stock")
			}

			//スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           it.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            it.Quantity,
				Color:               it.Color,
				CreatedAt:           now,
			})

			total += p.Price * it.Quantity
		}

		order := model.Order{
			UserID:        userID,
			Status:        initialStatus,
			PaymentMethod: method,
			TotalPrice:    total,
			Shipping: model.ShippingSnapshot{
				FullName:   strings.TrimSpace(in.Shipping.FullName),
				Phone:      strings.TrimSpace(in.Shipping.Phone),
				Line1:      strings.TrimSpace(in.Shipping.Line1),
				City:       strings.TrimSpace(in.Shipping.City),
				State:      strings.TrimSpace(in.Shipping.State),
				PostalCode: strings.TrimSpace(in.Shipping.PostalCode),
			},
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//競合（同時に同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewInternalError()
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return NewValidationError("idempotency conflict")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewInternalError()
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	result := PlaceOrderOutput{Order: out}
	if method == model.PaymentMethodEsewa && out.Status == string(model.OrderStatusPendingPayment) {
		rd := u.gw.BuildRedirect(out.ID, out.TotalPrice)
		result.GatewayRedirect = &rd
	}
	return result, nil
}

func validateShipping(s ShippingInput) error {
	if strings.TrimSpace(s.FullName) == "" {
		return NewValidationError("shipping full_name is required")
	}
	if strings.TrimSpace(s.Phone) == "" {
		return NewValidationError("shipping phone is required")
	}
	if strings.TrimSpace(s.Line1) == "" {
		return NewValidationError("shipping line1 is required")
	}
	if strings.TrimSpace(s.City) == "" {
		return NewValidationError("shipping city is required")
	}
	if strings.TrimSpace(s.PostalCode) == "" {
		return NewValidationError("shipping postal_code is required")
	}
	return nil
}

// ListMyOrders は自分の注文を新しい順で返す。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) ([]OrderOutput, int64, error) {
	if userID <= 0 {
		return []OrderOutput{}, 0, NewUnauthorizedError()
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return []OrderOutput{}, 0, NewInternalError()
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, 0, NewInternalError()
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, total, nil
}

// GetOrderDetail は所有者か管理者にだけ注文を見せる。
func (u *OrderUsecase) GetOrderDetail(ctx context.Context, userID int64, isAdmin bool, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewUnauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, NewNotFoundError()
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewNotFoundError()
	}
	if err != nil {
		return OrderOutput{}, NewInternalError()
	}

	if o.UserID != userID && !isAdmin {
		return OrderOutput{}, NewForbiddenError("forbidden")
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewInternalError()
	}

	return toOrderOutput(o, items), nil
}

// Cancel はユーザー自身のキャンセル。
// PENDING / PROCESSING かつ未入金のときだけ許す。
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64) error {
	if userID <= 0 {
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

		if o.UserID != userID {
			return NewForbiddenError("forbidden")
		}
		if o.IsPaid {
			return NewInvalidStateError("order already paid")
		}
		if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusProcessing {
			return NewInvalidStateError("order cannot be cancelled")
		}

		//在庫戻し
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewInternalError()
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewInternalError()
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFoundError()
			}
			return NewInternalError()
		}
		return nil
	})
}

// HandleGatewaySuccess は成功コールバックを処理して、
// ブラウザを着地させるURLを返す。失敗しても必ずURLは返す。
// 条件付き更新なので同じコールバックが二度来ても壊れない。
func (u *OrderUsecase) HandleGatewaySuccess(ctx context.Context, orderID int64, amount int64, refID string) string {
	if orderID <= 0 || refID == "" {
		return u.checkoutFailureURL()
	}

	//同時到着の短絡。本命の冪等性はDBの条件付き更新で、
	//ロックは処理中だけ持ち、検証失敗でも必ず返す。
	//返し損ねても短TTLで消えるので再送は通る。
	if u.idem != nil {
		lockKey := fmt.Sprintf("%d:%s", orderID, refID)
		locked, lockErr := u.idem.TryLock(ctx, "esewa-success", lockKey)
		if lockErr == nil && !locked {
			//同じコールバックを処理中。成功扱いにはせず注文の状態で着地先を決める
			return u.settledLandingURL(ctx, orderID)
		}
		if lockErr == nil {
			defer func() {
				if err := u.idem.Unlock(ctx, "esewa-success", lockKey); err != nil {
					u.logger.Warn("gateway success unlock failed",
						slog.Int64("order_id", orderID), slog.String("err", err.Error()))
				}
			}()
		}
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		u.logger.Warn("gateway success for unknown order", slog.Int64("order_id", orderID))
		return u.checkoutFailureURL()
	}
	if err != nil {
		u.logger.Error("gateway success lookup failed", slog.Int64("order_id", orderID), slog.String("err", err.Error()))
		return u.checkoutFailureURL()
	}

	//金額はゲートウェイ申告ではなく注文の確定値と比べる
	if amount != o.TotalPrice {
		u.logger.Warn("gateway success amount mismatch",
			slog.Int64("order_id", orderID),
			slog.Int64("got", amount),
			slog.Int64("want", o.TotalPrice),
		)
		return u.checkoutFailureURL()
	}

	verified, err := u.gw.VerifyPayment(ctx, orderID, o.TotalPrice, refID)
	if err != nil {
		u.logger.Error("gateway verify failed", slog.Int64("order_id", orderID), slog.String("err", err.Error()))
		return u.checkoutFailureURL()
	}
	if !verified {
		u.logger.Warn("gateway verify rejected", slog.Int64("order_id", orderID), slog.String("ref_id", refID))
		return u.checkoutFailureURL()
	}

	applied, err := u.orders.MarkPaidIfPendingPayment(ctx, orderID, model.PaymentResult{
		GatewayStatus: "COMPLETE",
		TransactionID: refID,
		Amount:        o.TotalPrice,
		ReferenceID:   refID,
	}, u.clock.Now())
	if err != nil {
		u.logger.Error("gateway success update failed", slog.Int64("order_id", orderID), slog.String("err", err.Error()))
		return u.checkoutFailureURL()
	}
	if !applied {
		//再送。すでに確定済みなのでそのまま注文ページへ。
		u.logger.Info("gateway success replay ignored", slog.Int64("order_id", orderID))
	}

	return u.orderURL(orderID)
}

// settledLandingURL は支払いが確定済みの注文だけ注文ページへ送る。
// 未確定ならチェックアウトへ戻す（処理中の側が確定させる）。
func (u *OrderUsecase) settledLandingURL(ctx context.Context, orderID int64) string {
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return u.checkoutFailureURL()
	}
	if o.IsPaid {
		return u.orderURL(orderID)
	}
	return u.checkoutFailureURL()
}

// HandleGatewayFailure は失敗コールバック。
// PENDING_PAYMENTのままの一時注文だけ消して在庫を戻す。
// どんな場合でもチェックアウトへ戻すURLを返す。
func (u *OrderUsecase) HandleGatewayFailure(ctx context.Context, orderID int64) string {
	if orderID <= 0 {
		return u.checkoutFailureURL()
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//削除前に明細を控えて在庫を戻す
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		deleted, err := r.Orders().DeleteIfPendingPayment(ctx, orderID)
		if err != nil {
			return err
		}
		if !deleted {
			//存在しない・もう確定済みなら何もしない
			return nil
		}

		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return r.OrderItems().DeleteByOrderID(ctx, orderID)
	})
	if err != nil {
		u.logger.Error("gateway failure cleanup failed", slog.Int64("order_id", orderID), slog.String("err", err.Error()))
	}

	return u.checkoutFailureURL()
}

func (u *OrderUsecase) orderURL(orderID int64) string {
	//clear_cart=1 でフロントにローカルカートを消させる
	return fmt.Sprintf("%s/orders/%d?clear_cart=1", u.feURL, orderID)
}

func (u *OrderUsecase) checkoutFailureURL() string {
	return u.feURL + "/checkout?payment=failed"
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Color:     it.Color,
		})
	}

	out := OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		TotalPrice:    o.TotalPrice,
		Shipping:      o.Shipping,
		IsPaid:        o.IsPaid,
		IsDelivered:   o.IsDelivered,
		CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Items:         outItems,
	}
	if o.PaidAt != nil {
		s := o.PaidAt.Format("2006-01-02T15:04:05Z07:00")
		out.PaidAt = &s
	}
	if o.DeliveredAt != nil {
		s := o.DeliveredAt.Format("2006-01-02T15:04:05Z07:00")
		out.DeliveredAt = &s
	}
	//決済結果はコールバック後にだけ出す
	if o.Payment.TransactionID != "" {
		p := o.Payment
		out.Payment = &p
	}
	return out
}
