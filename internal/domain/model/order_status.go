package model

type OrderStatus string

const (
	//リダイレクト決済の確認待ち（一時状態）
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// 許可される遷移だけを持つ表。
// DELIVERED / CANCELLED は終端。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusPending:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusDelivered},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// 定義済みステータスか
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// 表にある遷移だけ許可する
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// 今の状態から行ける先
func (s OrderStatus) NextStatuses() []OrderStatus {
	nexts := orderTransitions[s]
	out := make([]OrderStatus, len(nexts))
	copy(out, nexts)
	return out
}

// 終端状態か
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0 && s.Valid()
}
