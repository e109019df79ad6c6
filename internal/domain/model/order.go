package model

import "time"

type PaymentMethod string

const (
	//代金引換
	PaymentMethodCOD PaymentMethod = "COD"
	//eSewaリダイレクト決済
	PaymentMethodEsewa PaymentMethod = "ESEWA"
)

// 注文時の配送先スナップショット。
// 住所帳を後で直しても過去の注文は変わらない。
type ShippingSnapshot struct {
	FullName   string `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone      string `gorm:"type:varchar(30);not null" json:"phone"`
	Line1      string `gorm:"type:varchar(255);not null" json:"line1"`
	City       string `gorm:"type:varchar(255);not null" json:"city"`
	State      string `gorm:"type:varchar(100)" json:"state"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
}

// ゲートウェイ成功コールバック後にだけ入る決済結果
type PaymentResult struct {
	GatewayStatus string `gorm:"type:varchar(50)" json:"gateway_status"`
	TransactionID string `gorm:"type:varchar(255)" json:"transaction_id"`
	Amount        int64  `json:"amount"`
	ReferenceID   string `gorm:"type:varchar(255)" json:"reference_id"`
}

type Order struct {
	ID     int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64       `gorm:"not null;index" json:"user_id"`
	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	//作成時に確定する合計。後から再計算しない。
	TotalPrice int64 `gorm:"not null" json:"total_price"`

	Shipping ShippingSnapshot `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`

	IsPaid bool       `gorm:"not null;default:false" json:"is_paid"`
	PaidAt *time.Time `json:"paid_at"`

	IsDelivered bool       `gorm:"not null;default:false" json:"is_delivered"`
	DeliveredAt *time.Time `json:"delivered_at"`

	Payment PaymentResult `gorm:"embedded;embeddedPrefix:payment_" json:"payment_result"`

	//二重送信防止キー
	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
