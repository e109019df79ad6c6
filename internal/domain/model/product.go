package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  int64  `gorm:"not null;index" json:"category_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//価格は最小通貨単位の整数
	Price int64 `gorm:"not null" json:"price"`

	Stock int64 `gorm:"not null" json:"stock"`

	//選べる色ラベル（"Oak"など）
	Colors []string `gorm:"serializer:json;type:text" json:"colors"`

	Material   string `gorm:"type:varchar(255)" json:"material"`
	PictureURL string `gorm:"type:varchar(512)" json:"picture_url"`

	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 色ラベルが選択肢に含まれるか
func (p Product) HasColor(color string) bool {
	if color == "" && len(p.Colors) == 0 {
		return true
	}
	for _, c := range p.Colors {
		if c == color {
			return true
		}
	}
	return false
}
