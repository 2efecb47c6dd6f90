package entity

import (
	"time"
)

// ProductStatus 商品生命周期状态
const (
	ProductStatusActive       = "ACTIVE"
	ProductStatusPlanning     = "PLANNING"
	ProductStatusOnOrder      = "ON_ORDER"
	ProductStatusArchived     = "ARCHIVED"
	ProductStatusRestricted   = "RESTRICTED"
	ProductStatusDiscontinued = "DISCONTINUED"
)

// Product 商品目录条目
type Product struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SKU       string     `json:"sku" gorm:"size:64;not null;uniqueIndex"`
	Name      string     `json:"name" gorm:"size:128;not null"`
	Category  string     `json:"category" gorm:"size:64"`
	Price     float64    `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	Status    string     `json:"status" gorm:"size:20;not null;default:PLANNING"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}

func (Product) TableName() string {
	return "sims_products"
}

// IsOrderable 商品是否可被销售订单引用
func (p *Product) IsOrderable() bool {
	switch p.Status {
	case ProductStatusArchived, ProductStatusRestricted, ProductStatusDiscontinued:
		return false
	}
	return true
}
