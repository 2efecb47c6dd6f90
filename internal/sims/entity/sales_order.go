package entity

import (
	"time"
)

// SalesOrderStatus 销售订单状态
const (
	SOStatusPending           = "PENDING"
	SOStatusPartiallyApproved = "PARTIALLY_APPROVED"
	SOStatusApproved          = "APPROVED"
	SOStatusPartiallyShipped  = "PARTIALLY_SHIPPED"
	SOStatusShipped           = "SHIPPED"
	SOStatusCancelled         = "CANCELLED"
)

// OrderItemStatus 订单行状态
const (
	ItemStatusPending           = "PENDING"
	ItemStatusPartiallyApproved = "PARTIALLY_APPROVED"
	ItemStatusApproved          = "APPROVED"
)

// SalesOrder 销售订单，级联持有订单行
type SalesOrder struct {
	ID                    string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderReference        string     `json:"order_reference" gorm:"size:32;not null;uniqueIndex"`
	Status                string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	TotalPrice            float64    `json:"total_price" gorm:"type:decimal(12,2);not null;default:0"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
	DeliveryDate          *time.Time `json:"delivery_date"`
	LabelObject           string     `json:"label_object" gorm:"size:256"`
	CreatedBy             string     `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy             string     `json:"updated_by" gorm:"size:64"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (SalesOrder) TableName() string {
	return "sims_sales_orders"
}

// IsFinalized 终态订单不允许继续变更
func (o *SalesOrder) IsFinalized() bool {
	switch o.Status {
	case SOStatusShipped, SOStatusCancelled:
		return true
	}
	return false
}

// IsCancellable 仅未完全推进的订单可取消
func (o *SalesOrder) IsCancellable() bool {
	switch o.Status {
	case SOStatusPending, SOStatusPartiallyApproved, SOStatusPartiallyShipped:
		return true
	}
	return false
}

// OrderItem 销售订单行
// approvedQuantity 为已出库数量，预占余量 = quantity - approvedQuantity
type OrderItem struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID          string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID        string    `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	ApprovedQuantity int       `json:"approved_quantity" gorm:"not null;default:0"`
	UnitPrice        float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	OrderPrice       float64   `json:"order_price" gorm:"type:decimal(12,2);not null"`
	Status           string    `json:"status" gorm:"size:20;not null;default:PENDING"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (OrderItem) TableName() string {
	return "sims_order_items"
}

// ReservedQuantity 当前仍被预占的数量
func (i *OrderItem) ReservedQuantity() int {
	return i.Quantity - i.ApprovedQuantity
}

// IsFinalized 已全部出库的订单行不允许变更
func (i *OrderItem) IsFinalized() bool {
	return i.Status == ItemStatusApproved
}

// OrderReference 日期内递增的订单号序列
// seq 单独落列，取最新记录按数值排序，单号文本排序在序号进位后会乱序
type OrderReference struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Reference string    `json:"reference" gorm:"size:32;not null;uniqueIndex"`
	RefDate   string    `json:"ref_date" gorm:"size:10;not null;index"` // YYYY-MM-DD
	Seq       int       `json:"seq" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderReference) TableName() string {
	return "sims_order_references"
}
