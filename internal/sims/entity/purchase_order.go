package entity

import (
	"time"
)

// PurchaseOrderStatus 采购订单状态
const (
	POStatusAwaitingApproval  = "AWAITING_APPROVAL"
	POStatusDeliveryInProcess = "DELIVERY_IN_PROCESS"
	POStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	POStatusReceived          = "RECEIVED"
	POStatusCancelled         = "CANCELLED"
	POStatusFailed            = "FAILED"
)

// PurchaseOrder 采购订单（PO），单商品入库请求
type PurchaseOrder struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PONumber         string     `json:"po_number" gorm:"size:32;not null;uniqueIndex"`
	ProductID        string     `json:"product_id" gorm:"type:uuid;not null;index"`
	SupplierName     string     `json:"supplier_name" gorm:"size:128"`
	OrderedQuantity  int        `json:"ordered_quantity" gorm:"not null"`
	ReceivedQuantity int        `json:"received_quantity" gorm:"not null;default:0"`
	Status           string     `json:"status" gorm:"size:20;not null;default:AWAITING_APPROVAL"`
	ExpectedArrival  *time.Time `json:"expected_arrival"`
	ActualArrival    *time.Time `json:"actual_arrival"`
	ConfirmedBy      string     `json:"confirmed_by" gorm:"size:64"`
	CreatedBy        string     `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy        string     `json:"updated_by" gorm:"size:64"`
	Notes            string     `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (PurchaseOrder) TableName() string {
	return "sims_purchase_orders"
}

// IsFinalized 终态订单不允许继续变更
func (p *PurchaseOrder) IsFinalized() bool {
	switch p.Status {
	case POStatusReceived, POStatusCancelled, POStatusFailed:
		return true
	}
	return false
}
