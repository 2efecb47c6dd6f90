package entity

import (
	"time"
)

// StockStatus 库存状态
const (
	StockStatusInStock  = "IN_STOCK"
	StockStatusLowStock = "LOW_STOCK"
	StockStatusIncoming = "INCOMING"
	StockStatusInvalid  = "INVALID"
)

// MovementType 库存流水类型
const (
	MovementReserve    = "RESERVE"     // 销售预占
	MovementRelease    = "RELEASE"     // 预占释放
	MovementSalesOut   = "SALES_OUT"   // 销售出库
	MovementPurchaseIn = "PURCHASE_IN" // 采购入库
	MovementDamageOut  = "DAMAGE_OUT"  // 损毁出库
	MovementRestoreIn  = "RESTORE_IN"  // 损毁冲回
)

// StockRecord 单品库存计数器，每 SKU 一条
// currentStock/reservedStock 只允许经由 ReservationService 修改
type StockRecord struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProductID     string    `json:"product_id" gorm:"type:uuid;not null;uniqueIndex"`
	CurrentStock  int       `json:"current_stock" gorm:"not null;default:0"`
	ReservedStock int       `json:"reserved_stock" gorm:"not null;default:0"`
	MinLevel      int       `json:"min_level" gorm:"not null;default:0"`
	Status        string    `json:"status" gorm:"size:20;not null;default:LOW_STOCK"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (StockRecord) TableName() string {
	return "sims_stock_records"
}

// AvailableStock 可售库存 = 现货 - 预占
func (s *StockRecord) AvailableStock() int {
	return s.CurrentStock - s.ReservedStock
}

// StockMovement 库存流水记录
type StockMovement struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProductID     string    `json:"product_id" gorm:"type:uuid;not null;index"`
	MovementType  string    `json:"movement_type" gorm:"size:20;not null"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	ReferenceType string    `json:"reference_type" gorm:"size:20"` // PO, SO, DMG
	ReferenceID   string    `json:"reference_id" gorm:"size:64"`
	ReferenceCode string    `json:"reference_code" gorm:"size:64"`
	Notes         string    `json:"notes" gorm:"type:text"`
	CreatedBy     string    `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "sims_stock_movements"
}
