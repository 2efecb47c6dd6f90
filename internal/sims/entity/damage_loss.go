package entity

import (
	"time"
)

// DamageLossReport 损毁/丢失登记，订单流程之外的库存扣减
type DamageLossReport struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProductID    string     `json:"product_id" gorm:"type:uuid;not null;index"`
	QuantityLost int        `json:"quantity_lost" gorm:"not null"`
	Reason       string     `json:"reason" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy    string     `json:"updated_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (DamageLossReport) TableName() string {
	return "sims_damage_loss_reports"
}
