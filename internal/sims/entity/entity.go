package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有库存管理表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Product{},

		// 库存
		&StockRecord{},
		&StockMovement{},

		// 采购
		&PurchaseOrder{},

		// 销售
		&SalesOrder{},
		&OrderItem{},
		&OrderReference{},

		// 损毁
		&DamageLossReport{},
	)
}
