package service

import (
	"fmt"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
)

// DeriveStockStatus 库存状态推导，全系统唯一的计算入口
// 商品已下架/受限/停产 → INVALID；在途且无现货 → INCOMING；
// 其余按 currentStock 与 minLevel 比较
func DeriveStockStatus(currentStock, minLevel int, productStatus string) string {
	switch productStatus {
	case entity.ProductStatusArchived, entity.ProductStatusRestricted, entity.ProductStatusDiscontinued:
		return entity.StockStatusInvalid
	}
	if currentStock == 0 && productStatus == entity.ProductStatusOnOrder {
		return entity.StockStatusIncoming
	}
	if currentStock > minLevel {
		return entity.StockStatusInStock
	}
	return entity.StockStatusLowStock
}

// applyDelta 修改计数器并重推状态，唯一的计数器写入点
// 结果出现负数或 reserved > current 时拒绝整个变更
func applyDelta(rec *entity.StockRecord, productStatus string, deltaCurrent, deltaReserved int) error {
	current := rec.CurrentStock + deltaCurrent
	reserved := rec.ReservedStock + deltaReserved
	if current < 0 || reserved < 0 {
		return fmt.Errorf("%w: 商品 %s 计数器不能为负 (current=%d, reserved=%d)",
			ErrInvariantViolation, rec.ProductID, current, reserved)
	}
	if reserved > current {
		return fmt.Errorf("%w: 商品 %s 预占量 %d 超出现货 %d",
			ErrInvariantViolation, rec.ProductID, reserved, current)
	}
	rec.CurrentStock = current
	rec.ReservedStock = reserved
	rec.Status = DeriveStockStatus(current, rec.MinLevel, productStatus)
	return nil
}
