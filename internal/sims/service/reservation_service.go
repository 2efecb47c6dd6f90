package service

import (
	"context"
	"fmt"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MovementRef 库存流水的业务来源
type MovementRef struct {
	Type   string // PO, SO, DMG
	ID     string
	Code   string
	UserID string
}

// ReservationService 库存预占/释放/出库的原子操作入口
// 每个操作在单事务内对目标库存行加锁（SELECT FOR UPDATE），
// 同一商品的并发操作被行锁串行化，不同商品互不阻塞
type ReservationService struct {
	db          *gorm.DB
	stockRepo   *repository.StockRepository
	productRepo *repository.ProductRepository
	logger      *zap.Logger
}

func NewReservationService(db *gorm.DB, stockRepo *repository.StockRepository, productRepo *repository.ProductRepository, logger *zap.Logger) *ReservationService {
	return &ReservationService{db: db, stockRepo: stockRepo, productRepo: productRepo, logger: logger}
}

// Reserve 预占库存
// 可用量不足时返回 (false, nil) 且不做任何变更，由调用方决定是否致命
func (s *ReservationService) Reserve(ctx context.Context, productID string, qty int, ref MovementRef) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("%w: 预占数量必须为正: %d", ErrValidation, qty)
	}
	ok := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.stockRepo.GetForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("库存记录不存在: %w", err)
		}
		if qty > rec.AvailableStock() {
			return nil
		}
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := applyDelta(rec, product.Status, 0, qty); err != nil {
			return err
		}
		if err := s.stockRepo.Save(tx, rec); err != nil {
			return err
		}
		ok = true
		return s.stockRepo.CreateMovement(tx, &entity.StockMovement{
			ProductID:     productID,
			MovementType:  entity.MovementReserve,
			Quantity:      qty,
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
			ReferenceCode: ref.Code,
			CreatedBy:     ref.UserID,
		})
	})
	return ok, err
}

// Release 释放预占，数量按当前预占量封顶，不会出现负预占
// 取消与补偿回滚共用此入口
func (s *ReservationService) Release(ctx context.Context, productID string, qty int, ref MovementRef) error {
	if qty <= 0 {
		return fmt.Errorf("%w: 释放数量必须为正: %d", ErrValidation, qty)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.stockRepo.GetForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("库存记录不存在: %w", err)
		}
		release := qty
		if release > rec.ReservedStock {
			s.logger.Warn("释放量超出预占量，按预占量封顶",
				zap.String("product_id", productID),
				zap.Int("requested", qty),
				zap.Int("reserved", rec.ReservedStock))
			release = rec.ReservedStock
		}
		if release == 0 {
			return nil
		}
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := applyDelta(rec, product.Status, 0, -release); err != nil {
			return err
		}
		if err := s.stockRepo.Save(tx, rec); err != nil {
			return err
		}
		return s.stockRepo.CreateMovement(tx, &entity.StockMovement{
			ProductID:     productID,
			MovementType:  entity.MovementRelease,
			Quantity:      release,
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
			ReferenceCode: ref.Code,
			CreatedBy:     ref.UserID,
		})
	})
}

// Fulfill 出库：将预占转为实际扣减，现货与预占同步减少
func (s *ReservationService) Fulfill(ctx context.Context, productID string, qty int, ref MovementRef) error {
	if qty <= 0 {
		return fmt.Errorf("%w: 出库数量必须为正: %d", ErrValidation, qty)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.stockRepo.GetForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("库存记录不存在: %w", err)
		}
		if qty > rec.ReservedStock {
			return fmt.Errorf("%w: 商品 %s 出库量 %d 超出预占量 %d",
				ErrInvariantViolation, productID, qty, rec.ReservedStock)
		}
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := applyDelta(rec, product.Status, -qty, -qty); err != nil {
			return err
		}
		if err := s.stockRepo.Save(tx, rec); err != nil {
			return err
		}
		return s.stockRepo.CreateMovement(tx, &entity.StockMovement{
			ProductID:     productID,
			MovementType:  entity.MovementSalesOut,
			Quantity:      -qty,
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
			ReferenceCode: ref.Code,
			CreatedBy:     ref.UserID,
		})
	})
}

// IncreaseStock 采购入库等无预占前置的现货增加
func (s *ReservationService) IncreaseStock(ctx context.Context, productID string, qty int, movementType string, ref MovementRef) error {
	if qty <= 0 {
		return fmt.Errorf("%w: 入库数量必须为正: %d", ErrValidation, qty)
	}
	return s.applyDirect(ctx, productID, qty, movementType, ref)
}

// DecreaseStock 损毁等非预占路径的现货扣减
func (s *ReservationService) DecreaseStock(ctx context.Context, productID string, qty int, movementType string, ref MovementRef) error {
	if qty <= 0 {
		return fmt.Errorf("%w: 扣减数量必须为正: %d", ErrValidation, qty)
	}
	return s.applyDirect(ctx, productID, -qty, movementType, ref)
}

func (s *ReservationService) applyDirect(ctx context.Context, productID string, deltaCurrent int, movementType string, ref MovementRef) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.stockRepo.GetForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("库存记录不存在: %w", err)
		}
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := applyDelta(rec, product.Status, deltaCurrent, 0); err != nil {
			return err
		}
		if err := s.stockRepo.Save(tx, rec); err != nil {
			return err
		}
		return s.stockRepo.CreateMovement(tx, &entity.StockMovement{
			ProductID:     productID,
			MovementType:  movementType,
			Quantity:      deltaCurrent,
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
			ReferenceCode: ref.Code,
			CreatedBy:     ref.UserID,
		})
	})
}

// RefreshStatus 商品生命周期变化后重推库存状态（INCOMING/INVALID 等外部驱动场景）
func (s *ReservationService) RefreshStatus(ctx context.Context, productID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.stockRepo.GetForUpdate(tx, productID)
		if err != nil {
			return fmt.Errorf("库存记录不存在: %w", err)
		}
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		status := DeriveStockStatus(rec.CurrentStock, rec.MinLevel, product.Status)
		if status == rec.Status {
			return nil
		}
		rec.Status = status
		return s.stockRepo.Save(tx, rec)
	})
}
