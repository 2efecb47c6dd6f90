package service

import (
	"context"
	"fmt"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"go.uber.org/zap"
)

// DamageService 损毁/丢失登记
// 损毁走现货直减（损毁库存从未被预占），删除/调低登记时按原量冲回
type DamageService struct {
	repo         *repository.DamageRepository
	stockRepo    *repository.StockRepository
	reservations *ReservationService
	logger       *zap.Logger
}

func NewDamageService(repo *repository.DamageRepository, stockRepo *repository.StockRepository, reservations *ReservationService, logger *zap.Logger) *DamageService {
	return &DamageService{repo: repo, stockRepo: stockRepo, reservations: reservations, logger: logger}
}

type AddDamageLossRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	QuantityLost int    `json:"quantity_lost" binding:"required,gt=0"`
	Reason       string `json:"reason" binding:"required"`
}

// AddDamageLoss 登记损毁并扣减现货
// 先扣减后落登记行，登记失败时冲回扣减，不留孤儿记录
func (s *DamageService) AddDamageLoss(ctx context.Context, req AddDamageLossRequest, userID string) (*entity.DamageLossReport, error) {
	if req.QuantityLost <= 0 {
		return nil, fmt.Errorf("%w: 损毁数量必须为正: %d", ErrValidation, req.QuantityLost)
	}
	rec, err := s.stockRepo.GetByProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("库存记录不存在: %w", err)
	}
	// 扣减后现货不能低于预占量，按可用量校验
	if req.QuantityLost > rec.AvailableStock() {
		return nil, fmt.Errorf("%w: 损毁数量 %d 超出可用现货 %d（现货 %d，预占 %d）",
			ErrValidation, req.QuantityLost, rec.AvailableStock(), rec.CurrentStock, rec.ReservedStock)
	}

	ref := MovementRef{Type: "DMG", UserID: userID}
	if err := s.reservations.DecreaseStock(ctx, req.ProductID, req.QuantityLost, entity.MovementDamageOut, ref); err != nil {
		return nil, err
	}

	report := &entity.DamageLossReport{
		ProductID:    req.ProductID,
		QuantityLost: req.QuantityLost,
		Reason:       req.Reason,
		CreatedBy:    userID,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		if rerr := s.restoreStockLevel(ctx, req.ProductID, req.QuantityLost, ref); rerr != nil {
			s.logger.Error("登记失败后冲回现货失败",
				zap.String("product_id", req.ProductID),
				zap.Int("quantity", req.QuantityLost),
				zap.Error(rerr))
		}
		return nil, fmt.Errorf("创建损毁登记失败: %w", err)
	}
	return report, nil
}

type UpdateDamageLossRequest struct {
	QuantityLost int    `json:"quantity_lost" binding:"required,gt=0"`
	Reason       string `json:"reason"`
}

// UpdateDamageLoss 修正登记数量：调高追加扣减，调低冲回差额
func (s *DamageService) UpdateDamageLoss(ctx context.Context, id string, req UpdateDamageLossRequest, userID string) (*entity.DamageLossReport, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("损毁登记不存在: %w", err)
	}

	diff := req.QuantityLost - report.QuantityLost
	ref := MovementRef{Type: "DMG", ID: report.ID, UserID: userID}
	if diff > 0 {
		rec, serr := s.stockRepo.GetByProduct(ctx, report.ProductID)
		if serr != nil {
			return nil, fmt.Errorf("库存记录不存在: %w", serr)
		}
		if diff > rec.AvailableStock() {
			return nil, fmt.Errorf("%w: 追加损毁数量 %d 超出可用现货 %d", ErrValidation, diff, rec.AvailableStock())
		}
		if err := s.reservations.DecreaseStock(ctx, report.ProductID, diff, entity.MovementDamageOut, ref); err != nil {
			return nil, err
		}
	} else if diff < 0 {
		if err := s.restoreStockLevel(ctx, report.ProductID, -diff, ref); err != nil {
			return nil, err
		}
	}

	report.QuantityLost = req.QuantityLost
	if req.Reason != "" {
		report.Reason = req.Reason
	}
	report.UpdatedBy = userID
	if err := s.repo.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("更新损毁登记失败: %w", err)
	}
	return report, nil
}

// DeleteDamageLoss 删除登记并按原量冲回现货
func (s *DamageService) DeleteDamageLoss(ctx context.Context, id, userID string) error {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("损毁登记不存在: %w", err)
	}
	ref := MovementRef{Type: "DMG", ID: report.ID, UserID: userID}
	if err := s.restoreStockLevel(ctx, report.ProductID, report.QuantityLost, ref); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// restoreStockLevel 冲回现货；数量非正时记日志跳过，不视为错误
func (s *DamageService) restoreStockLevel(ctx context.Context, productID string, qty int, ref MovementRef) error {
	if qty <= 0 {
		s.logger.Info("冲回数量非正，跳过",
			zap.String("product_id", productID),
			zap.Int("quantity", qty))
		return nil
	}
	return s.reservations.IncreaseStock(ctx, productID, qty, entity.MovementRestoreIn, ref)
}

func (s *DamageService) GetDamageLossByID(ctx context.Context, id string) (*entity.DamageLossReport, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DamageService) ListDamageLosses(ctx context.Context, params repository.DamageListParams) ([]entity.DamageLossReport, int64, error) {
	return s.repo.List(ctx, params)
}
