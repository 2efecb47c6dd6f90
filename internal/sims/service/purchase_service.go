package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseService 采购订单工作流
// 收货路径做的是现货增加而非预占兑现：在途货物没有预占前置
type PurchaseService struct {
	db           *gorm.DB
	repo         *repository.PurchaseRepository
	productRepo  *repository.ProductRepository
	stockRepo    *repository.StockRepository
	reservations *ReservationService
	refGen       *RefGenService
	tokens       *ConfirmTokenStore
	logger       *zap.Logger
}

func NewPurchaseService(db *gorm.DB, repo *repository.PurchaseRepository, productRepo *repository.ProductRepository, stockRepo *repository.StockRepository, reservations *ReservationService, refGen *RefGenService, tokens *ConfirmTokenStore, logger *zap.Logger) *PurchaseService {
	return &PurchaseService{
		db:           db,
		repo:         repo,
		productRepo:  productRepo,
		stockRepo:    stockRepo,
		reservations: reservations,
		refGen:       refGen,
		tokens:       tokens,
		logger:       logger,
	}
}

type CreatePurchaseOrderRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	SupplierName    string `json:"supplier_name"`
	ExpectedArrival string `json:"expected_arrival"` // YYYY-MM-DD
	Notes           string `json:"notes"`
}

// CreatePurchaseOrder 创建采购订单并签发供应商确认令牌
// 首次采购的商品在此处建立库存记录；PLANNING 商品级联为 ON_ORDER，库存标记在途
func (s *PurchaseService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest, userID string) (*entity.PurchaseOrder, string, error) {
	var expected *time.Time
	if req.ExpectedArrival != "" {
		t, perr := time.Parse("2006-01-02", req.ExpectedArrival)
		if perr != nil {
			return nil, "", fmt.Errorf("%w: 预计到货日期格式错误: %s", ErrValidation, req.ExpectedArrival)
		}
		expected = &t
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, "", fmt.Errorf("商品不存在: %w", err)
	}

	poNumber, err := s.refGen.NextPONumber(ctx)
	if err != nil {
		return nil, "", err
	}

	po := &entity.PurchaseOrder{
		PONumber:        poNumber,
		ProductID:       req.ProductID,
		SupplierName:    req.SupplierName,
		OrderedQuantity: req.Quantity,
		Status:          entity.POStatusAwaitingApproval,
		ExpectedArrival: expected,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}

	if err := s.repo.Create(ctx, po); err != nil {
		return nil, "", fmt.Errorf("创建采购订单失败: %w", err)
	}

	if err := s.ensureStockRecord(ctx, product); err != nil {
		return nil, "", err
	}

	if product.Status == entity.ProductStatusPlanning {
		if err := s.productRepo.UpdateStatus(ctx, product.ID, entity.ProductStatusOnOrder); err != nil {
			return nil, "", fmt.Errorf("级联商品状态失败: %w", err)
		}
		if err := s.reservations.RefreshStatus(ctx, product.ID); err != nil {
			return nil, "", err
		}
	}

	token, err := s.tokens.Issue(ctx, po.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("采购订单已创建，等待供应商确认",
		zap.String("po_number", poNumber),
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity))
	return po, token, nil
}

// ensureStockRecord 商品首次进入库存时建立计数器记录
func (s *PurchaseService) ensureStockRecord(ctx context.Context, product *entity.Product) error {
	_, err := s.stockRepo.GetByProduct(ctx, product.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	rec := &entity.StockRecord{
		ProductID: product.ID,
		Status:    DeriveStockStatus(0, 0, product.Status),
	}
	return s.stockRepo.Create(ctx, rec)
}

// ConfirmPurchaseOrder 供应商点击确认：AWAITING_APPROVAL → DELIVERY_IN_PROCESS
func (s *PurchaseService) ConfirmPurchaseOrder(ctx context.Context, token, confirmedBy string) (*entity.PurchaseOrder, error) {
	poID, err := s.tokens.Redeem(ctx, token)
	if err != nil {
		return nil, err
	}
	po, err := s.repo.GetByID(ctx, poID)
	if err != nil {
		return nil, fmt.Errorf("采购订单不存在: %w", err)
	}
	if po.Status != entity.POStatusAwaitingApproval {
		return nil, fmt.Errorf("%w: 采购订单状态 %s 不允许确认", ErrValidation, po.Status)
	}
	po.Status = entity.POStatusDeliveryInProcess
	po.ConfirmedBy = confirmedBy
	po.UpdatedBy = confirmedBy
	if err := s.repo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	return po, nil
}

// DeclinePurchaseOrder 供应商拒绝：AWAITING_APPROVAL → FAILED（终态）
func (s *PurchaseService) DeclinePurchaseOrder(ctx context.Context, token, declinedBy string) (*entity.PurchaseOrder, error) {
	poID, err := s.tokens.Redeem(ctx, token)
	if err != nil {
		return nil, err
	}
	po, err := s.repo.GetByID(ctx, poID)
	if err != nil {
		return nil, fmt.Errorf("采购订单不存在: %w", err)
	}
	if po.Status != entity.POStatusAwaitingApproval {
		return nil, fmt.Errorf("%w: 采购订单状态 %s 不允许拒绝", ErrValidation, po.Status)
	}
	po.Status = entity.POStatusFailed
	po.UpdatedBy = declinedBy
	if err := s.repo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	if err := s.revertIncoming(ctx, po.ProductID); err != nil {
		return nil, err
	}
	return po, nil
}

type ReceivePurchaseOrderRequest struct {
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ActualArrival string `json:"actual_arrival"` // YYYY-MM-DD，缺省取当天
}

// ReceivePurchaseOrder 收货
// 终态订单拒收；到货日期不得晚于当天；收货量累加且不超过订购量；
// 现货按本次收货量增加（非预占兑现）；收满后商品级联回 ACTIVE。
// 商品级联、入库、订单更新在同一事务内提交，重试不会重复计入
func (s *PurchaseService) ReceivePurchaseOrder(ctx context.Context, id string, req ReceivePurchaseOrderRequest, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("采购订单不存在: %w", err)
	}
	if po.IsFinalized() {
		return nil, fmt.Errorf("%w: 采购订单 %s 已处于终态 %s", ErrFinalized, po.PONumber, po.Status)
	}
	if po.Status != entity.POStatusDeliveryInProcess && po.Status != entity.POStatusPartiallyReceived {
		return nil, fmt.Errorf("%w: 采购订单状态 %s 不允许收货", ErrValidation, po.Status)
	}

	arrival := time.Now()
	if req.ActualArrival != "" {
		t, perr := time.Parse("2006-01-02", req.ActualArrival)
		if perr != nil {
			return nil, fmt.Errorf("%w: 到货日期格式错误: %s", ErrValidation, req.ActualArrival)
		}
		arrival = t
	}
	if arrival.After(time.Now()) {
		return nil, fmt.Errorf("%w: 到货日期不能晚于当天", ErrValidation)
	}

	remaining := po.OrderedQuantity - po.ReceivedQuantity
	if req.Quantity > remaining {
		return nil, fmt.Errorf("%w: 收货量 %d 超出未收量 %d", ErrValidation, req.Quantity, remaining)
	}

	po.ReceivedQuantity += req.Quantity
	po.ActualArrival = &arrival
	po.UpdatedBy = userID
	if po.ReceivedQuantity >= po.OrderedQuantity {
		po.Status = entity.POStatusReceived
	} else {
		po.Status = entity.POStatusPartiallyReceived
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, perr := s.productRepo.GetByID(ctx, po.ProductID)
		if perr != nil {
			return perr
		}

		// 收满后先级联商品状态，入库时的状态推导才会落在 ACTIVE 分支
		productStatus := product.Status
		if po.Status == entity.POStatusReceived &&
			(product.Status == entity.ProductStatusOnOrder || product.Status == entity.ProductStatusPlanning) {
			if uerr := s.productRepo.SetStatus(tx, product.ID, entity.ProductStatusActive); uerr != nil {
				return fmt.Errorf("级联商品状态失败: %w", uerr)
			}
			productStatus = entity.ProductStatusActive
		}

		rec, serr := s.stockRepo.GetForUpdate(tx, po.ProductID)
		if serr != nil {
			return fmt.Errorf("库存记录不存在: %w", serr)
		}
		if aerr := applyDelta(rec, productStatus, req.Quantity, 0); aerr != nil {
			return aerr
		}
		if serr := s.stockRepo.Save(tx, rec); serr != nil {
			return serr
		}
		if merr := s.stockRepo.CreateMovement(tx, &entity.StockMovement{
			ProductID:     po.ProductID,
			MovementType:  entity.MovementPurchaseIn,
			Quantity:      req.Quantity,
			ReferenceType: "PO",
			ReferenceID:   po.ID,
			ReferenceCode: po.PONumber,
			CreatedBy:     userID,
		}); merr != nil {
			return merr
		}

		if uerr := s.repo.Save(tx, po); uerr != nil {
			return fmt.Errorf("更新采购订单失败: %w", uerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// CancelPurchaseOrder 内部取消，仅非终态可取消；回退在途标记
func (s *PurchaseService) CancelPurchaseOrder(ctx context.Context, id, userID string) (*entity.PurchaseOrder, error) {
	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("采购订单不存在: %w", err)
	}
	if po.IsFinalized() {
		return nil, fmt.Errorf("%w: 采购订单 %s 已处于终态 %s", ErrFinalized, po.PONumber, po.Status)
	}
	po.Status = entity.POStatusCancelled
	po.UpdatedBy = userID
	if err := s.repo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	if err := s.revertIncoming(ctx, po.ProductID); err != nil {
		return nil, err
	}
	return po, nil
}

// revertIncoming 回退为在途而提前推进的商品/库存状态
func (s *PurchaseService) revertIncoming(ctx context.Context, productID string) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status == entity.ProductStatusOnOrder {
		if err := s.productRepo.UpdateStatus(ctx, productID, entity.ProductStatusPlanning); err != nil {
			return fmt.Errorf("回退商品状态失败: %w", err)
		}
	}
	return s.reservations.RefreshStatus(ctx, productID)
}

func (s *PurchaseService) GetPurchaseOrderByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PurchaseService) ListPurchaseOrders(ctx context.Context, params repository.POListParams) ([]entity.PurchaseOrder, int64, error) {
	return s.repo.List(ctx, params)
}
