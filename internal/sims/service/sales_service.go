package service

import (
	"context"
	"fmt"
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"go.uber.org/zap"
)

// SalesService 销售订单工作流
// 建单逐行预占，任一环节失败时按逆序释放本次已预占的全部数量
type SalesService struct {
	repo         *repository.SalesRepository
	productRepo  *repository.ProductRepository
	reservations *ReservationService
	refGen       *RefGenService
	labels       *LabelStore
	logger       *zap.Logger
}

func NewSalesService(repo *repository.SalesRepository, productRepo *repository.ProductRepository, reservations *ReservationService, refGen *RefGenService, labels *LabelStore, logger *zap.Logger) *SalesService {
	return &SalesService{
		repo:         repo,
		productRepo:  productRepo,
		reservations: reservations,
		refGen:       refGen,
		labels:       labels,
		logger:       logger,
	}
}

type CreateSalesOrderRequest struct {
	EstimatedDeliveryDate string                   `json:"estimated_delivery_date"` // YYYY-MM-DD
	Items                 []CreateSalesOrderItem   `json:"items" binding:"required,min=1"`
}

type CreateSalesOrderItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// appliedReservation 本次调用中已生效的预占，用于失败补偿
type appliedReservation struct {
	productID string
	qty       int
}

// CreateSalesOrder 创建销售订单
// 每行经 ReservationService 原子预占；任一行可用量不足即中止，
// 之前已预占的行按逆序释放，已上传的标签一并删除
func (s *SalesService) CreateSalesOrder(ctx context.Context, req CreateSalesOrderRequest, userID string) (*entity.SalesOrder, error) {
	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return nil, fmt.Errorf("%w: 订单中商品重复: %s", ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = true
	}

	var estimated *time.Time
	if req.EstimatedDeliveryDate != "" {
		t, perr := time.Parse("2006-01-02", req.EstimatedDeliveryDate)
		if perr != nil {
			return nil, fmt.Errorf("%w: 预计交付日期格式错误: %s", ErrValidation, req.EstimatedDeliveryDate)
		}
		estimated = &t
	}

	products := make(map[string]*entity.Product, len(req.Items))
	for _, item := range req.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("商品不存在: %s: %w", item.ProductID, err)
		}
		if !product.IsOrderable() {
			return nil, fmt.Errorf("%w: 商品 %s 当前状态 %s 不可销售", ErrValidation, product.SKU, product.Status)
		}
		products[item.ProductID] = product
	}

	reference, err := s.refGen.NextOrderReference(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	ref := MovementRef{Type: "SO", Code: reference, UserID: userID}
	var applied []appliedReservation
	rollback := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			r := applied[i]
			if rerr := s.reservations.Release(ctx, r.productID, r.qty, ref); rerr != nil {
				s.logger.Error("补偿释放预占失败",
					zap.String("order_reference", reference),
					zap.String("product_id", r.productID),
					zap.Int("quantity", r.qty),
					zap.Error(rerr))
			}
		}
	}

	for _, item := range req.Items {
		ok, rerr := s.reservations.Reserve(ctx, item.ProductID, item.Quantity, ref)
		if rerr != nil {
			rollback()
			return nil, rerr
		}
		if !ok {
			rollback()
			product := products[item.ProductID]
			return nil, fmt.Errorf("%w: 商品 %s 可用库存不足，需要 %d",
				ErrInsufficientStock, product.SKU, item.Quantity)
		}
		applied = append(applied, appliedReservation{productID: item.ProductID, qty: item.Quantity})
	}

	so := &entity.SalesOrder{
		OrderReference:        reference,
		Status:                entity.SOStatusPending,
		EstimatedDeliveryDate: estimated,
		CreatedBy:             userID,
	}

	var totalPrice float64
	var items []entity.OrderItem
	for _, item := range req.Items {
		product := products[item.ProductID]
		orderPrice := product.Price * float64(item.Quantity)
		totalPrice += orderPrice
		items = append(items, entity.OrderItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  product.Price,
			OrderPrice: orderPrice,
			Status:     entity.ItemStatusPending,
		})
	}
	so.TotalPrice = totalPrice
	so.Items = items

	labelObject, err := s.labels.Put(ctx, reference, []byte(reference))
	if err != nil {
		rollback()
		return nil, err
	}
	so.LabelObject = labelObject

	if err := s.repo.Create(ctx, so); err != nil {
		if lerr := s.labels.Remove(ctx, labelObject); lerr != nil {
			s.logger.Error("回滚删除订单标签失败",
				zap.String("order_reference", reference), zap.Error(lerr))
		}
		rollback()
		return nil, fmt.Errorf("创建销售订单失败: %w", err)
	}
	return so, nil
}

func (s *SalesService) GetSalesOrderByID(ctx context.Context, id string) (*entity.SalesOrder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *SalesService) ListSalesOrders(ctx context.Context, params repository.SOListParams) ([]entity.SalesOrder, int64, error) {
	return s.repo.List(ctx, params)
}

type AdjustItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// appliedAdjustment 本次批量调整中已生效的增减
type appliedAdjustment struct {
	productID string
	delta     int
}

// AdjustQuantities 批量调整订单行数量
// 增量预占、减量释放；后续行失败时对已生效调整做对称回滚（预占↔释放互换）
func (s *SalesService) AdjustQuantities(ctx context.Context, orderID string, reqs []AdjustItemRequest, userID string) (*entity.SalesOrder, error) {
	so, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("销售订单不存在: %w", err)
	}
	if so.IsFinalized() {
		return nil, fmt.Errorf("%w: 订单 %s 已处于终态 %s", ErrFinalized, so.OrderReference, so.Status)
	}

	itemsByID := make(map[string]*entity.OrderItem, len(so.Items))
	for i := range so.Items {
		itemsByID[so.Items[i].ID] = &so.Items[i]
	}

	ref := MovementRef{Type: "SO", ID: so.ID, Code: so.OrderReference, UserID: userID}
	var applied []appliedAdjustment
	rollback := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			a := applied[i]
			var rerr error
			if a.delta > 0 {
				rerr = s.reservations.Release(ctx, a.productID, a.delta, ref)
			} else {
				_, rerr = s.reservations.Reserve(ctx, a.productID, -a.delta, ref)
			}
			if rerr != nil {
				s.logger.Error("调整回滚失败",
					zap.String("order_reference", so.OrderReference),
					zap.String("product_id", a.productID),
					zap.Int("delta", a.delta),
					zap.Error(rerr))
			}
		}
	}

	for _, req := range reqs {
		item, found := itemsByID[req.ItemID]
		if !found {
			rollback()
			return nil, fmt.Errorf("订单行不存在: %s: %w", req.ItemID, repository.ErrNotFound)
		}
		if item.IsFinalized() {
			rollback()
			return nil, fmt.Errorf("%w: 订单行 %s 已全部出库", ErrFinalized, item.ID)
		}
		if req.Quantity < item.ApprovedQuantity {
			rollback()
			return nil, fmt.Errorf("%w: 调整后数量 %d 低于已出库数量 %d",
				ErrValidation, req.Quantity, item.ApprovedQuantity)
		}

		delta := req.Quantity - item.Quantity
		if delta == 0 {
			continue
		}
		if delta > 0 {
			ok, rerr := s.reservations.Reserve(ctx, item.ProductID, delta, ref)
			if rerr != nil {
				rollback()
				return nil, rerr
			}
			if !ok {
				rollback()
				return nil, fmt.Errorf("%w: 商品 %s 可用库存不足，需追加 %d",
					ErrInsufficientStock, item.ProductID, delta)
			}
		} else {
			if rerr := s.reservations.Release(ctx, item.ProductID, -delta, ref); rerr != nil {
				rollback()
				return nil, rerr
			}
		}
		applied = append(applied, appliedAdjustment{productID: item.ProductID, delta: delta})

		item.Quantity = req.Quantity
		item.OrderPrice = item.UnitPrice * float64(req.Quantity)
		item.Status = deriveItemStatus(item)
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			rollback()
			return nil, fmt.Errorf("更新订单行失败: %w", err)
		}
	}

	s.refreshOrderStatus(so)
	so.UpdatedBy = userID
	if err := s.repo.Update(ctx, so); err != nil {
		rollback()
		return nil, fmt.Errorf("更新销售订单失败: %w", err)
	}
	return so, nil
}

// RemoveItem 删除订单行，释放该行剩余的全部预占
func (s *SalesService) RemoveItem(ctx context.Context, orderID, itemID, userID string) (*entity.SalesOrder, error) {
	so, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("销售订单不存在: %w", err)
	}
	if so.IsFinalized() {
		return nil, fmt.Errorf("%w: 订单 %s 已处于终态 %s", ErrFinalized, so.OrderReference, so.Status)
	}

	var target *entity.OrderItem
	for i := range so.Items {
		if so.Items[i].ID == itemID {
			target = &so.Items[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("订单行不存在: %s: %w", itemID, repository.ErrNotFound)
	}
	if target.IsFinalized() {
		return nil, fmt.Errorf("%w: 订单行 %s 已全部出库，不允许删除", ErrFinalized, itemID)
	}

	ref := MovementRef{Type: "SO", ID: so.ID, Code: so.OrderReference, UserID: userID}
	if reserved := target.ReservedQuantity(); reserved > 0 {
		if err := s.reservations.Release(ctx, target.ProductID, reserved, ref); err != nil {
			return nil, err
		}
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("删除订单行失败: %w", err)
	}

	remaining := so.Items[:0]
	for i := range so.Items {
		if so.Items[i].ID != itemID {
			remaining = append(remaining, so.Items[i])
		}
	}
	so.Items = remaining

	s.refreshOrderStatus(so)
	so.UpdatedBy = userID
	if err := s.repo.Update(ctx, so); err != nil {
		return nil, fmt.Errorf("更新销售订单失败: %w", err)
	}
	return so, nil
}

// CancelSalesOrder 取消订单，释放所有行的剩余预占
func (s *SalesService) CancelSalesOrder(ctx context.Context, orderID, userID string) error {
	so, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("销售订单不存在: %w", err)
	}
	if !so.IsCancellable() {
		return fmt.Errorf("%w: 订单状态 %s 不允许取消", ErrValidation, so.Status)
	}

	ref := MovementRef{Type: "SO", ID: so.ID, Code: so.OrderReference, UserID: userID}
	for i := range so.Items {
		reserved := so.Items[i].ReservedQuantity()
		if reserved <= 0 {
			continue
		}
		if err := s.reservations.Release(ctx, so.Items[i].ProductID, reserved, ref); err != nil {
			return err
		}
	}

	so.Status = entity.SOStatusCancelled
	so.UpdatedBy = userID
	return s.repo.Update(ctx, so)
}

type StockOutItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// StockOut 出库：将预占转为实际扣减，这是销售路径上唯一真正减少现货的操作
func (s *SalesService) StockOut(ctx context.Context, orderID string, reqs []StockOutItemRequest, userID string) (*entity.SalesOrder, error) {
	so, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("销售订单不存在: %w", err)
	}
	if so.IsFinalized() {
		return nil, fmt.Errorf("%w: 订单 %s 已处于终态 %s", ErrFinalized, so.OrderReference, so.Status)
	}

	itemsByID := make(map[string]*entity.OrderItem, len(so.Items))
	for i := range so.Items {
		itemsByID[so.Items[i].ID] = &so.Items[i]
	}

	ref := MovementRef{Type: "SO", ID: so.ID, Code: so.OrderReference, UserID: userID}
	for _, req := range reqs {
		item, found := itemsByID[req.ItemID]
		if !found {
			return nil, fmt.Errorf("订单行不存在: %s: %w", req.ItemID, repository.ErrNotFound)
		}
		if req.Quantity > item.ReservedQuantity() {
			return nil, fmt.Errorf("%w: 订单行 %s 出库量 %d 超出剩余数量 %d",
				ErrValidation, item.ID, req.Quantity, item.ReservedQuantity())
		}
		if err := s.reservations.Fulfill(ctx, item.ProductID, req.Quantity, ref); err != nil {
			return nil, err
		}
		item.ApprovedQuantity += req.Quantity
		item.Status = deriveItemStatus(item)
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("更新订单行失败: %w", err)
		}
	}

	switch deriveOrderStatus(so.Items) {
	case entity.SOStatusApproved:
		now := time.Now()
		so.Status = entity.SOStatusShipped
		so.DeliveryDate = &now
	case entity.SOStatusPartiallyApproved:
		so.Status = entity.SOStatusPartiallyShipped
	}
	so.UpdatedBy = userID
	if err := s.repo.Update(ctx, so); err != nil {
		return nil, fmt.Errorf("更新销售订单失败: %w", err)
	}
	return so, nil
}

// deriveItemStatus 订单行状态由已出库量推导
func deriveItemStatus(item *entity.OrderItem) string {
	switch {
	case item.ApprovedQuantity >= item.Quantity:
		return entity.ItemStatusApproved
	case item.ApprovedQuantity > 0:
		return entity.ItemStatusPartiallyApproved
	default:
		return entity.ItemStatusPending
	}
}

// deriveOrderStatus 全部行出库完 → APPROVED，任一行有出库 → PARTIALLY_APPROVED，否则 PENDING
func deriveOrderStatus(items []entity.OrderItem) string {
	if len(items) == 0 {
		return entity.SOStatusPending
	}
	allDone := true
	anyDone := false
	for i := range items {
		if items[i].ApprovedQuantity >= items[i].Quantity {
			anyDone = true
			continue
		}
		allDone = false
		if items[i].ApprovedQuantity > 0 {
			anyDone = true
		}
	}
	switch {
	case allDone:
		return entity.SOStatusApproved
	case anyDone:
		return entity.SOStatusPartiallyApproved
	default:
		return entity.SOStatusPending
	}
}

// refreshOrderStatus 调整/删行后重推订单状态，状态只前进不回退
// 已部分发货的订单在剩余行全部出库完时直接推进为已发货
func (s *SalesService) refreshOrderStatus(so *entity.SalesOrder) {
	var total float64
	for i := range so.Items {
		total += so.Items[i].OrderPrice
	}
	so.TotalPrice = total

	derived := deriveOrderStatus(so.Items)
	if so.Status == entity.SOStatusPartiallyShipped {
		if derived == entity.SOStatusApproved {
			now := time.Now()
			so.Status = entity.SOStatusShipped
			so.DeliveryDate = &now
		}
		return
	}
	so.Status = derived
}
