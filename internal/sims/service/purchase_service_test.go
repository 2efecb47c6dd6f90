package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPurchaseTest(t *testing.T, rdb *redis.Client) (*PurchaseService, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	reservations := NewReservationService(db, repos.Stock, repos.Product, logger)
	refGen := NewRefGenService(db, repos.Reference, repos.Purchase)
	tokens := NewConfirmTokenStore(rdb, time.Hour)
	svc := NewPurchaseService(db, repos.Purchase, repos.Product, repos.Stock, reservations, refGen, tokens, logger)
	return svc, repos, db
}

// seedConfirmedPO 直接落库一张已确认的采购订单，绕开令牌环节
func seedConfirmedPO(t *testing.T, repos *repository.Repositories, productID string, qty int) *entity.PurchaseOrder {
	t.Helper()
	po := &entity.PurchaseOrder{
		PONumber:        "PO-TEST" + productID[:4],
		ProductID:       productID,
		OrderedQuantity: qty,
		Status:          entity.POStatusDeliveryInProcess,
		CreatedBy:       "test-user",
	}
	if err := repos.Purchase.Create(context.Background(), po); err != nil {
		t.Fatalf("Failed to seed purchase order: %v", err)
	}
	return po
}

func TestCreateAndConfirmPurchaseOrder(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	svc, repos, db := setupPurchaseTest(t, rdb)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-PO-001", "待采购商品", entity.ProductStatusPlanning)

	po, token, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderRequest{
		ProductID:    product.ID,
		Quantity:     10,
		SupplierName: "测试供应商",
	}, "test-user")
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}
	if po.Status != entity.POStatusAwaitingApproval {
		t.Fatalf("got status %s, want AWAITING_APPROVAL", po.Status)
	}
	if token == "" {
		t.Fatal("expected a confirmation token")
	}

	// 首采建立库存记录，商品级联为在途，库存标记 INCOMING
	rec, err := repos.Stock.GetByProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("stock record not created: %v", err)
	}
	if rec.Status != entity.StockStatusIncoming {
		t.Fatalf("got stock status %s, want INCOMING", rec.Status)
	}
	p, _ := repos.Product.GetByID(ctx, product.ID)
	if p.Status != entity.ProductStatusOnOrder {
		t.Fatalf("got product status %s, want ON_ORDER", p.Status)
	}

	// 令牌确认后进入配送中，令牌一次性失效
	confirmed, err := svc.ConfirmPurchaseOrder(ctx, token, "supplier-a")
	if err != nil {
		t.Fatalf("ConfirmPurchaseOrder failed: %v", err)
	}
	if confirmed.Status != entity.POStatusDeliveryInProcess {
		t.Fatalf("got status %s, want DELIVERY_IN_PROCESS", confirmed.Status)
	}
	if confirmed.ConfirmedBy != "supplier-a" {
		t.Fatalf("got confirmed_by %s, want supplier-a", confirmed.ConfirmedBy)
	}
	if _, err := svc.ConfirmPurchaseOrder(ctx, token, "supplier-a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on reused token, got %v", err)
	}
}

func TestDeclinePurchaseOrderRevertsIncoming(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	svc, repos, db := setupPurchaseTest(t, rdb)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-PO-002", "待采购商品B", entity.ProductStatusPlanning)

	_, token, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderRequest{
		ProductID: product.ID,
		Quantity:  5,
	}, "test-user")
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}

	declined, err := svc.DeclinePurchaseOrder(ctx, token, "supplier-b")
	if err != nil {
		t.Fatalf("DeclinePurchaseOrder failed: %v", err)
	}
	if declined.Status != entity.POStatusFailed {
		t.Fatalf("got status %s, want FAILED", declined.Status)
	}

	// 在途标记回退
	p, _ := repos.Product.GetByID(ctx, product.ID)
	if p.Status != entity.ProductStatusPlanning {
		t.Fatalf("got product status %s, want PLANNING", p.Status)
	}
	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.Status != entity.StockStatusLowStock {
		t.Fatalf("got stock status %s, want LOW_STOCK", rec.Status)
	}
}

func TestReceivePurchaseOrderPartialThenFull(t *testing.T) {
	svc, repos, db := setupPurchaseTest(t, nil)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-PO-003", "收货商品", entity.ProductStatusOnOrder)
	testutil.SeedStockRecord(t, db, product.ID, 0, 0, 2)
	po := seedConfirmedPO(t, repos, product.ID, 10)

	// 第一次收 4，部分收货
	updated, err := svc.ReceivePurchaseOrder(ctx, po.ID, ReceivePurchaseOrderRequest{Quantity: 4}, "test-user")
	if err != nil {
		t.Fatalf("ReceivePurchaseOrder failed: %v", err)
	}
	if updated.Status != entity.POStatusPartiallyReceived {
		t.Fatalf("got status %s, want PARTIALLY_RECEIVED", updated.Status)
	}
	if updated.ReceivedQuantity != 4 {
		t.Fatalf("got received=%d, want 4", updated.ReceivedQuantity)
	}
	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 4 {
		t.Fatalf("got current=%d, want 4", rec.CurrentStock)
	}

	// 超收拒绝
	if _, err := svc.ReceivePurchaseOrder(ctx, po.ID, ReceivePurchaseOrderRequest{Quantity: 7}, "test-user"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on over-receive, got %v", err)
	}

	// 收满剩余 6，订单完成且商品级联回 ACTIVE
	updated, err = svc.ReceivePurchaseOrder(ctx, po.ID, ReceivePurchaseOrderRequest{Quantity: 6}, "test-user")
	if err != nil {
		t.Fatalf("ReceivePurchaseOrder failed: %v", err)
	}
	if updated.Status != entity.POStatusReceived {
		t.Fatalf("got status %s, want RECEIVED", updated.Status)
	}
	rec, _ = repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 10 {
		t.Fatalf("got current=%d, want 10", rec.CurrentStock)
	}
	if rec.Status != entity.StockStatusInStock {
		t.Fatalf("got stock status %s, want IN_STOCK", rec.Status)
	}
	p, _ := repos.Product.GetByID(ctx, product.ID)
	if p.Status != entity.ProductStatusActive {
		t.Fatalf("got product status %s, want ACTIVE", p.Status)
	}

	// 终态订单拒收
	if _, err := svc.ReceivePurchaseOrder(ctx, po.ID, ReceivePurchaseOrderRequest{Quantity: 1}, "test-user"); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
}

// TestReceivePurchaseOrderAtomicRollback 入库失败时商品级联与订单更新一并回滚
func TestReceivePurchaseOrderAtomicRollback(t *testing.T) {
	svc, repos, db := setupPurchaseTest(t, nil)
	ctx := context.Background()

	// 不建库存记录，收满触发级联后入库失败
	product := testutil.SeedProduct(t, db, "", "SKU-PO-006", "无库存记录商品", entity.ProductStatusOnOrder)
	po := seedConfirmedPO(t, repos, product.ID, 5)

	if _, err := svc.ReceivePurchaseOrder(ctx, po.ID, ReceivePurchaseOrderRequest{Quantity: 5}, "test-user"); err == nil {
		t.Fatal("expected receive to fail without a stock record")
	}

	p, _ := repos.Product.GetByID(ctx, product.ID)
	if p.Status != entity.ProductStatusOnOrder {
		t.Fatalf("got product status %s after rollback, want ON_ORDER", p.Status)
	}
	got, _ := repos.Purchase.GetByID(ctx, po.ID)
	if got.ReceivedQuantity != 0 {
		t.Fatalf("got received=%d after rollback, want 0", got.ReceivedQuantity)
	}
	if got.Status != entity.POStatusDeliveryInProcess {
		t.Fatalf("got status %s after rollback, want DELIVERY_IN_PROCESS", got.Status)
	}
}

// TestCreatePurchaseOrderRejectsBadArrival 预计到货日期格式错误时拒绝建单
func TestCreatePurchaseOrderRejectsBadArrival(t *testing.T) {
	svc, repos, db := setupPurchaseTest(t, nil)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-PO-007", "待采购商品C", entity.ProductStatusPlanning)

	_, _, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderRequest{
		ProductID:       product.ID,
		Quantity:        5,
		ExpectedArrival: "2026/09/01",
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	p, _ := repos.Product.GetByID(ctx, product.ID)
	if p.Status != entity.ProductStatusPlanning {
		t.Fatalf("got product status %s after rejected create, want PLANNING", p.Status)
	}
}

func TestReceivePurchaseOrderRejectsFutureArrival(t *testing.T) {
	svc, repos, db := setupPurchaseTest(t, nil)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-PO-004", "收货商品B", entity.ProductStatusOnOrder)
	testutil.SeedStockRecord(t, db, product.ID, 0, 0, 2)
	po := seedConfirmedPO(t, repos, product.ID, 5)

	future := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	_, err := svc.ReceivePurchaseOrder(ctx, po.ID, ReceivePurchaseOrderRequest{
		Quantity:      1,
		ActualArrival: future,
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on future arrival, got %v", err)
	}
}

func TestCancelPurchaseOrderRevertsIncoming(t *testing.T) {
	svc, repos, db := setupPurchaseTest(t, nil)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-PO-005", "取消商品", entity.ProductStatusOnOrder)
	testutil.SeedStockRecord(t, db, product.ID, 0, 0, 2)
	po := seedConfirmedPO(t, repos, product.ID, 5)

	cancelled, err := svc.CancelPurchaseOrder(ctx, po.ID, "test-user")
	if err != nil {
		t.Fatalf("CancelPurchaseOrder failed: %v", err)
	}
	if cancelled.Status != entity.POStatusCancelled {
		t.Fatalf("got status %s, want CANCELLED", cancelled.Status)
	}

	p, _ := repos.Product.GetByID(ctx, product.ID)
	if p.Status != entity.ProductStatusPlanning {
		t.Fatalf("got product status %s, want PLANNING", p.Status)
	}

	// 终态不可再取消
	if _, err := svc.CancelPurchaseOrder(ctx, po.ID, "test-user"); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
}
