package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupReservationTest(t *testing.T) (*ReservationService, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewReservationService(db, repos.Stock, repos.Product, zap.NewNop())
	return svc, repos, db
}

func TestReserveAndRelease(t *testing.T) {
	svc, repos, db := setupReservationTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-RES-001", "测试商品A", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 0, 2)

	ref := MovementRef{Type: "SO", Code: "ORD-TEST-001", UserID: "test-user"}

	ok, err := svc.Reserve(ctx, product.ID, 6, ref)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !ok {
		t.Fatal("expected reservation to succeed")
	}

	rec, err := repos.Stock.GetByProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetByProduct failed: %v", err)
	}
	if rec.CurrentStock != 10 || rec.ReservedStock != 6 {
		t.Fatalf("got current=%d reserved=%d, want 10/6", rec.CurrentStock, rec.ReservedStock)
	}
	if rec.AvailableStock() != 4 {
		t.Fatalf("got available=%d, want 4", rec.AvailableStock())
	}

	// 可用量不足：不报错但拒绝，且计数器不变
	ok, err = svc.Reserve(ctx, product.ID, 5, ref)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if ok {
		t.Fatal("expected reservation to be refused")
	}
	rec, _ = repos.Stock.GetByProduct(ctx, product.ID)
	if rec.ReservedStock != 6 {
		t.Fatalf("counters changed on refused reservation: reserved=%d", rec.ReservedStock)
	}

	// 释放后恢复原状
	if err := svc.Release(ctx, product.ID, 6, ref); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	rec, _ = repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 10 || rec.ReservedStock != 0 {
		t.Fatalf("got current=%d reserved=%d after release, want 10/0", rec.CurrentStock, rec.ReservedStock)
	}
}

func TestReleaseClampsToReserved(t *testing.T) {
	svc, repos, db := setupReservationTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-RES-002", "测试商品B", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 3, 2)

	ref := MovementRef{Type: "SO", Code: "ORD-TEST-002", UserID: "test-user"}
	if err := svc.Release(ctx, product.ID, 8, ref); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.ReservedStock != 0 {
		t.Fatalf("got reserved=%d, want 0", rec.ReservedStock)
	}
	if rec.CurrentStock != 10 {
		t.Fatalf("release must not touch current stock: current=%d", rec.CurrentStock)
	}
}

func TestFulfill(t *testing.T) {
	svc, repos, db := setupReservationTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-RES-003", "测试商品C", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 4, 2)

	ref := MovementRef{Type: "SO", Code: "ORD-TEST-003", UserID: "test-user"}
	if err := svc.Fulfill(ctx, product.ID, 4, ref); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 6 || rec.ReservedStock != 0 {
		t.Fatalf("got current=%d reserved=%d, want 6/0", rec.CurrentStock, rec.ReservedStock)
	}

	// 出库量超出预占量是程序错误而非业务拒绝
	err := svc.Fulfill(ctx, product.ID, 1, ref)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestReserveWritesMovement(t *testing.T) {
	svc, repos, db := setupReservationTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-RES-004", "测试商品D", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 0, 2)

	ref := MovementRef{Type: "SO", Code: "ORD-TEST-004", UserID: "test-user"}
	if _, err := svc.Reserve(ctx, product.ID, 3, ref); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	movements, total, err := repos.Stock.ListMovements(ctx, product.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 movement, got %d", total)
	}
	m := movements[0]
	if m.MovementType != entity.MovementReserve || m.Quantity != 3 || m.ReferenceCode != "ORD-TEST-004" {
		t.Fatalf("unexpected movement: type=%s qty=%d ref=%s", m.MovementType, m.Quantity, m.ReferenceCode)
	}
}

// TestConcurrentReserveNoOversell 并发预占不超卖：
// 现货 10，20 个并发请求各预占 1，恰好 10 个成功
func TestConcurrentReserveNoOversell(t *testing.T) {
	svc, repos, db := setupReservationTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-RES-005", "测试商品E", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 0, 2)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Reserve(ctx, product.ID, 1, MovementRef{Type: "SO", Code: "ORD-CONC", UserID: "test-user"})
			if err != nil {
				errs <- err
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Reserve failed: %v", err)
	}

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful reservations, got %d", succeeded)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.ReservedStock != 10 || rec.CurrentStock != 10 {
		t.Fatalf("got current=%d reserved=%d, want 10/10", rec.CurrentStock, rec.ReservedStock)
	}
	if rec.AvailableStock() != 0 {
		t.Fatalf("got available=%d, want 0", rec.AvailableStock())
	}
}
