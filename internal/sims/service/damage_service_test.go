package service

import (
	"context"
	"errors"
	"testing"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDamageTest(t *testing.T) (*DamageService, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	reservations := NewReservationService(db, repos.Stock, repos.Product, logger)
	svc := NewDamageService(repos.Damage, repos.Stock, reservations, logger)
	return svc, repos, db
}

func TestAddDamageLoss(t *testing.T) {
	svc, repos, db := setupDamageTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-DMG-001", "易损商品", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 0, 2)

	report, err := svc.AddDamageLoss(ctx, AddDamageLossRequest{
		ProductID:    product.ID,
		QuantityLost: 3,
		Reason:       "运输破损",
	}, "test-user")
	if err != nil {
		t.Fatalf("AddDamageLoss failed: %v", err)
	}
	if report.QuantityLost != 3 {
		t.Fatalf("got quantity_lost=%d, want 3", report.QuantityLost)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 7 {
		t.Fatalf("got current=%d, want 7", rec.CurrentStock)
	}

	movements, _, err := repos.Stock.ListMovements(ctx, product.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 || movements[0].MovementType != entity.MovementDamageOut {
		t.Fatalf("expected one DAMAGE_OUT movement, got %+v", movements)
	}
}

func TestAddDamageLossRejectsOverCurrent(t *testing.T) {
	svc, repos, db := setupDamageTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-DMG-002", "易损商品B", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 5, 0, 1)

	_, err := svc.AddDamageLoss(ctx, AddDamageLossRequest{
		ProductID:    product.ID,
		QuantityLost: 8,
		Reason:       "盘亏",
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 5 {
		t.Fatalf("stock changed on rejected report: current=%d", rec.CurrentStock)
	}
}

// TestAddDamageLossRejectsOverAvailable 报损量超出可用量（现货减预占）时拒绝，不落登记行
func TestAddDamageLossRejectsOverAvailable(t *testing.T) {
	svc, repos, db := setupDamageTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-DMG-005", "易损商品E", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 8, 2)

	_, err := svc.AddDamageLoss(ctx, AddDamageLossRequest{
		ProductID:    product.ID,
		QuantityLost: 5,
		Reason:       "盘亏",
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 10 || rec.ReservedStock != 8 {
		t.Fatalf("stock changed on rejected report: current=%d reserved=%d", rec.CurrentStock, rec.ReservedStock)
	}

	reports, total, err := svc.ListDamageLosses(ctx, repository.DamageListParams{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("ListDamageLosses failed: %v", err)
	}
	if total != 0 || len(reports) != 0 {
		t.Fatalf("expected no persisted reports, got total=%d", total)
	}
}

func TestUpdateDamageLossAdjustsStock(t *testing.T) {
	svc, repos, db := setupDamageTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-DMG-003", "易损商品C", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 0, 2)

	report, err := svc.AddDamageLoss(ctx, AddDamageLossRequest{
		ProductID:    product.ID,
		QuantityLost: 3,
		Reason:       "运输破损",
	}, "test-user")
	if err != nil {
		t.Fatalf("AddDamageLoss failed: %v", err)
	}

	// 调高：追加扣减 2
	if _, err := svc.UpdateDamageLoss(ctx, report.ID, UpdateDamageLossRequest{QuantityLost: 5}, "test-user"); err != nil {
		t.Fatalf("UpdateDamageLoss failed: %v", err)
	}
	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 5 {
		t.Fatalf("got current=%d, want 5", rec.CurrentStock)
	}

	// 调低：冲回差额 4
	if _, err := svc.UpdateDamageLoss(ctx, report.ID, UpdateDamageLossRequest{QuantityLost: 1}, "test-user"); err != nil {
		t.Fatalf("UpdateDamageLoss failed: %v", err)
	}
	rec, _ = repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 9 {
		t.Fatalf("got current=%d, want 9", rec.CurrentStock)
	}
}

func TestDeleteDamageLossRestoresStock(t *testing.T) {
	svc, repos, db := setupDamageTest(t)
	ctx := context.Background()

	product := testutil.SeedProduct(t, db, "", "SKU-DMG-004", "易损商品D", entity.ProductStatusActive)
	testutil.SeedStockRecord(t, db, product.ID, 10, 0, 2)

	report, err := svc.AddDamageLoss(ctx, AddDamageLossRequest{
		ProductID:    product.ID,
		QuantityLost: 4,
		Reason:       "仓库进水",
	}, "test-user")
	if err != nil {
		t.Fatalf("AddDamageLoss failed: %v", err)
	}

	if err := svc.DeleteDamageLoss(ctx, report.ID, "test-user"); err != nil {
		t.Fatalf("DeleteDamageLoss failed: %v", err)
	}

	rec, _ := repos.Stock.GetByProduct(ctx, product.ID)
	if rec.CurrentStock != 10 {
		t.Fatalf("got current=%d after delete, want 10", rec.CurrentStock)
	}

	// 软删除后不可见
	if _, err := svc.GetDamageLossByID(ctx, report.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
