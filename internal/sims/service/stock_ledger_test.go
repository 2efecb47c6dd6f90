package service

import (
	"errors"
	"testing"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
)

func TestDeriveStockStatus(t *testing.T) {
	cases := []struct {
		name          string
		currentStock  int
		minLevel      int
		productStatus string
		want          string
	}{
		{"有现货且高于阈值", 10, 5, entity.ProductStatusActive, entity.StockStatusInStock},
		{"现货等于阈值", 5, 5, entity.ProductStatusActive, entity.StockStatusLowStock},
		{"现货低于阈值", 3, 5, entity.ProductStatusActive, entity.StockStatusLowStock},
		{"现货为零", 0, 5, entity.ProductStatusActive, entity.StockStatusLowStock},
		{"在途且无现货", 0, 5, entity.ProductStatusOnOrder, entity.StockStatusIncoming},
		{"在途但已有现货", 2, 5, entity.ProductStatusOnOrder, entity.StockStatusLowStock},
		{"在途且现货充足", 10, 5, entity.ProductStatusOnOrder, entity.StockStatusInStock},
		{"规划中无现货", 0, 5, entity.ProductStatusPlanning, entity.StockStatusLowStock},
		{"已下架", 10, 5, entity.ProductStatusArchived, entity.StockStatusInvalid},
		{"受限", 10, 5, entity.ProductStatusRestricted, entity.StockStatusInvalid},
		{"已停产", 0, 5, entity.ProductStatusDiscontinued, entity.StockStatusInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStockStatus(tc.currentStock, tc.minLevel, tc.productStatus)
			if got != tc.want {
				t.Fatalf("DeriveStockStatus(%d, %d, %s) = %s, want %s",
					tc.currentStock, tc.minLevel, tc.productStatus, got, tc.want)
			}
		})
	}
}

func TestApplyDelta(t *testing.T) {
	newRec := func(current, reserved, minLevel int) *entity.StockRecord {
		return &entity.StockRecord{
			ProductID:     "test-product",
			CurrentStock:  current,
			ReservedStock: reserved,
			MinLevel:      minLevel,
			Status:        entity.StockStatusInStock,
		}
	}

	t.Run("预占增加", func(t *testing.T) {
		rec := newRec(10, 2, 3)
		if err := applyDelta(rec, entity.ProductStatusActive, 0, 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.CurrentStock != 10 || rec.ReservedStock != 7 {
			t.Fatalf("got current=%d reserved=%d", rec.CurrentStock, rec.ReservedStock)
		}
	})

	t.Run("出库同步扣减", func(t *testing.T) {
		rec := newRec(10, 4, 3)
		if err := applyDelta(rec, entity.ProductStatusActive, -4, -4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.CurrentStock != 6 || rec.ReservedStock != 0 {
			t.Fatalf("got current=%d reserved=%d", rec.CurrentStock, rec.ReservedStock)
		}
	})

	t.Run("现货扣减后状态降级", func(t *testing.T) {
		rec := newRec(10, 0, 5)
		if err := applyDelta(rec, entity.ProductStatusActive, -6, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Status != entity.StockStatusLowStock {
			t.Fatalf("expected LOW_STOCK, got %s", rec.Status)
		}
	})

	t.Run("现货不足拒绝", func(t *testing.T) {
		rec := newRec(3, 0, 1)
		err := applyDelta(rec, entity.ProductStatusActive, -5, 0)
		if !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
		if rec.CurrentStock != 3 {
			t.Fatalf("record mutated on rejected delta: current=%d", rec.CurrentStock)
		}
	})

	t.Run("预占超出现货拒绝", func(t *testing.T) {
		rec := newRec(5, 3, 1)
		err := applyDelta(rec, entity.ProductStatusActive, 0, 4)
		if !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
		if rec.ReservedStock != 3 {
			t.Fatalf("record mutated on rejected delta: reserved=%d", rec.ReservedStock)
		}
	})

	t.Run("负预占拒绝", func(t *testing.T) {
		rec := newRec(5, 1, 1)
		if err := applyDelta(rec, entity.ProductStatusActive, 0, -3); !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})
}
