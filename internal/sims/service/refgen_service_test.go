package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/testutil"
	"gorm.io/gorm"
)

func setupRefGenTest(t *testing.T) (*RefGenService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewRefGenService(db, repos.Reference, repos.Purchase), db
}

func TestNextOrderReferenceSequence(t *testing.T) {
	svc, _ := setupRefGenTest(t)
	ctx := context.Background()

	date := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		ref, err := svc.NextOrderReference(ctx, date)
		if err != nil {
			t.Fatalf("NextOrderReference failed: %v", err)
		}
		want := fmt.Sprintf("ORD-2026-03-15-%03d", i)
		if ref != want {
			t.Fatalf("got %s, want %s", ref, want)
		}
	}

	// 跨日序号重置
	nextDay := date.AddDate(0, 0, 1)
	ref, err := svc.NextOrderReference(ctx, nextDay)
	if err != nil {
		t.Fatalf("NextOrderReference failed: %v", err)
	}
	if ref != "ORD-2026-03-16-001" {
		t.Fatalf("got %s, want ORD-2026-03-16-001", ref)
	}
}

// TestNextOrderReferenceConcurrent 并发取号不重复不跳号
func TestNextOrderReferenceConcurrent(t *testing.T) {
	svc, _ := setupRefGenTest(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)

	const workers = 10
	var wg sync.WaitGroup
	refs := make(chan string, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := svc.NextOrderReference(ctx, date)
			if err != nil {
				errs <- err
				return
			}
			refs <- ref
		}()
	}
	wg.Wait()
	close(refs)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent NextOrderReference failed: %v", err)
	}

	seen := make(map[string]bool, workers)
	for ref := range refs {
		if seen[ref] {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d unique references, got %d", workers, len(seen))
	}
	// 序号连续：001..010 必须全部出现
	for i := 1; i <= workers; i++ {
		want := fmt.Sprintf("ORD-2026-03-20-%03d", i)
		if !seen[want] {
			t.Fatalf("missing reference %s", want)
		}
	}
}

// TestNextOrderReferenceBeyondThreeDigits 序号进位到四位后继续递增
// 按单号文本取最新记录时 "999" 会排在 "1000" 前面导致重复取号
func TestNextOrderReferenceBeyondThreeDigits(t *testing.T) {
	svc, db := setupRefGenTest(t)
	ctx := context.Background()
	date := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	seed := &entity.OrderReference{
		Reference: "ORD-2026-05-01-999",
		RefDate:   "2026-05-01",
		Seq:       999,
	}
	if err := db.Create(seed).Error; err != nil {
		t.Fatalf("Failed to seed order reference: %v", err)
	}

	ref, err := svc.NextOrderReference(ctx, date)
	if err != nil {
		t.Fatalf("NextOrderReference failed: %v", err)
	}
	if ref != "ORD-2026-05-01-1000" {
		t.Fatalf("got %s, want ORD-2026-05-01-1000", ref)
	}

	ref, err = svc.NextOrderReference(ctx, date)
	if err != nil {
		t.Fatalf("NextOrderReference failed: %v", err)
	}
	if ref != "ORD-2026-05-01-1001" {
		t.Fatalf("got %s, want ORD-2026-05-01-1001", ref)
	}
}

func TestNextPONumberFormat(t *testing.T) {
	svc, _ := setupRefGenTest(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		number, err := svc.NextPONumber(ctx)
		if err != nil {
			t.Fatalf("NextPONumber failed: %v", err)
		}
		if !strings.HasPrefix(number, "PO-") || len(number) != 11 {
			t.Fatalf("unexpected PO number format: %s", number)
		}
		if seen[number] {
			t.Fatalf("duplicate PO number: %s", number)
		}
		seen[number] = true
	}
}

func TestTrailingSequence(t *testing.T) {
	cases := []struct {
		reference string
		want      int
		ok        bool
	}{
		{"ORD-2026-03-15-007", 7, true},
		{"ORD-2026-03-15-100", 100, true},
		{"ORD-2026-03-15-", 0, false},
		{"garbage", 0, false},
		{"ORD-2026-03-15-abc", 0, false},
	}
	for _, tc := range cases {
		n, ok := trailingSequence(tc.reference)
		if n != tc.want || ok != tc.ok {
			t.Fatalf("trailingSequence(%q) = (%d, %v), want (%d, %v)", tc.reference, n, ok, tc.want, tc.ok)
		}
	}
}
