package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	orderRefPrefix     = "ORD"
	poNumberPrefix     = "PO"
	poNumberMaxRetries = 5
)

// RefGenService 单号生成
// 订单号走按日递增的锁定序列，采购单号走随机后缀加碰撞重试，
// 两种唯一性策略分别适配高并发取号与低频生成的场景
type RefGenService struct {
	db           *gorm.DB
	refRepo      *repository.ReferenceRepository
	purchaseRepo *repository.PurchaseRepository
}

func NewRefGenService(db *gorm.DB, refRepo *repository.ReferenceRepository, purchaseRepo *repository.PurchaseRepository) *RefGenService {
	return &RefGenService{db: db, refRepo: refRepo, purchaseRepo: purchaseRepo}
}

// NextOrderReference 生成下一个订单号，格式 ORD-yyyy-MM-dd-NNN，序号按日重置
// 独立事务：锁只在取号期间持有，提交即释放，减小并发建单的争用窗口
func (s *RefGenService) NextOrderReference(ctx context.Context, date time.Time) (string, error) {
	refDate := date.Format("2006-01-02")
	var reference string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.refRepo.LockDate(tx, refDate); err != nil {
			return err
		}
		seq := 1
		last, err := s.refRepo.GetLatestForUpdate(tx, refDate)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if last != nil {
			if n, ok := trailingSequence(last.Reference); ok {
				seq = n + 1
			}
		}
		reference = fmt.Sprintf("%s-%s-%03d", orderRefPrefix, refDate, seq)
		return s.refRepo.Create(tx, &entity.OrderReference{
			Reference: reference,
			RefDate:   refDate,
			Seq:       seq,
		})
	})
	if err != nil {
		return "", fmt.Errorf("生成订单号失败: %w", err)
	}
	return reference, nil
}

// trailingSequence 解析单号末段的序号，格式异常时从头编号
func trailingSequence(reference string) (int, bool) {
	idx := strings.LastIndex(reference, "-")
	if idx < 0 || idx == len(reference)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(reference[idx+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextPONumber 生成采购单号：随机后缀 + 查重，重试上限内未取到视为致命错误
func (s *RefGenService) NextPONumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < poNumberMaxRetries; attempt++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
		number := fmt.Sprintf("%s-%s", poNumberPrefix, suffix)
		exists, err := s.purchaseRepo.PONumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("%w: 采购单号生成重试 %d 次后仍冲突", ErrService, poNumberMaxRetries)
}
