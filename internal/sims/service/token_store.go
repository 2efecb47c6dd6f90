package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const confirmTokenPrefix = "sims:po:confirm:"

// ConfirmTokenStore 供应商确认令牌
// 令牌经通知渠道发给供应商，点击确认/拒绝时换回采购单ID，一次性使用
type ConfirmTokenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewConfirmTokenStore(rdb *redis.Client, ttl time.Duration) *ConfirmTokenStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &ConfirmTokenStore{rdb: rdb, ttl: ttl}
}

// Issue 为采购单签发确认令牌
func (s *ConfirmTokenStore) Issue(ctx context.Context, poID string) (string, error) {
	token := uuid.New().String()
	if err := s.rdb.Set(ctx, confirmTokenPrefix+token, poID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("写入确认令牌失败: %w", err)
	}
	return token, nil
}

// Redeem 兑换令牌并使其失效，返回对应的采购单ID
func (s *ConfirmTokenStore) Redeem(ctx context.Context, token string) (string, error) {
	poID, err := s.rdb.GetDel(ctx, confirmTokenPrefix+token).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%w: 确认令牌无效或已过期", ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("读取确认令牌失败: %w", err)
	}
	return poID, nil
}
