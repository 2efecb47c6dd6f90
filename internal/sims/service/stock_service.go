package service

import (
	"context"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
)

// StockService 库存查询
type StockService struct {
	repo *repository.StockRepository
}

func NewStockService(repo *repository.StockRepository) *StockService {
	return &StockService{repo: repo}
}

func (s *StockService) List(ctx context.Context, params repository.StockListParams) ([]entity.StockRecord, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *StockService) GetByProduct(ctx context.Context, productID string) (*entity.StockRecord, error) {
	return s.repo.GetByProduct(ctx, productID)
}

// GetAlerts 低库存预警
func (s *StockService) GetAlerts(ctx context.Context) ([]entity.StockRecord, error) {
	return s.repo.GetAlerts(ctx)
}

func (s *StockService) ListMovements(ctx context.Context, productID string, page, size int) ([]entity.StockMovement, int64, error) {
	return s.repo.ListMovements(ctx, productID, page, size)
}
