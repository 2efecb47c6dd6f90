package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
)

// ProductService 商品目录
type ProductService struct {
	repo         *repository.ProductRepository
	stockRepo    *repository.StockRepository
	reservations *ReservationService
}

func NewProductService(repo *repository.ProductRepository, stockRepo *repository.StockRepository, reservations *ReservationService) *ProductService {
	return &ProductService{repo: repo, stockRepo: stockRepo, reservations: reservations}
}

type CreateProductRequest struct {
	SKU      string  `json:"sku" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	MinLevel int     `json:"min_level"`
	Notes    string  `json:"notes"`
}

func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest, userID string) (*entity.Product, error) {
	if existing, err := s.repo.GetBySKU(ctx, req.SKU); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: SKU 已存在: %s", ErrValidation, req.SKU)
	}

	product := &entity.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Category:  req.Category,
		Price:     req.Price,
		Status:    entity.ProductStatusPlanning,
		Notes:     req.Notes,
		CreatedBy: userID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("创建商品失败: %w", err)
	}
	return product, nil
}

// ActivateProduct 激活商品并建立库存记录（商品首次进入库存）
func (s *ProductService) ActivateProduct(ctx context.Context, id string, minLevel int) (*entity.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品不存在: %w", err)
	}
	product.Status = entity.ProductStatusActive
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("更新商品失败: %w", err)
	}

	_, err = s.stockRepo.GetByProduct(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		rec := &entity.StockRecord{
			ProductID: id,
			MinLevel:  minLevel,
			Status:    DeriveStockStatus(0, minLevel, product.Status),
		}
		if cerr := s.stockRepo.Create(ctx, rec); cerr != nil {
			return nil, fmt.Errorf("创建库存记录失败: %w", cerr)
		}
		return product, nil
	}
	if err != nil {
		return nil, err
	}
	return product, s.reservations.RefreshStatus(ctx, id)
}

// ArchiveProduct 下架商品，库存状态随之置为 INVALID
func (s *ProductService) ArchiveProduct(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品不存在: %w", err)
	}
	product.Status = entity.ProductStatusArchived
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("更新商品失败: %w", err)
	}
	if _, serr := s.stockRepo.GetByProduct(ctx, id); serr == nil {
		if rerr := s.reservations.RefreshStatus(ctx, id); rerr != nil {
			return nil, rerr
		}
	}
	return product, nil
}

func (s *ProductService) GetProductByID(ctx context.Context, id string) (*entity.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) ListProducts(ctx context.Context, params repository.ProductListParams) ([]entity.Product, int64, error) {
	return s.repo.List(ctx, params)
}
