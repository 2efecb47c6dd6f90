package repository

import (
	"context"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"gorm.io/gorm"
)

type SalesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

// Create 创建订单及其全部订单行
func (r *SalesRepository) Create(ctx context.Context, so *entity.SalesOrder) error {
	return r.db.WithContext(ctx).Create(so).Error
}

func (r *SalesRepository) GetByID(ctx context.Context, id string) (*entity.SalesOrder, error) {
	var so entity.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&so).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &so, nil
}

func (r *SalesRepository) Update(ctx context.Context, so *entity.SalesOrder) error {
	return r.db.WithContext(ctx).Omit("Items").Save(so).Error
}

func (r *SalesRepository) UpdateItem(ctx context.Context, item *entity.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem 删除订单行（仅经由所属订单调用）
func (r *SalesRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.OrderItem{}).Error
}

type SOListParams struct {
	Status  string
	Keyword string
	Page    int
	Size    int
}

func (r *SalesRepository) List(ctx context.Context, params SOListParams) ([]entity.SalesOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.SalesOrder{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		query = query.Where("order_reference ILIKE ?", "%"+params.Keyword+"%")
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.SalesOrder
	err := query.Preload("Items").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}
