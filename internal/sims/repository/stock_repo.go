package repository

import (
	"context"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) Create(ctx context.Context, rec *entity.StockRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *StockRepository) GetByProduct(ctx context.Context, productID string) (*entity.StockRecord, error) {
	var rec entity.StockRecord
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&rec).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &rec, nil
}

// GetForUpdate 在事务内按商品加行锁读取库存记录（SELECT ... FOR UPDATE）
// 并发的 check-then-act 预占必须经由此读，否则可用量校验会基于过期快照
func (r *StockRepository) GetForUpdate(tx *gorm.DB, productID string) (*entity.StockRecord, error) {
	var rec entity.StockRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&rec).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &rec, nil
}

// Save 在事务内保存库存记录
func (r *StockRepository) Save(tx *gorm.DB, rec *entity.StockRecord) error {
	return tx.Save(rec).Error
}

func (r *StockRepository) Update(ctx context.Context, rec *entity.StockRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// CreateMovement 在事务内写入库存流水
func (r *StockRepository) CreateMovement(tx *gorm.DB, m *entity.StockMovement) error {
	return tx.Create(m).Error
}

type StockListParams struct {
	Status  string
	Keyword string
	Page    int
	Size    int
}

func (r *StockRepository) List(ctx context.Context, params StockListParams) ([]entity.StockRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockRecord{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Joins("JOIN sims_products p ON p.id = sims_stock_records.product_id").
			Where("p.sku ILIKE ? OR p.name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.StockRecord
	err := query.Preload("Product").Order("updated_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}

// GetAlerts 低库存预警列表
func (r *StockRepository) GetAlerts(ctx context.Context) ([]entity.StockRecord, error) {
	var alerts []entity.StockRecord
	err := r.db.WithContext(ctx).Preload("Product").
		Where("status = ?", entity.StockStatusLowStock).
		Find(&alerts).Error
	return alerts, err
}

func (r *StockRepository) ListMovements(ctx context.Context, productID string, page, size int) ([]entity.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockMovement{})
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	var total int64
	query.Count(&total)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	var moves []entity.StockMovement
	err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&moves).Error
	return moves, total, err
}

// DB 返回底层db用于事务
func (r *StockRepository) DB() *gorm.DB {
	return r.db
}
