package repository

import (
	"context"
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"gorm.io/gorm"
)

type DamageRepository struct {
	db *gorm.DB
}

func NewDamageRepository(db *gorm.DB) *DamageRepository {
	return &DamageRepository{db: db}
}

func (r *DamageRepository) Create(ctx context.Context, report *entity.DamageLossReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *DamageRepository) GetByID(ctx context.Context, id string) (*entity.DamageLossReport, error) {
	var report entity.DamageLossReport
	err := r.db.WithContext(ctx).Preload("Product").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&report).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &report, nil
}

func (r *DamageRepository) Update(ctx context.Context, report *entity.DamageLossReport) error {
	return r.db.WithContext(ctx).Save(report).Error
}

// Delete 软删除损毁登记
func (r *DamageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&entity.DamageLossReport{}).
		Where("id = ?", id).
		Update("deleted_at", time.Now()).Error
}

type DamageListParams struct {
	ProductID string
	Page      int
	Size      int
}

func (r *DamageRepository) List(ctx context.Context, params DamageListParams) ([]entity.DamageLossReport, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.DamageLossReport{}).Where("deleted_at IS NULL")
	if params.ProductID != "" {
		query = query.Where("product_id = ?", params.ProductID)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.DamageLossReport
	err := query.Preload("Product").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}
