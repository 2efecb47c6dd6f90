package repository

import (
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// LockDate 对取号日期加事务级咨询锁，串行化同一天的并发取号
// 当日首单时还没有行可锁，行锁挡不住两个事务同时算出 001
func (r *ReferenceRepository) LockDate(tx *gorm.DB, refDate string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", refDate).Error
}

// GetLatestForUpdate 锁定当日最新一条订单号记录
func (r *ReferenceRepository) GetLatestForUpdate(tx *gorm.DB, refDate string) (*entity.OrderReference, error) {
	var ref entity.OrderReference
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ref_date = ?", refDate).
		Order("seq DESC").
		First(&ref).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &ref, nil
}

// Create 在事务内登记新订单号
func (r *ReferenceRepository) Create(tx *gorm.DB, ref *entity.OrderReference) error {
	return tx.Create(ref).Error
}

// DB 返回底层db用于事务
func (r *ReferenceRepository) DB() *gorm.DB {
	return r.db
}
