package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Repositories 仓库集合
type Repositories struct {
	Product   *ProductRepository
	Stock     *StockRepository
	Purchase  *PurchaseRepository
	Sales     *SalesRepository
	Reference *ReferenceRepository
	Damage    *DamageRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:   NewProductRepository(db),
		Stock:     NewStockRepository(db),
		Purchase:  NewPurchaseRepository(db),
		Sales:     NewSalesRepository(db),
		Reference: NewReferenceRepository(db),
		Damage:    NewDamageRepository(db),
	}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
