package service

import (
	"time"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Product     *ProductService
	Stock       *StockService
	Reservation *ReservationService
	RefGen      *RefGenService
	Purchase    *PurchaseService
	Sales       *SalesService
	Damage      *DamageService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, minioClient *minio.Client, bucket string, logger *zap.Logger) *Services {
	reservations := NewReservationService(db, repos.Stock, repos.Product, logger)
	refGen := NewRefGenService(db, repos.Reference, repos.Purchase)
	tokens := NewConfirmTokenStore(rdb, 72*time.Hour)
	labels := NewLabelStore(minioClient, bucket)

	return &Services{
		Product:     NewProductService(repos.Product, repos.Stock, reservations),
		Stock:       NewStockService(repos.Stock),
		Reservation: reservations,
		RefGen:      refGen,
		Purchase:    NewPurchaseService(db, repos.Purchase, repos.Product, repos.Stock, reservations, refGen, tokens, logger),
		Sales:       NewSalesService(repos.Sales, repos.Product, reservations, refGen, labels, logger),
		Damage:      NewDamageService(repos.Damage, repos.Stock, reservations, logger),
	}
}
