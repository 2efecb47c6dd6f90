package handler

import (
	"errors"
	"net/http"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/service"
	"github.com/gin-gonic/gin"
)

// Handlers HTTP处理器集合
type Handlers struct {
	Product  *ProductHandler
	Stock    *StockHandler
	Purchase *PurchaseHandler
	Sales    *SalesHandler
	Damage   *DamageHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Product:  NewProductHandler(services.Product),
		Stock:    NewStockHandler(services.Stock),
		Purchase: NewPurchaseHandler(services.Purchase),
		Sales:    NewSalesHandler(services.Sales),
		Damage:   NewDamageHandler(services.Damage),
	}
}

// respondError 业务错误到响应码的统一映射
// 校验/库存不足类错误返回具体消息；内部错误不外泄细节
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"code": 40901, "message": err.Error()})
	case errors.Is(err, service.ErrFinalized):
		c.JSON(http.StatusConflict, gin.H{"code": 40902, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": "internal error"})
	}
}

func currentUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(string)
	}
	return ""
}
