package handler

import (
	"net/http"
	"strconv"

	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/repository"
	"github.com/LastCoderBoy/SIMS-sub000/internal/sims/service"
	"github.com/gin-gonic/gin"
)

type DamageHandler struct {
	svc *service.DamageService
}

func NewDamageHandler(svc *service.DamageService) *DamageHandler {
	return &DamageHandler{svc: svc}
}

func (h *DamageHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.DamageListParams{
		ProductID: c.Query("product_id"),
		Page:      page,
		Size:      size,
	}
	items, total, err := h.svc.ListDamageLosses(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": items, "total": total, "page": page, "size": size}})
}

func (h *DamageHandler) Get(c *gin.Context) {
	report, err := h.svc.GetDamageLossByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": report})
}

func (h *DamageHandler) Create(c *gin.Context) {
	var req service.AddDamageLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	report, err := h.svc.AddDamageLoss(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": report})
}

func (h *DamageHandler) Update(c *gin.Context) {
	var req service.UpdateDamageLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	report, err := h.svc.UpdateDamageLoss(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": report})
}

func (h *DamageHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteDamageLoss(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success"})
}
