package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/billing"
)

// BillingHandler serves bills and scrap sales.
type BillingHandler struct {
	svc    *billing.Service
	loc    *time.Location
	logger *zap.Logger
}

// NewBillingHandler constructs the billing HTTP adapter.
func NewBillingHandler(svc *billing.Service, loc *time.Location, logger *zap.Logger) *BillingHandler {
	if loc == nil {
		loc = time.Local
	}
	return &BillingHandler{svc: svc, loc: loc, logger: nopIfNil(logger)}
}

func (h *BillingHandler) ListBills(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Bills(r))
}

func (h *BillingHandler) GetBill(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	bill, ok := h.svc.Bill(id)
	if !ok {
		notFound(c, "bill")
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *BillingHandler) CreateBill(c *gin.Context) {
	var req billing.BillInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	bill, err := h.svc.CreateBill(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, bill, err)
}

func (h *BillingHandler) DeleteBill(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteBill(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

func (h *BillingHandler) ListScrap(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scrap": h.svc.Scrap(r), "total": h.svc.ScrapTotal(r)})
}

func (h *BillingHandler) AddScrap(c *gin.Context) {
	var req models.Scrap
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	scrap, err := h.svc.AddScrap(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, scrap, err)
}

func (h *BillingHandler) DeleteScrap(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteScrap(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}
