package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/customers"
)

// CustomersHandler serves customers and their purchases on account.
type CustomersHandler struct {
	svc    *customers.Service
	logger *zap.Logger
}

// NewCustomersHandler constructs the customers HTTP adapter.
func NewCustomersHandler(svc *customers.Service, logger *zap.Logger) *CustomersHandler {
	return &CustomersHandler{svc: svc, logger: nopIfNil(logger)}
}

func (h *CustomersHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Customers())
}

func (h *CustomersHandler) Balances(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Balances())
}

func (h *CustomersHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	customer, ok := h.svc.Customer(id)
	if !ok {
		notFound(c, "customer")
		return
	}
	balance, _ := h.svc.Balance(id)
	c.JSON(http.StatusOK, gin.H{"customer": customer, "balance": balance})
}

func (h *CustomersHandler) Create(c *gin.Context) {
	var req models.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	customer, err := h.svc.CreateCustomer(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, customer, err)
}

func (h *CustomersHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch customers.CustomerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	customer, ok, err := h.svc.UpdateCustomer(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, customer, ok, err)
}

func (h *CustomersHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteCustomer(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

func (h *CustomersHandler) ListPurchases(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	if _, ok := h.svc.Customer(id); !ok {
		notFound(c, "customer")
		return
	}
	c.JSON(http.StatusOK, h.svc.Purchases(id))
}

func (h *CustomersHandler) AddPurchase(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var req models.CustomerPurchase
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	req.CustomerID = id
	purchase, err := h.svc.AddPurchase(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, purchase, err)
}

func (h *CustomersHandler) GetPurchase(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	purchase, ok := h.svc.Purchase(id)
	if !ok {
		notFound(c, "purchase")
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func (h *CustomersHandler) UpdatePurchase(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch customers.PurchasePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	purchase, ok, err := h.svc.UpdatePurchase(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, purchase, ok, err)
}

func (h *CustomersHandler) DeletePurchase(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeletePurchase(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}
