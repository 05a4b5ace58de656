package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/excel"
	"github.com/mamadbah2/cableshop/internal/service/inventory"
)

const (
	maxImportBytes = 10 << 20
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// InventoryHandler serves products, stock import and sales.
type InventoryHandler struct {
	svc    *inventory.Service
	loc    *time.Location
	logger *zap.Logger
}

// NewInventoryHandler constructs the inventory HTTP adapter.
func NewInventoryHandler(svc *inventory.Service, loc *time.Location, logger *zap.Logger) *InventoryHandler {
	if loc == nil {
		loc = time.Local
	}
	return &InventoryHandler{svc: svc, loc: loc, logger: nopIfNil(logger)}
}

func (h *InventoryHandler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Products(c.Query("archived") == "true"))
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.LowStock())
}

func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	product, ok := h.svc.Product(id)
	if !ok {
		notFound(c, "product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req models.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	product, err := h.svc.CreateProduct(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, product, err)
}

func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch inventory.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	product, ok, err := h.svc.UpdateProduct(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, product, ok, err)
}

func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteProduct(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

// ImportProducts accepts an xlsx upload in the "file" form field.
func (h *InventoryHandler) ImportProducts(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, h.logger, fmt.Errorf("missing upload: %w", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, h.logger, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	rows, err := excel.ParseProductRows(file)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.logger.Debug("product sheet parsed", zap.String("file", header.Filename), zap.Int("rows", len(rows)))
	result, err := h.svc.ImportProducts(c.Request.Context(), rows)
	respond(c, h.logger, http.StatusOK, result, err)
}

func (h *InventoryHandler) ListSales(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	sales := h.svc.Sales(r)
	c.JSON(http.StatusOK, gin.H{"sales": sales, "total": h.svc.SalesTotal(r)})
}

func (h *InventoryHandler) RecentSales(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.RecentSales(queryLimit(c, 10)))
}

func (h *InventoryHandler) GetSale(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	sale, ok := h.svc.Sale(id)
	if !ok {
		notFound(c, "sale")
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *InventoryHandler) RecordSale(c *gin.Context) {
	var req inventory.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	sale, err := h.svc.RecordSale(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, sale, err)
}

func (h *InventoryHandler) UpdateSale(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch inventory.SalePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	sale, ok, err := h.svc.UpdateSale(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, sale, ok, err)
}

func (h *InventoryHandler) DeleteSale(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteSale(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

// ExportSales downloads the sales in range as an xlsx workbook.
func (h *InventoryHandler) ExportSales(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteSales(&buf, h.svc.Sales(r)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="sales.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}
