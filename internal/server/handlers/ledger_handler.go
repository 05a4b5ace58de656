package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/excel"
	"github.com/mamadbah2/cableshop/internal/service/expenses"
	"github.com/mamadbah2/cableshop/internal/service/khata"
)

// LedgerHandler serves expenses, their categories and the custom khatas.
type LedgerHandler struct {
	expenses *expenses.Service
	khatas   *khata.Service
	loc      *time.Location
	logger   *zap.Logger
}

// NewLedgerHandler constructs the expenses and khata HTTP adapter.
func NewLedgerHandler(expenseSvc *expenses.Service, khataSvc *khata.Service, loc *time.Location, logger *zap.Logger) *LedgerHandler {
	if loc == nil {
		loc = time.Local
	}
	return &LedgerHandler{expenses: expenseSvc, khatas: khataSvc, loc: loc, logger: nopIfNil(logger)}
}

func (h *LedgerHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.expenses.Categories())
}

func (h *LedgerHandler) CreateCategory(c *gin.Context) {
	var req models.ExpenseCategory
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	category, err := h.expenses.CreateCategory(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, category, err)
}

type renameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *LedgerHandler) RenameCategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	category, ok, err := h.expenses.RenameCategory(c.Request.Context(), id, req.Name, req.Description)
	respondUpdate(c, h.logger, category, ok, err)
}

func (h *LedgerHandler) DeleteCategory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.expenses.DeleteCategory(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

// ListExpenses filters by date range and an optional category query param.
func (h *LedgerHandler) ListExpenses(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var categoryID int64
	if raw := c.Query("category"); raw != "" {
		if categoryID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			badRequest(c, h.logger, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.expenses.Expenses(r, categoryID))
}

func (h *LedgerHandler) ExpenseTotals(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.expenses.Totals(r))
}

func (h *LedgerHandler) AddExpense(c *gin.Context) {
	var req models.Expense
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	expense, err := h.expenses.AddExpense(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, expense, err)
}

func (h *LedgerHandler) UpdateExpense(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch expenses.ExpensePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	expense, ok, err := h.expenses.UpdateExpense(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, expense, ok, err)
}

func (h *LedgerHandler) DeleteExpense(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.expenses.DeleteExpense(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

func (h *LedgerHandler) ExportExpenses(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	names := make(map[int64]string)
	for _, category := range h.expenses.Categories() {
		names[category.ID] = category.Name
	}
	var buf bytes.Buffer
	if err := excel.WriteExpenses(&buf, h.expenses.Expenses(r, 0), names); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (h *LedgerHandler) ListKhatas(c *gin.Context) {
	c.JSON(http.StatusOK, h.khatas.Khatas())
}

func (h *LedgerHandler) CreateKhata(c *gin.Context) {
	var req models.CustomKhata
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	k, err := h.khatas.CreateKhata(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, k, err)
}

func (h *LedgerHandler) UpdateKhata(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	k, ok, err := h.khatas.UpdateKhata(c.Request.Context(), id, req.Name, req.Description)
	respondUpdate(c, h.logger, k, ok, err)
}

func (h *LedgerHandler) DeleteKhata(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.khatas.DeleteKhata(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

// KhataLedger lists the entries oldest first with a running balance.
func (h *LedgerHandler) KhataLedger(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	lines, ok := h.khatas.Ledger(id)
	if !ok {
		notFound(c, "khata")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": lines, "balance": h.khatas.Balance(id)})
}

func (h *LedgerHandler) AddEntry(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var req models.KhataEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	req.KhataID = id
	entry, err := h.khatas.AddEntry(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, entry, err)
}

func (h *LedgerHandler) UpdateEntry(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch khata.EntryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	entry, ok, err := h.khatas.UpdateEntry(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, entry, ok, err)
}

func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.khatas.DeleteEntry(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}
