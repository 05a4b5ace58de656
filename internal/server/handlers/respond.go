// Package handlers adapts the domain services to the local HTTP API.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/service/auth"
	"github.com/mamadbah2/cableshop/internal/service/billing"
	"github.com/mamadbah2/cableshop/internal/service/customers"
	"github.com/mamadbah2/cableshop/internal/service/expenses"
	"github.com/mamadbah2/cableshop/internal/service/inventory"
	"github.com/mamadbah2/cableshop/internal/service/khata"
	"github.com/mamadbah2/cableshop/internal/service/materials"
	"github.com/mamadbah2/cableshop/internal/service/payroll"
	"github.com/mamadbah2/cableshop/internal/service/reporting"
	"github.com/mamadbah2/cableshop/internal/store"
)

// PersistWarningHeader is set when a change was applied but not yet saved to disk.
const PersistWarningHeader = "X-Persist-Warning"

const dateLayout = "2006-01-02"

var (
	notFoundErrors = []error{
		inventory.ErrProductNotFound, inventory.ErrSaleNotFound,
		customers.ErrCustomerNotFound,
		materials.ErrRawMaterialNotFound, materials.ErrProcessedNotFound,
		payroll.ErrEmployeeNotFound,
		expenses.ErrCategoryNotFound,
		khata.ErrKhataNotFound,
	}
	conflictErrors = []error{
		inventory.ErrDuplicateSKU,
		auth.ErrUserExists,
		expenses.ErrDuplicateName, expenses.ErrCategoryInUse,
		khata.ErrKhataNotEmpty,
		materials.ErrRawMaterialLocked,
	}
	unprocessableErrors = []error{
		inventory.ErrInsufficientStock,
		payroll.ErrPayoutExceedsSalary,
		materials.ErrInsufficientRawMaterial, materials.ErrUsageExceedsOutput,
	}
	badRequestErrors = []error{
		inventory.ErrInvalidQuantity, inventory.ErrInvalidDiscount, inventory.ErrInvalidProduct,
		customers.ErrInvalidCustomer, customers.ErrInvalidPurchase,
		materials.ErrInvalidMaterial,
		payroll.ErrInvalidEmployee, payroll.ErrInvalidAmount,
		expenses.ErrInvalidExpense,
		khata.ErrInvalidEntry,
		billing.ErrInvalidBill, billing.ErrInvalidScrap,
		auth.ErrInvalidUser,
	}
	unauthorizedErrors = []error{auth.ErrInvalidCredentials, auth.ErrNotAuthenticated}
)

func statusFor(err error) int {
	switch {
	case matches(err, notFoundErrors):
		return http.StatusNotFound
	case matches(err, conflictErrors):
		return http.StatusConflict
	case matches(err, unprocessableErrors):
		return http.StatusUnprocessableEntity
	case matches(err, badRequestErrors):
		return http.StatusBadRequest
	case matches(err, unauthorizedErrors):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respond writes body with status, or the error when the operation failed.
// A persistence failure still returns the body with a warning header.
func respond(c *gin.Context, logger *zap.Logger, status int, body any, err error) {
	if err != nil && !store.IsPersistError(err) {
		writeError(c, logger, err)
		return
	}
	if err != nil {
		logger.Warn("change kept in memory only", zap.String("path", c.FullPath()), zap.Error(err))
		c.Header(PersistWarningHeader, err.Error())
	}
	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

// respondUpdate maps an (ok=false) update on a missing record to 204.
func respondUpdate(c *gin.Context, logger *zap.Logger, body any, ok bool, err error) {
	if !ok && err == nil {
		c.Status(http.StatusNoContent)
		return
	}
	respond(c, logger, http.StatusOK, body, err)
}

// respondDelete always answers 204; deleting a missing record is a no-op.
func respondDelete(c *gin.Context, logger *zap.Logger, err error) {
	respond(c, logger, http.StatusNoContent, nil, err)
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, c.Param(name))
	}
	return id, nil
}

// queryRange reads from/to as YYYY-MM-DD in loc. Missing bounds are open.
func queryRange(c *gin.Context, loc *time.Location) (reporting.Range, error) {
	var from, to time.Time
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.ParseInLocation(dateLayout, raw, loc); err != nil {
			return reporting.Range{}, fmt.Errorf("invalid from date %q", raw)
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.ParseInLocation(dateLayout, raw, loc); err != nil {
			return reporting.Range{}, fmt.Errorf("invalid to date %q", raw)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return reporting.Range{}, errors.New("to date is before from date")
	}
	return reporting.DayRange(from, to), nil
}

func queryLimit(c *gin.Context, fallback int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
