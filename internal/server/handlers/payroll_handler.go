package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/payroll"
)

// PayrollHandler serves employees and their daily payouts.
type PayrollHandler struct {
	svc    *payroll.Service
	loc    *time.Location
	logger *zap.Logger
}

// NewPayrollHandler constructs the payroll HTTP adapter.
func NewPayrollHandler(svc *payroll.Service, loc *time.Location, logger *zap.Logger) *PayrollHandler {
	if loc == nil {
		loc = time.Local
	}
	return &PayrollHandler{svc: svc, loc: loc, logger: nopIfNil(logger)}
}

func (h *PayrollHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Employees(c.Query("archived") == "true"))
}

func (h *PayrollHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	employee, ok := h.svc.Employee(id)
	if !ok {
		notFound(c, "employee")
		return
	}
	status, _ := h.svc.Status(id)
	c.JSON(http.StatusOK, gin.H{"employee": employee, "salary": status})
}

func (h *PayrollHandler) Create(c *gin.Context) {
	var req models.Employee
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	employee, err := h.svc.CreateEmployee(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, employee, err)
}

func (h *PayrollHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch payroll.EmployeePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	employee, ok, err := h.svc.UpdateEmployee(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, employee, ok, err)
}

func (h *PayrollHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteEmployee(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

func (h *PayrollHandler) ListPayouts(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	status, ok := h.svc.Status(id)
	if !ok {
		notFound(c, "employee")
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": h.svc.Payouts(id), "salary": status})
}

func (h *PayrollHandler) AllPayouts(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.AllPayouts(r))
}

func (h *PayrollHandler) AddPayout(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var req models.DailyPayout
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	req.EmployeeID = id
	payout, err := h.svc.AddPayout(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, payout, err)
}

func (h *PayrollHandler) UpdatePayout(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch payroll.PayoutPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	payout, ok, err := h.svc.UpdatePayout(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, payout, ok, err)
}

func (h *PayrollHandler) DeletePayout(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeletePayout(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}
