package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/service/reporting"
)

// ReportHandler serves the dashboard summary.
type ReportHandler struct {
	svc    *reporting.Service
	loc    *time.Location
	logger *zap.Logger
}

// NewReportHandler constructs the reporting HTTP adapter.
func NewReportHandler(svc *reporting.Service, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{svc: svc, loc: loc, logger: nopIfNil(logger)}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	r, err := queryRange(c, h.loc)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Summary(r))
}
