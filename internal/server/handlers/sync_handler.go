package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/cloudsync"
)

// SyncService is the part of the sync service exposed over HTTP.
type SyncService interface {
	Status() cloudsync.Status
	SyncToCloud(ctx context.Context) cloudsync.Result
}

// ConnectivitySignal receives the host's network state from the desktop shell.
type ConnectivitySignal interface {
	Online() bool
	Set(online bool)
}

// SyncJournal lists past successful syncs.
type SyncJournal interface {
	History(ctx context.Context, limit int) ([]cloudsync.JournalEntry, error)
}

// SyncHandler exposes sync status and the manual sync trigger.
type SyncHandler struct {
	svc     SyncService
	signal  ConnectivitySignal
	journal SyncJournal
	logger  *zap.Logger
}

// NewSyncHandler constructs the sync HTTP adapter. journal may be nil.
func NewSyncHandler(svc SyncService, signal ConnectivitySignal, journal SyncJournal, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, signal: signal, journal: journal, logger: nopIfNil(logger)}
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// SetConnectivity records the network state reported by the desktop shell.
func (h *SyncHandler) SetConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.signal.Set(*req.Online)
	c.JSON(http.StatusOK, gin.H{"online": h.signal.Online()})
}

func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// Sync runs a sync now. A failed sync is reported in the body, not as an HTTP error.
func (h *SyncHandler) Sync(c *gin.Context) {
	result := h.svc.SyncToCloud(c.Request.Context())
	if !result.Success {
		h.logger.Warn("manual sync failed", zap.String("error", result.Error))
	}
	c.JSON(http.StatusOK, result)
}

func (h *SyncHandler) History(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusOK, []cloudsync.JournalEntry{})
		return
	}
	entries, err := h.journal.History(c.Request.Context(), queryLimit(c, 20))
	if err != nil {
		h.logger.Error("failed reading sync journal", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to read sync journal"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
