package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/materials"
)

// MaterialsHandler serves raw material lots and processed batches.
type MaterialsHandler struct {
	svc    *materials.Service
	logger *zap.Logger
}

// NewMaterialsHandler constructs the materials HTTP adapter.
func NewMaterialsHandler(svc *materials.Service, logger *zap.Logger) *MaterialsHandler {
	return &MaterialsHandler{svc: svc, logger: nopIfNil(logger)}
}

// rawMaterialView adds the lock flag so the UI can disable editing.
type rawMaterialView struct {
	models.RawMaterial
	Locked bool `json:"locked"`
}

func (h *MaterialsHandler) view(m models.RawMaterial) rawMaterialView {
	return rawMaterialView{RawMaterial: m, Locked: h.svc.IsLocked(m.ID)}
}

func (h *MaterialsHandler) ListRaw(c *gin.Context) {
	lots := h.svc.RawMaterials(c.Query("available") == "true")
	out := make([]rawMaterialView, 0, len(lots))
	for _, m := range lots {
		out = append(out, h.view(m))
	}
	c.JSON(http.StatusOK, out)
}

func (h *MaterialsHandler) GetRaw(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	m, ok := h.svc.RawMaterial(id)
	if !ok {
		notFound(c, "raw material")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rawMaterial": h.view(m), "usedBy": h.svc.BatchesUsing(id)})
}

func (h *MaterialsHandler) CreateRaw(c *gin.Context) {
	var req models.RawMaterial
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	m, err := h.svc.AddRawMaterial(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, m, err)
}

func (h *MaterialsHandler) UpdateRaw(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch materials.RawMaterialPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	m, ok, err := h.svc.UpdateRawMaterial(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, m, ok, err)
}

func (h *MaterialsHandler) DeleteRaw(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteRawMaterial(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}

func (h *MaterialsHandler) ListProcessed(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ProcessedBatches())
}

func (h *MaterialsHandler) GetProcessed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	batch, ok := h.svc.ProcessedBatch(id)
	if !ok {
		notFound(c, "processed batch")
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *MaterialsHandler) Process(c *gin.Context) {
	var req materials.ProcessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	batch, err := h.svc.ProcessBatch(c.Request.Context(), req)
	respond(c, h.logger, http.StatusCreated, batch, err)
}

func (h *MaterialsHandler) UpdateProcessed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var patch materials.ProcessedPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	batch, ok, err := h.svc.UpdateProcessed(c.Request.Context(), id, patch)
	respondUpdate(c, h.logger, batch, ok, err)
}

type consumeRequest struct {
	Quantity float64 `json:"quantity"`
}

func (h *MaterialsHandler) ConsumeProcessed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	batch, err := h.svc.ConsumeProcessed(c.Request.Context(), id, req.Quantity)
	respond(c, h.logger, http.StatusOK, batch, err)
}

func (h *MaterialsHandler) DeleteProcessed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}
	_, err = h.svc.DeleteProcessed(c.Request.Context(), id)
	respondDelete(c, h.logger, err)
}
