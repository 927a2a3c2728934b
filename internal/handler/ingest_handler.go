package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/healrag/healrag/internal/pkg/response"
	"github.com/healrag/healrag/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// Reindex runs a full ingestion pass synchronously. Intended for
// operator use; the scheduled job covers the regular cadence.
func (h *IngestHandler) Reindex(c *gin.Context) {
	report, err := h.ingest.Run(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}
