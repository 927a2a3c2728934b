package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healrag/healrag/internal/pkg/errcode"
	"github.com/healrag/healrag/internal/pkg/response"
	"github.com/healrag/healrag/internal/service"
)

type ConversationHandler struct {
	conv *service.ConversationService
}

func NewConversationHandler(conv *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conv: conv}
}

func (h *ConversationHandler) Get(c *gin.Context) {
	rec, err := h.conv.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rec)
}

func (h *ConversationHandler) List(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := h.conv.List(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"conversations": recs, "count": len(recs)})
}
