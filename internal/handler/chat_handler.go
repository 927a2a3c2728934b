package handler

import (
	"encoding/json"
	"io"
	"iter"

	"github.com/gin-gonic/gin"

	"github.com/healrag/healrag/internal/pkg/errcode"
	"github.com/healrag/healrag/internal/pkg/response"
	"github.com/healrag/healrag/internal/service"
)

type ChatHandler struct {
	rag *service.RAGService
}

func NewChatHandler(rag *service.RAGService) *ChatHandler {
	return &ChatHandler{rag: rag}
}

type chatRequest struct {
	SessionID  string `json:"session_id"`
	Query      string `json:"query"`
	Top        int    `json:"top"`
	Filter     string `json:"filter"`
	SearchType string `json:"search_type"`
	PlanName   string `json:"plan_name"`
}

func (req *chatRequest) params() *service.ChatParams {
	return &service.ChatParams{
		SessionID:  req.SessionID,
		Query:      req.Query,
		Top:        req.Top,
		Filter:     req.Filter,
		SearchType: req.SearchType,
		PlanName:   req.PlanName,
	}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	sessionID, result, err := h.rag.Chat(c.Request.Context(), req.params())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"session_id": sessionID,
		"answer":     result.Answer,
		"sources":    result.Results,
		"degraded":   result.Degraded,
	})
}

// ChatStream answers over server-sent events: one "session" event, then
// "delta" events with response fragments, then "sources" and "done".
// Generation failures surface as an "error" event since the status line
// is already on the wire.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	sessionID, seq, resp, err := h.rag.ChatStream(c.Request.Context(), req.params())
	if err != nil {
		handleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("session", gin.H{"session_id": sessionID})
	c.Writer.Flush()

	next, stop := iter.Pull2(seq)
	defer stop()
	c.Stream(func(_ io.Writer) bool {
		fragment, err, ok := next()
		if !ok {
			sources, _ := json.Marshal(resp.Results)
			c.SSEvent("sources", string(sources))
			c.SSEvent("done", gin.H{"degraded": resp.Degraded})
			return false
		}
		if err != nil {
			c.SSEvent("error", gin.H{"message": "generation failed"})
			return false
		}
		c.SSEvent("delta", fragment)
		return true
	})
}

func (h *ChatHandler) ClearSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session id is required")
		return
	}
	h.rag.ClearSession(sessionID)
	response.Success(c, gin.H{"session_id": sessionID})
}
