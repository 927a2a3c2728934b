package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/healrag/healrag/internal/pkg/errcode"
	"github.com/healrag/healrag/internal/pkg/response"
	"github.com/healrag/healrag/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query          string   `json:"query"`
	Top            int      `json:"top"`
	Filter         string   `json:"filter"`
	Select         []string `json:"select"`
	SearchType     string   `json:"search_type"`
	ScoringProfile string   `json:"scoring_profile"`
	SemanticConfig string   `json:"semantic_configuration"`
	PlanName       string   `json:"plan_name"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	resp, err := h.search.Search(c.Request.Context(), &service.SearchParams{
		Query:          req.Query,
		Top:            req.Top,
		Filter:         req.Filter,
		Select:         req.Select,
		SearchType:     req.SearchType,
		ScoringProfile: req.ScoringProfile,
		SemanticConfig: req.SemanticConfig,
		PlanName:       req.PlanName,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"results":  resp.Results,
		"count":    len(resp.Results),
		"degraded": resp.Degraded,
	})
}
