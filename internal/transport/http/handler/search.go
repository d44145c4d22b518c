package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragapi/internal/ai"
	"ragapi/internal/app"
	"ragapi/internal/transport/http/response"
)

type SearchHandler struct {
	search *app.SearchService
}

type SearchRequest struct {
	Query          string            `json:"query" binding:"required"`
	TopK           int               `json:"top_k"`
	FilterMetadata map[string]string `json:"filter_metadata"`
}

func NewSearchHandler(search *app.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.search.Search(c.Request.Context(), req.Query, req.TopK, req.FilterMetadata)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query must not be empty")
		case errors.Is(err, ai.ErrTransport), errors.Is(err, ai.ErrUpstream):
			response.Error(c, http.StatusBadGateway, response.CodeUpstream, "embedding service error")
		case errors.Is(err, app.ErrDimensionMismatch):
			// Deployment misconfiguration, every search will fail the same way.
			log.Printf("search dimension mismatch: %v", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search index misconfigured")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}

	response.OK(c, gin.H{
		"results": results,
		"count":   len(results),
	})
}
