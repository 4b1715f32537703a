package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/resolver"
)

type ResolveHandler struct {
	log      *logger.Logger
	resolver resolver.Service
}

func NewResolveHandler(log *logger.Logger, resolverService resolver.Service) *ResolveHandler {
	return &ResolveHandler{log: log.With("handler", "ResolveHandler"), resolver: resolverService}
}

func (h *ResolveHandler) Resolve(c *gin.Context) {
	var req resolver.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolution, err := h.resolver.Resolve(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrUnknownTemplate):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, pkgerrors.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.log.Error("resolution failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolution": resolution})
}
