package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/visibility"
)

type VisibilityHandler struct {
	log        *logger.Logger
	visibility visibility.Service
}

func NewVisibilityHandler(log *logger.Logger, visibilityService visibility.Service) *VisibilityHandler {
	return &VisibilityHandler{log: log.With("handler", "VisibilityHandler"), visibility: visibilityService}
}

func (h *VisibilityHandler) VisibleVideos(c *gin.Context) {
	childID, err := uuid.Parse(c.Param("childId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}

	report, err := h.visibility.VisibleVideos(c.Request.Context(), childID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
			return
		}
		h.log.Error("visibility lookup failed", "child_id", childID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "visibility lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
