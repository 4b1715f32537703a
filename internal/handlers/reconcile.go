package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/visibility"
)

type ReconcileHandler struct {
	log        *logger.Logger
	visibility visibility.Service
}

func NewReconcileHandler(log *logger.Logger, visibilityService visibility.Service) *ReconcileHandler {
	return &ReconcileHandler{log: log.With("handler", "ReconcileHandler"), visibility: visibilityService}
}

type reconcileRequest struct {
	// Apply opts into the write step; the default is diagnosis only.
	Apply bool `json:"apply"`
}

func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.visibility.Reconcile(c.Request.Context())
	if err != nil {
		h.log.Error("reconciliation diagnosis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	if !req.Apply {
		c.JSON(http.StatusOK, gin.H{"report": report, "applied": false})
		return
	}

	result, err := h.visibility.Apply(c.Request.Context(), report)
	if err != nil {
		h.log.Error("reconciliation apply failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation apply failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report, "applied": true, "result": result})
}
