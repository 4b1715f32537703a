package app

import (
	"github.com/gin-gonic/gin"

	"github.com/lumokids/storytime-backend/internal/handlers"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/server"
)

type Handlers struct {
	Resolve    *handlers.ResolveHandler
	Visibility *handlers.VisibilityHandler
	Reconcile  *handlers.ReconcileHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Resolve:    handlers.NewResolveHandler(log, services.Resolver),
		Visibility: handlers.NewVisibilityHandler(log, services.Visibility),
		Reconcile:  handlers.NewReconcileHandler(log, services.Visibility),
	}
}

func wireRouter(cfg Config, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:       serviceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		ResolveHandler:    h.Resolve,
		VisibilityHandler: h.Visibility,
		ReconcileHandler:  h.Reconcile,
	})
}
