package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lumokids/storytime-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName       string
	AllowedOrigins    []string
	ResolveHandler    *handlers.ResolveHandler
	VisibilityHandler *handlers.VisibilityHandler
	ReconcileHandler  *handlers.ReconcileHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/resolve", cfg.ResolveHandler.Resolve)
		api.GET("/children/:childId/videos", cfg.VisibilityHandler.VisibleVideos)
	}

	admin := router.Group("/api/admin")
	{
		admin.POST("/reconcile", cfg.ReconcileHandler.Reconcile)
	}

	return router
}
