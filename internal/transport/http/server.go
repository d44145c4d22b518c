package http

import (
	"github.com/gin-gonic/gin"

	"ragapi/internal/auth"
	"ragapi/internal/bootstrap"
	"ragapi/internal/transport/http/handler"
	"ragapi/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	documentHandler := handler.NewDocumentHandler(app.IngestService)
	searchHandler := handler.NewSearchHandler(app.SearchService)
	keyHandler := handler.NewKeyHandler(app.KeyManager)

	v1 := router.Group("/api/v1")
	v1.Use(
		middleware.APIKeyAuth(app.KeyManager),
		middleware.RateLimit(app.RateLimiter),
	)

	documents := v1.Group("/documents")
	documents.POST("", middleware.RequirePermission(auth.PermissionWrite), documentHandler.Upload)
	documents.GET("", middleware.RequirePermission(auth.PermissionRead), documentHandler.List)
	documents.GET("/:filename", middleware.RequirePermission(auth.PermissionRead), documentHandler.Status)
	documents.DELETE("/:filename", middleware.RequirePermission(auth.PermissionDelete), documentHandler.Delete)

	v1.POST("/search", middleware.RequirePermission(auth.PermissionRead), searchHandler.Search)

	keys := v1.Group("/keys")
	keys.Use(middleware.RequirePermission(auth.PermissionManageKeys))
	keys.POST("", keyHandler.Create)
	keys.GET("", keyHandler.List)
	keys.DELETE("", keyHandler.Revoke)

	return router
}
