package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/partdb/backend/docs"
	"github.com/partdb/backend/internal/interfaces/http/middleware"
)

// MountDocs serves the Swagger UI and the OpenAPI document under /swagger.
// auth is run for every request when cfg.RequireAuth is set.
func MountDocs(engine *gin.Engine, cfg middleware.SwaggerConfig, auth gin.HandlerFunc) {
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg, auth),
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.PersistAuthorization(true)),
	)
}
