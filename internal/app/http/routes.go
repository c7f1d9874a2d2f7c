package routes

import (
	"net/http"
	"time"

	generateapi "storyboard-app/internal/api/generate"
	storiesapi "storyboard-app/internal/api/stories"
	"storyboard-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Stories  *storiesapi.Handler
	Generate *generateapi.Handler
	Verifier middleware.Verifier
	Logger   *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"message":   "SundayStoryBoard API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Authenticated, sanitized
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Verifier, d.Logger), middleware.SanitizeAndCleanInputMiddleware())

	api.GET("/stories", d.Stories.List)
	api.GET("/stories/:id", d.Stories.Get)
	api.POST("/stories", d.Stories.Create)
	api.PUT("/stories/:id", d.Stories.Update)
	api.DELETE("/stories/:id", d.Stories.Delete)
	api.PUT("/stories/:id/prompts", d.Stories.ReplacePrompts)

	api.POST("/generate-character", d.Generate.Character)
	api.POST("/generate-storyboard", d.Generate.Storyboard)
	api.POST("/generate-variation", d.Generate.Variation)
}
