package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/chanindex/internal/api/handler"
	"github.com/timmy/chanindex/internal/api/middleware"
	"github.com/timmy/chanindex/internal/config"
)

// SetupRouter configures the Gin router for the job status service
func SetupRouter(jobs handler.JobReader, urls handler.URLResolver, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(jobs, urls)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs/:platform/:channel", jobHandler.GetJob)
	}

	return r
}
