package router

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/resume-extractor/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(deps.CredentialHeader))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health.HealthCheck(c.Request.Context()); err != nil {
				deps.Logger.Error("Health check failed", slog.String("error", err.Error()))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": deps.ServiceName,
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.ServiceName,
		})
	})

	resumeHandler := handler.NewResumeHandler(deps)

	v1 := r.Group("/v1")
	{
		// POST /v1/parse - Submit a resume for parsing
		v1.POST("/parse", AdmissionMiddleware(deps.Gate, deps.CredentialHeader, deps.Logger), resumeHandler.SubmitResume)

		// GET /v1/jobs/:job_id - Poll a parsing job
		v1.GET("/jobs/:job_id", resumeHandler.GetJob)
	}

	return r
}
