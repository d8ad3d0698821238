package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sprintsight/sprintsight/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc service) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, svc)

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/dashboard", h.Dashboard)
	api.GET("/sprints", h.Sprints)
	api.GET("/team-performance", h.TeamPerformance)
	api.GET("/recommendations", h.Recommendations)
	api.GET("/predictions", h.Predictions)

	api.POST("/upload-csv", h.UploadCSV)
	api.POST("/jira/test-connection", h.TestConnection)
	api.POST("/jira/connect", h.Connect)
	api.POST("/jira/refresh", h.Refresh)
	api.GET("/jira/status", h.JiraStatus)

	api.GET("/admin/last-upload", h.LastUpload)

	return r
}
