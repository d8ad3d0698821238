package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sprintsight/sprintsight/internal/config"
	"github.com/sprintsight/sprintsight/internal/domain"
	"github.com/sprintsight/sprintsight/internal/repo"
	"github.com/sprintsight/sprintsight/internal/services"
)

// service is the narrow surface the handlers need.
type service interface {
	UploadFile(ctx context.Context, filename string, data []byte) (services.IngestSummary, error)
	TestConnection(ctx context.Context, c services.Credentials) (bool, string)
	Connect(ctx context.Context, c services.Credentials) (services.IngestSummary, error)
	Refresh(ctx context.Context) (services.IngestSummary, error)
	Status() services.ConnectionStatus

	Dashboard() (domain.DashboardSummary, error)
	Sprints() ([]domain.SprintMetrics, error)
	TeamPerformance() ([]domain.TeamMemberMetrics, error)
	Recommendations(ctx context.Context) ([]domain.RecommendationPrompt, error)
	Predictions() ([]domain.DelayPrediction, error)
	LastUpload(ctx context.Context) (*repo.UploadRecord, error)
}

type Handlers struct {
	cfg config.Config
	log zerolog.Logger
	svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc}
}

// fail maps the error taxonomy onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNoDataset), errors.Is(err, domain.ErrNotConnected):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTrackerAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrParse),
		errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptyDataset):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTrackerTimeout), errors.Is(err, domain.ErrTrackerUnreachable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ---- query surface ----

func (h *Handlers) Dashboard(c *gin.Context) {
	sum, err := h.svc.Dashboard()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handlers) Sprints(c *gin.Context) {
	sprints, err := h.svc.Sprints()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sprints)
}

func (h *Handlers) TeamPerformance(c *gin.Context) {
	team, err := h.svc.TeamPerformance()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *Handlers) Recommendations(c *gin.Context) {
	prompts, err := h.svc.Recommendations(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prompts)
}

func (h *Handlers) Predictions(c *gin.Context) {
	preds, err := h.svc.Predictions()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preds)
}

// ---- ingestion surface ----

func (h *Handlers) UploadCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart file field"})
		return
	}
	if h.cfg.MaxUploadBytes > 0 && file.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, err)
		return
	}

	sum, err := h.svc.UploadFile(c.Request.Context(), file.Filename, data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"filename":      file.Filename,
		"total_issues":  sum.TotalIssues,
		"total_sprints": sum.TotalSprints,
		"skipped_rows":  sum.SkippedRows,
	})
}

type connectionRequest struct {
	JiraURL  string `json:"jira_url" binding:"required"`
	Email    string `json:"email" binding:"required"`
	APIToken string `json:"api_token" binding:"required"`
}

func (r connectionRequest) creds() services.Credentials {
	return services.Credentials{JiraURL: r.JiraURL, Email: r.Email, Token: r.APIToken}
}

func (h *Handlers) TestConnection(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok, msg := h.svc.TestConnection(c.Request.Context(), req.creds())
	c.JSON(http.StatusOK, gin.H{"success": ok, "message": msg})
}

func (h *Handlers) Connect(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.svc.Connect(c.Request.Context(), req.creds())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Connected to Jira successfully",
		"total_issues":  sum.TotalIssues,
		"total_sprints": sum.TotalSprints,
	})
}

func (h *Handlers) Refresh(c *gin.Context) {
	sum, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Data refreshed successfully",
		"total_issues":  sum.TotalIssues,
		"total_sprints": sum.TotalSprints,
	})
}

func (h *Handlers) JiraStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

func (h *Handlers) LastUpload(c *gin.Context) {
	rec, err := h.svc.LastUpload(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
