package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"fever-diagnosis/internal/metrics"
	"fever-diagnosis/internal/models"
	"fever-diagnosis/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded HTML templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04:05")
		},
	}).ParseFS(templateFS, "templates/*.html")
}

// Handler handles HTTP requests
type Handler struct {
	diagnoser *service.Diagnoser
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewHandler creates a new web handler
func NewHandler(diagnoser *service.Diagnoser, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		diagnoser: diagnoser,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.POST("/predict", h.Predict)

	api := r.Group("/api")
	{
		api.GET("/visits", h.ListVisits)
	}

	r.GET("/health", h.HealthCheck)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// Index renders the submission form and the visits table
func (h *Handler) Index(c *gin.Context) {
	visits, err := h.diagnoser.ListVisits(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list visits", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to load visits")
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"visits": visits,
		"fields": models.FeatureNames(),
	})
}

// Predict handles the submission form. Invalid input is dropped and the user is
// sent back to the form; a stored visit also redirects to the listing.
func (h *Handler) Predict(c *gin.Context) {
	sub, err := models.ParseVisitForm(c.GetPostForm)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) && h.metrics != nil {
			h.metrics.ObserveRejected(verr.Field)
		}
		h.logger.Info("Submission rejected", zap.Error(err))
		c.Redirect(http.StatusFound, "/")
		return
	}

	visit, err := h.diagnoser.Diagnose(c.Request.Context(), sub)
	if err != nil {
		h.logger.Error("Failed to diagnose visit", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to record visit")
		return
	}

	h.logger.Debug("Visit recorded", zap.Int64("id", visit.ID))
	c.Redirect(http.StatusFound, "/")
}

// ListVisits returns all visits as JSON
func (h *Handler) ListVisits(c *gin.Context) {
	visits, err := h.diagnoser.ListVisits(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list visits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get visits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"visits": visits,
		"total":  len(visits),
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "fever-diagnosis",
		"model":   h.diagnoser.ModelInfo(),
	})
}
