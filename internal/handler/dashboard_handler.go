package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/pkg/response"
)

type dashboardService interface {
	View(ctx context.Context, caller service.Caller) (*models.DashboardView, error)
}

// DashboardHandler serves the home page and its JSON twin.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

type dashboardData struct {
	View  *models.DashboardView
	Error string
}

// Page renders the dashboard. A failing backend leaves the page up with
// an error banner.
func (h *DashboardHandler) Page(c *gin.Context) {
	data := dashboardData{}
	view, err := h.service.View(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		data.Error = userMessage(err)
		view = &models.DashboardView{}
	}
	data.View = view
	c.HTML(http.StatusOK, "dashboard", newPage(c, "Tableau de bord", "dashboard", data))
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Aggregated stage and report counters with the unit breakdown and the stages needing attention
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	start := time.Now()
	view, err := h.service.View(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, view.CachedStats)
	meta := middleware.Meta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, view, nil, meta)
}
