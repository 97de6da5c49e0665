package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/response"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type auditReader interface {
	Recent(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditHandler lists the audit trail for administrators.
type AuditHandler struct {
	audit auditReader
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audit auditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary Recent audit entries
// @Tags Audit
// @Produce json
// @Param username query string false "Filter by username"
// @Param resource query string false "Filter by resource"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "Maximum entries (default 50, max 500)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{
		Username: strings.TrimSpace(c.Query("username")),
		Resource: strings.TrimSpace(c.Query("resource")),
		Limit:    defaultAuditLimit,
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = min(n, maxAuditLimit)
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "since must be an RFC3339 timestamp"))
			return
		}
		filter.Since = &since
	}
	logs, err := h.audit.Recent(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
