package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/pkg/export"
)

type exportStore interface {
	ParseToken(token string) (string, error)
	Open(relPath string) (*os.File, error)
}

// ExportHandler streams stored exports behind their signed links.
type ExportHandler struct {
	exports exportStore
	logger  *zap.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportStore, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{exports: exports, logger: logger}
}

// Download serves /exports/:token.
func (h *ExportHandler) Download(c *gin.Context) {
	relPath, err := h.exports.ParseToken(c.Param("token"))
	if err != nil {
		renderError(c, err)
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		renderError(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		renderError(c, err)
		return
	}
	name := filepath.Base(relPath)
	c.DataFromReader(http.StatusOK, info.Size(), export.ContentTypeFor(name), io.Reader(file), map[string]string{
		"Content-Disposition": `attachment; filename="` + name + `"`,
		"Cache-Control":       "no-store",
	})
	h.logger.Debug("export downloaded", zap.String("file", name))
}
