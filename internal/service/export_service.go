package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/export"
	"github.com/noah-isme/stages-admin/pkg/jobs"
	"github.com/noah-isme/stages-admin/pkg/storage"
)

// Export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const cleanupJobType = "exports.cleanup"

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, opts export.PDFOptions) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	BasePath        string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportResult describes a stored export.
type ExportResult struct {
	Filename  string
	Token     string
	URL       string
	Format    string
	ExpiresAt time.Time
}

// ExportService renders table datasets and keeps them behind signed
// download links.
type ExportService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	xlsx    xlsxRenderer
	audit   *AuditService
	metrics *MetricsService
	cleanup *jobs.Queue
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	s := &ExportService{
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		xlsx:    export.NewXLSXExporter(),
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	s.cleanup = jobs.NewQueue("exports", s.handleCleanup, jobs.QueueConfig{Workers: 1, BufferSize: 1, Logger: logger})
	return s
}

// ParseFormat normalises a requested format; anything unknown is PDF.
func ParseFormat(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case FormatXLSX, "excel":
		return FormatXLSX
	case FormatCSV:
		return FormatCSV
	default:
		return FormatPDF
	}
}

// Render produces the bytes of ds in format, titled title.
func (s *ExportService) Render(format, title string, ds export.Dataset) ([]byte, string, error) {
	if len(ds.Headers) == 0 {
		return nil, "", appErrors.ErrNoColumns
	}
	if ds.Empty() {
		return nil, "", appErrors.ErrExportEmpty
	}
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch ParseFormat(format) {
	case FormatXLSX:
		payload, err = s.xlsx.Render(ds, "Export", title)
		contentType = export.ContentTypeXLSX
	case FormatCSV:
		payload, err = s.csv.Render(ds)
		contentType = export.ContentTypeCSV
	default:
		payload, err = s.pdf.Render(ds, export.PDFOptions{
			Title:      title,
			FontSize:   8,
			HeaderFill: export.FillBlue,
			Landscape:  len(ds.Headers) > 6,
		})
		contentType = export.ContentTypePDF
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Échec de la génération de l'export")
	}
	return payload, contentType, nil
}

// Export renders ds, stores the file and returns a signed link to it.
func (s *ExportService) Export(ctx context.Context, caller Caller, resource, format, title string, ds export.Dataset) (*ExportResult, error) {
	format = ParseFormat(format)
	payload, _, err := s.Render(format, title, ds)
	if err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	filename := fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(resource), s.now().UTC().Format("20060102_150405"), id[:8], format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.logger.Error("export save failed", zap.String("filename", filename), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Échec de l'enregistrement de l'export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Échec de la signature du lien")
	}

	s.metrics.RecordExport(resource, format)
	s.audit.Record(caller.Actor, models.AuditActionExport, resource, "", map[string]interface{}{
		"format":  format,
		"rows":    len(ds.Rows),
		"columns": ds.Headers,
	})

	return &ExportResult{
		Filename:  filename,
		Token:     token,
		URL:       strings.TrimRight(s.cfg.BasePath, "/") + "/exports/" + token,
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates a download token and returns the stored path.
func (s *ExportService) ParseToken(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "Lien de téléchargement invalide ou expiré")
	}
	return relPath, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	f, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Export introuvable")
	}
	return f, nil
}

// Cleanup removes files older than ttl, or the configured result TTL
// when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup schedules Cleanup every configured interval until ctx ends.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	s.cleanup.Start(ctx)
	s.cleanup.Every(ctx, s.cfg.CleanupInterval, cleanupJobType)
}

// StopCleanup stops the cleanup worker.
func (s *ExportService) StopCleanup() {
	s.cleanup.Stop()
}

func (s *ExportService) handleCleanup(context.Context, jobs.Job) error {
	removed, err := s.Cleanup(0)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return nil
}
