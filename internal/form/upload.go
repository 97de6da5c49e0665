package form

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/pkg/config"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

const octetStream = "application/octet-stream"

// formatLabels names accepted MIME types in messages.
var formatLabels = map[string]string{
	"application/pdf":    "PDF",
	"image/jpeg":         "JPG",
	"image/jpg":          "JPG",
	"image/png":          "PNG",
	"application/msword": "DOC",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "DOCX",
	"application/vnd.oasis.opendocument.text":                                 "ODT",
}

// FileRule bounds one kind of upload.
type FileRule struct {
	AllowedMIMEs []string
	MaxBytes     int64
	// SizeMessage is the text shown when MaxBytes is exceeded.
	SizeMessage string
}

// StageAttachmentRule applies to the acceptance letter of a stage.
func StageAttachmentRule(cfg config.UploadRule) FileRule {
	rule := newRule(cfg, []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"}, 10<<20)
	rule.SizeMessage = fmt.Sprintf("La taille du fichier ne doit pas dépasser %s", megabytes(rule.MaxBytes))
	return rule
}

// ReportFileRule applies to report files.
func ReportFileRule(cfg config.UploadRule) FileRule {
	rule := newRule(cfg, []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
	}, 15<<20)
	rule.SizeMessage = fmt.Sprintf("Fichier trop volumineux (max %s).", megabytes(rule.MaxBytes))
	return rule
}

func newRule(cfg config.UploadRule, mimes []string, maxBytes int64) FileRule {
	rule := FileRule{AllowedMIMEs: mimes, MaxBytes: maxBytes}
	if len(cfg.AllowedMIMEs) > 0 {
		rule.AllowedMIMEs = lo.Map(cfg.AllowedMIMEs, func(m string, _ int) string { return strings.ToLower(m) })
	}
	if cfg.MaxFileSizeBytes > 0 {
		rule.MaxBytes = cfg.MaxFileSizeBytes
	}
	return rule
}

// Formats lists the accepted formats for display, e.g. "PDF, JPG, PNG".
func (r FileRule) Formats() string {
	labels := lo.Uniq(lo.Map(r.AllowedMIMEs, func(m string, _ int) string {
		if label, ok := formatLabels[m]; ok {
			return label
		}
		return strings.ToUpper(m[strings.LastIndex(m, "/")+1:])
	}))
	return strings.Join(labels, ", ")
}

// TypeMessage is the text shown for a rejected format.
func (r FileRule) TypeMessage() string {
	return "Format de fichier non autorisé. Formats acceptés: " + r.Formats()
}

// Check returns a validation error carrying the user-facing message when
// doc breaks the rule. The declared type is trusted unless it is missing or
// generic, in which case the content is sniffed.
func (r FileRule) Check(doc *models.Document) error {
	if doc == nil {
		return nil
	}
	detected := DetectType(doc)
	if !lo.Contains(r.AllowedMIMEs, detected) {
		return appErrors.Wrap(fmt.Errorf("file %q has type %s", doc.Filename, detected),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, r.TypeMessage())
	}
	if size := int64(len(doc.Data)); size > r.MaxBytes {
		return appErrors.Wrap(fmt.Errorf("file %q is %s, limit %s", doc.Filename, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(r.MaxBytes))),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, r.SizeMessage)
	}
	return nil
}

// DetectType returns the media type of doc without parameters.
func DetectType(doc *models.Document) string {
	declared := strings.ToLower(strings.TrimSpace(strings.Split(doc.ContentType, ";")[0]))
	if declared != "" && declared != octetStream {
		return declared
	}
	return strings.Split(mimetype.Detect(doc.Data).String(), ";")[0]
}

// megabytes renders n the way the forms always have: "10 Mo".
func megabytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%d Mo", n>>20)
	}
	return strings.Replace(humanize.IBytes(uint64(n)), "MiB", "Mo", 1)
}
