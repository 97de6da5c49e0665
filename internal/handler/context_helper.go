package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/response"
)

const (
	errorPage   = "error"
	flashCookie = "stages_flash"

	flashSuccess = "success"
	flashError   = "error"
)

// Page is the data every template receives through the layout.
type Page struct {
	Title  string
	Active string
	User   *models.User
	Flash  *Flash
	Data   any
}

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}

func newPage(c *gin.Context, title, active string, data any) Page {
	p := Page{Title: title, Active: active, Data: data, Flash: takeFlash(c)}
	if sess, ok := middleware.CurrentSession(c); ok {
		user := sess.User
		p.User = &user
	}
	return p
}

func currentUser(c *gin.Context) *models.User {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return nil
	}
	return &sess.User
}

func setFlash(c *gin.Context, kind, message string) {
	c.SetCookie(flashCookie, kind+"|"+message, 60, "/", "", false, true)
}

func takeFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

func redirectWithFlash(c *gin.Context, location, kind, message string) {
	setFlash(c, kind, message)
	c.Redirect(http.StatusSeeOther, location)
}

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "Identifiant invalide")
	}
	return id, nil
}

func formID(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(c.PostForm(name)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// renderError answers with the error page, or the JSON envelope on the API
// surface.
func renderError(c *gin.Context, err error) {
	if middleware.WantsJSON(c) {
		response.Error(c, err)
		return
	}
	appErr := appErrors.FromError(err)
	c.HTML(appErr.Status, errorPage, newPage(c, errorTitle(appErr.Status), "", appErr))
}

func errorTitle(status int) string {
	switch status {
	case http.StatusForbidden:
		return "Accès refusé"
	case http.StatusNotFound:
		return "Page introuvable"
	default:
		return "Erreur"
	}
}

// Forbidden renders the access denied page.
func Forbidden(c *gin.Context) {
	renderError(c, appErrors.ErrForbidden)
}

// NotFound renders the missing page.
func NotFound(c *gin.Context) {
	renderError(c, appErrors.Clone(appErrors.ErrNotFound, "Page introuvable"))
}

// formStatus is the status of a re-rendered form: 422 for input the user
// must correct, the error's own status otherwise.
func formStatus(err error) int {
	if errors.Is(err, form.ErrIncomplete) {
		return http.StatusUnprocessableEntity
	}
	status := appErrors.FromError(err).Status
	if status < http.StatusBadRequest {
		return http.StatusUnprocessableEntity
	}
	return status
}

func userMessage(err error) string {
	return appErrors.FromError(err).Message
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}
