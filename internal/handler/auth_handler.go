package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/pkg/config"
)

type sessionManager interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.Session, string, error)
	Logout(ctx context.Context, token string) (*models.Session, error)
}

// AuthHandler opens and closes browser sessions.
type AuthHandler struct {
	sessions sessionManager
	cookie   config.SessionConfig
	logger   *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(sessions sessionManager, cookie config.SessionConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, cookie: cookie, logger: logger}
}

type loginData struct {
	Username string
	Next     string
	Error    string
}

// safeNext keeps only local redirect targets.
func safeNext(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}

// LoginPage shows the login form, or goes home when already signed in.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	next := safeNext(c.Query("next"))
	if _, ok := middleware.CurrentSession(c); ok {
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	c.HTML(http.StatusOK, "login", newPage(c, "Connexion", "", loginData{Next: next}))
}

// Login checks the posted credentials against the backend. On success the
// session cookie is set and the user is sent to next.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	_ = c.ShouldBind(&req)
	next := safeNext(c.PostForm("next"))

	sess, token, err := h.sessions.Login(c.Request.Context(), req)
	if err != nil {
		h.logger.Info("login failed", zap.String("username", req.Username), zap.Error(err))
		c.HTML(formStatus(err), "login", newPage(c, "Connexion", "", loginData{
			Username: req.Username,
			Next:     next,
			Error:    userMessage(err),
		}))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.CookieSecure, true)
	middleware.SetSession(c, sess)
	c.Redirect(http.StatusSeeOther, next)
}

// Logout ends the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.CookieName); err == nil && token != "" {
		if _, err := h.sessions.Logout(c.Request.Context(), token); err != nil {
			h.logger.Debug("logout with unusable token", zap.Error(err))
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, "", -1, "/", "", h.cookie.CookieSecure, true)
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}
