package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

type tokenResolver map[string]*models.Session

func (r tokenResolver) Resolve(_ context.Context, token string) (*models.Session, error) {
	if sess, ok := r[token]; ok {
		return sess, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(Dependencies{
		Logger:     zap.NewNop(),
		Renderer:   renderer(t),
		Sessions:   tokenResolver{"editor": editor(), "consultant": consultant()},
		CookieName: testCookie.CookieName,
		Metrics:    service.NewMetricsService(),

		Auth:       NewAuthHandler(&fakeSessions{}, testCookie, nil),
		Dashboard:  NewDashboardHandler(fakeDashboard{view: &models.DashboardView{}}),
		Stages:     newStageFixture().handler,
		Stagiaires: NewStagiaireHandler(&fakeStagiaires{items: sampleStagiaires()}, &fakeExporter{}, 10),
		Encadrants: NewEncadrantHandler(&fakeEncadrants{}, &fakeExporter{}, 10),
		Rapports:   newRapportHandler(&fakeRapports{items: sampleRapports()}),
		Options:    NewOptionsHandler(),
		AuditLog:   NewAuditHandler(&fakeAudit{}),
		Exports:    NewExportHandler(fakeExportStore{dir: t.TempDir()}, nil),
		Probes:     NewMetricsHandler(service.NewMetricsService(), nil),
	})
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterAccessControl(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name     string
		method   string
		target   string
		token    string
		status   int
		location string
	}{
		{name: "health is public", method: http.MethodGet, target: "/health", status: http.StatusOK},
		{name: "login page is public", method: http.MethodGet, target: "/login", status: http.StatusOK},
		{name: "pages need a session", method: http.MethodGet, target: "/stages?q=audit", status: http.StatusSeeOther, location: "/login?next=%2Fstages%3Fq%3Daudit"},
		{name: "home redirects without next", method: http.MethodGet, target: "/", status: http.StatusSeeOther, location: "/login"},
		{name: "api answers 401", method: http.MethodGet, target: "/api/dashboard", status: http.StatusUnauthorized},
		{name: "signed in home", method: http.MethodGet, target: "/", token: "editor", status: http.StatusOK},
		{name: "signed in login goes home", method: http.MethodGet, target: "/login", token: "editor", status: http.StatusSeeOther, location: "/"},
		{name: "consultant cannot edit", method: http.MethodGet, target: "/stagiaires/new", token: "consultant", status: http.StatusForbidden},
		{name: "consultant cannot manage supervisors", method: http.MethodGet, target: "/encadrants", token: "consultant", status: http.StatusForbidden},
		{name: "consultant cannot validate", method: http.MethodPost, target: "/rapports/1/valider", token: "consultant", status: http.StatusForbidden},
		{name: "audit is admin only", method: http.MethodGet, target: "/api/audit", token: "editor", status: http.StatusForbidden},
		{name: "static route beats param", method: http.MethodGet, target: "/stagiaires/recherche", token: "consultant", status: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, target: "/nope", token: "editor", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, tc.method, tc.target, tc.token)
			assert.Equal(t, tc.status, rec.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRouterSetsSecurityHeaders(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/login", "")

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
