package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/pkg/logger"
	corsmiddleware "github.com/noah-isme/stages-admin/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/stages-admin/pkg/middleware/requestid"
)

// SessionResolver turns a session cookie into its live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Dependencies is everything NewRouter mounts.
type Dependencies struct {
	Logger         *zap.Logger
	Renderer       *Renderer
	Sessions       SessionResolver
	CookieName     string
	AllowedOrigins []string
	EnableDocs     bool

	Metrics *service.MetricsService
	Audit   *service.AuditService

	Auth       *AuthHandler
	Dashboard  *DashboardHandler
	Stages     *StageHandler
	Stagiaires *StagiaireHandler
	Encadrants *EncadrantHandler
	Rapports   *RapportHandler
	Options    *OptionsHandler
	AuditLog   *AuditHandler
	Exports    *ExportHandler
	Probes     *MetricsHandler
}

// NewRouter builds the gin engine with the page routes, the JSON surface
// under /api and the probes.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.HTMLRender = d.Renderer
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.NoRoute(NotFound)

	r.GET("/health", d.Probes.Health)
	r.GET("/ready", d.Probes.Ready)
	r.GET("/metrics", d.Probes.Prometheus)
	if d.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	public := r.Group("/", middleware.OptionalSession(d.Sessions, d.CookieName))
	public.GET("/login", d.Auth.LoginPage)
	public.POST("/login", middleware.Audit(d.Audit, models.AuditActionLogin, models.ResourceSession), d.Auth.Login)

	pages := r.Group("/", middleware.Session(d.Sessions, d.CookieName))
	pages.POST("/logout", middleware.Audit(d.Audit, models.AuditActionLogout, models.ResourceSession), d.Auth.Logout)
	pages.GET("/", d.Dashboard.Page)
	pages.GET("/exports/:token", d.Exports.Download)

	canEdit := middleware.RequirePermission(models.PermissionCanEdit, Forbidden)

	stages := pages.Group("/stages")
	stages.GET("", d.Stages.List)
	stages.POST("/export", d.Stages.Export)
	stages.POST("/delete", canEdit, d.Stages.Delete)
	stages.GET("/new", canEdit, d.Stages.New)
	stages.GET("/:id/edit", canEdit, d.Stages.Edit)
	stages.GET("/form", canEdit, d.Stages.Form)
	stages.POST("/form", canEdit, d.Stages.Update)
	stages.GET("/:id/attestation", d.Stages.AttestationForm)
	stages.POST("/:id/attestation", d.Stages.Attestation)

	stagiaires := pages.Group("/stagiaires")
	stagiaires.GET("", d.Stagiaires.List)
	stagiaires.GET("/recherche", d.Stagiaires.Search)
	stagiaires.POST("/export", d.Stagiaires.Export)
	stagiaires.POST("/delete", canEdit, d.Stagiaires.Delete)
	stagiaires.GET("/new", canEdit, d.Stagiaires.New)
	stagiaires.POST("/save", canEdit, d.Stagiaires.Save)
	stagiaires.GET("/:id", d.Stagiaires.Dossier)
	stagiaires.GET("/:id/edit", canEdit, d.Stagiaires.Edit)
	stagiaires.GET("/:id/dossier.pdf", d.Stagiaires.DossierPDF)

	encadrants := pages.Group("/encadrants", canEdit)
	encadrants.GET("", d.Encadrants.List)
	encadrants.POST("/export", d.Encadrants.Export)
	encadrants.POST("/delete", d.Encadrants.Delete)
	encadrants.GET("/new", d.Encadrants.New)
	encadrants.POST("/save", d.Encadrants.Save)
	encadrants.GET("/:id/edit", d.Encadrants.Edit)

	rapports := pages.Group("/rapports")
	rapports.GET("", d.Rapports.List)
	rapports.POST("/export", d.Rapports.Export)
	rapports.POST("/delete", canEdit, d.Rapports.Delete)
	rapports.GET("/new", canEdit, d.Rapports.New)
	rapports.POST("/save", canEdit, d.Rapports.Save)
	rapports.GET("/:id/edit", canEdit, d.Rapports.Edit)
	rapports.GET("/:id/download", d.Rapports.Download)
	rapports.POST("/:id/:action", middleware.RequirePermission(models.PermissionCanValidate, Forbidden), d.Rapports.Action)

	api := r.Group("/api",
		corsmiddleware.New(d.AllowedOrigins),
		middleware.ResponseMeta(),
		middleware.Session(d.Sessions, d.CookieName),
	)
	api.GET("/dashboard", d.Dashboard.Stats)
	api.GET("/options/directions", d.Options.Directions)
	api.GET("/options/divisions", d.Options.Divisions)
	api.GET("/options/unites", d.Options.Units)
	api.GET("/options/services", d.Options.Services)
	api.GET("/audit", middleware.RequirePermission(string(models.RoleAdmin), nil), d.AuditLog.List)

	return r
}
