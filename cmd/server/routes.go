package main

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/httpapi"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/session"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/storage"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/task"
)

const (
	rootRoute               = "/"
	corsHeaderAuthorization = "Authorization"
	corsHeaderContentType   = "Content-Type"
	corsHeaderCSRFToken     = "X-CSRF-Token"
	corsMaxAge              = 12 * time.Hour
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType, corsHeaderCSRFToken}
	corsExposedHeaders = []string{corsHeaderContentType}
)

type dashboardServer struct {
	router         *gin.Engine
	purgeScheduler *task.Scheduler
}

// newDashboardServer wires the dashboard handlers, their collaborators, and the
// stale session purge onto a fresh gin engine.
func newDashboardServer(configuration ServerConfig, database *gorm.DB, logger *zap.Logger) (*dashboardServer, error) {
	sessionManager, managerErr := session.NewManager(session.ManagerConfig{
		Secret:       configuration.SessionSecret,
		SecureCookie: configuration.CookieSecure,
		MaxAge:       configuration.SessionTTL,
	}, logger)
	if managerErr != nil {
		return nil, managerErr
	}
	valueStore := storage.NewValueStore(database)
	tokenStore := session.NewTokenStore(valueStore)
	webSessions := httpapi.NewWebSessions(sessionManager, tokenStore, session.NewSnapshotCache(valueStore), logger)

	client := apiclient.NewClient(configuration.APIBaseURL, nil, logger)
	renderer := dashboard.NewRenderer(configuration.SiteDomain)
	orchestrator := dashboard.NewOrchestrator(client, renderer, logger)
	forms := dashboard.NewFormController(client, dashboard.NewSubmitGuard(), logger)

	dashboardHandlers := httpapi.NewDashboardWebHandlers(logger, webSessions, orchestrator, forms, configuration.SiteDomain)
	loginHandlers := httpapi.NewLoginHandlers(logger, client, webSessions, configuration.SiteDomain)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(httpapi.SecurityHeaders())
	if len(configuration.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     configuration.AllowedOrigins,
			AllowMethods:     corsAllowedMethods,
			AllowHeaders:     corsAllowedHeaders,
			ExposeHeaders:    corsExposedHeaders,
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		}))
	}
	router.Use(httpapi.CSRFProtection(httpapi.CSRFConfig{
		Secret:         configuration.SessionSecret,
		SecureCookie:   configuration.CookieSecure,
		MaxAge:         configuration.SessionTTL,
		TrustedOrigins: originHosts(configuration.AllowedOrigins),
	}, logger))

	registerRoutes(router, loginHandlers, dashboardHandlers)

	purgeScheduler := task.NewScheduler(
		task.SessionPurgeJobName,
		configuration.PurgeInterval,
		task.NewSessionPurgeRunner(tokenStore, configuration.SessionTTL, logger),
		logger,
	)

	return &dashboardServer{router: router, purgeScheduler: purgeScheduler}, nil
}

func registerRoutes(router *gin.Engine, loginHandlers *httpapi.LoginHandlers, dashboardHandlers *httpapi.DashboardWebHandlers) {
	router.GET(rootRoute, func(context *gin.Context) {
		context.Redirect(http.StatusFound, httpapi.DashboardPagePath)
	})
	router.GET(httpapi.HealthPath, httpapi.Health)

	router.GET(httpapi.LoginPagePath, loginHandlers.RenderLogin)
	router.POST(httpapi.LoginPagePath, loginHandlers.SubmitLogin)
	router.POST(httpapi.LogoutPath, loginHandlers.Logout)
	router.GET(httpapi.SignupPagePath, loginHandlers.RenderSignup)
	router.POST(httpapi.SignupPagePath, loginHandlers.SubmitSignup)

	router.GET(httpapi.DashboardPagePath, dashboardHandlers.RenderDashboard)
	router.POST(httpapi.WebsitesCreatePath, dashboardHandlers.CreateWebsite)
	router.POST(httpapi.WebsitesUpdatePath, dashboardHandlers.UpdateWebsite)
	router.POST(httpapi.RedirectsCreatePath, dashboardHandlers.CreateRedirect)
	router.POST(httpapi.RedirectsUpdatePath, dashboardHandlers.UpdateRedirect)
	router.POST(httpapi.GitHubMappingsCreatePath, dashboardHandlers.CreateGitHubMapping)
	router.POST(httpapi.GitHubMappingsUpdatePath, dashboardHandlers.UpdateGitHubMapping)
	router.POST(httpapi.DeleteItemPath, dashboardHandlers.DeleteItem)
}

// originHosts reduces configured origins to the host form the CSRF origin check compares.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		parsedOrigin, parseErr := url.Parse(origin)
		if parseErr != nil || parsedOrigin.Host == "" {
			continue
		}
		hosts = append(hosts, parsedOrigin.Host)
	}
	return hosts
}
