package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/session"
)

const (
	DashboardPagePath             = "/dashboard"
	WebsitesCreatePath            = "/dashboard/websites"
	WebsitesUpdatePath            = "/dashboard/websites/update"
	RedirectsCreatePath           = "/dashboard/redirects"
	RedirectsUpdatePath           = "/dashboard/redirects/update"
	GitHubMappingsCreatePath      = "/dashboard/github-mappings"
	GitHubMappingsUpdatePath      = "/dashboard/github-mappings/update"
	DeleteItemPath                = "/dashboard/delete"
	dashboardTemplateName         = "dashboard"
	htmlContentType               = "text/html; charset=utf-8"
	dashboardPageTitle            = "Sriox Dashboard"
	formFieldID                   = "id"
	formFieldSubdomain            = "subdomain"
	formFieldZipFile              = "zip_file"
	formFieldName                 = "name"
	formFieldTargetURL            = "target_url"
	formFieldGitHubUsername       = "github_username"
	formFieldRepositoryName       = "repository_name"
	formFieldItemType             = "item_type"
	formFieldItemID               = "item_id"
	unknownItemTypeMessage        = "Unknown item type"
	errorCodeDashboardRender      = "dashboard_render_failed"
	errorCodeSessionUnavailable   = "session_unavailable"
	errorCodeInvalidResourceID    = "invalid_resource_id"
	logEventRenderDashboard       = "render_dashboard"
	logEventRenderDashboardFooter = "render_dashboard_footer"
	logEventSaveFlash             = "save_flash"
	logEventOpenArchive           = "open_archive"
)

type dashboardPaths struct {
	Dashboard            string
	Logout               string
	WebsitesCreate       string
	WebsitesUpdate       string
	RedirectsCreate      string
	RedirectsUpdate      string
	GitHubMappingsCreate string
	GitHubMappingsUpdate string
	DeleteItem           string
}

type dashboardModals struct {
	CreateWebsite       string
	EditWebsite         string
	CreateRedirect      string
	EditRedirect        string
	CreateGitHubMapping string
	EditGitHubMapping   string
	ConfirmDelete       string
}

var (
	defaultDashboardPaths = dashboardPaths{
		Dashboard:            DashboardPagePath,
		Logout:               LogoutPath,
		WebsitesCreate:       WebsitesCreatePath,
		WebsitesUpdate:       WebsitesUpdatePath,
		RedirectsCreate:      RedirectsCreatePath,
		RedirectsUpdate:      RedirectsUpdatePath,
		GitHubMappingsCreate: GitHubMappingsCreatePath,
		GitHubMappingsUpdate: GitHubMappingsUpdatePath,
		DeleteItem:           DeleteItemPath,
	}
	defaultDashboardModals = dashboardModals{
		CreateWebsite:       dashboard.ModalCreateWebsite,
		EditWebsite:         dashboard.ModalEditWebsite,
		CreateRedirect:      dashboard.ModalCreateRedirect,
		EditRedirect:        dashboard.ModalEditRedirect,
		CreateGitHubMapping: dashboard.ModalCreateGitHubMapping,
		EditGitHubMapping:   dashboard.ModalEditGitHubMapping,
		ConfirmDelete:       dashboard.ModalConfirmDelete,
	}
	dashboardTemplateFuncs = template.FuncMap{
		"prefillJSON": prefillJSON,
	}
)

type dashboardTemplateData struct {
	PageTitle   string
	View        dashboard.View
	Loading     bool
	Username    string
	Alert       string
	OpenModal   string
	ModalError  string
	CSRFField   template.HTML
	FooterHTML  template.HTML
	Paths       dashboardPaths
	Modals      dashboardModals
	modalValues map[string]string
}

// Value returns the value a field of modal was last submitted with.
func (data dashboardTemplateData) Value(modal string, field string) string {
	if data.OpenModal != modal {
		return ""
	}
	return data.modalValues[field]
}

// ErrorFor returns the inline error of modal, if it is the reopened one.
func (data dashboardTemplateData) ErrorFor(modal string) string {
	if data.OpenModal != modal {
		return ""
	}
	return data.ModalError
}

// DashboardWebHandlers serves the dashboard page and its form posts.
type DashboardWebHandlers struct {
	logger       *zap.Logger
	template     *template.Template
	sessions     *WebSessions
	orchestrator *dashboard.Orchestrator
	forms        *dashboard.FormController
	siteDomain   string
	now          func() time.Time
}

// NewDashboardWebHandlers wires the dashboard page to its controllers.
func NewDashboardWebHandlers(logger *zap.Logger, sessions *WebSessions, orchestrator *dashboard.Orchestrator, forms *dashboard.FormController, siteDomain string) *DashboardWebHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if siteDomain == "" {
		siteDomain = dashboard.DefaultSiteDomain
	}
	compiledTemplate := template.Must(template.New(dashboardTemplateName).Funcs(dashboardTemplateFuncs).Parse(dashboardTemplateHTML))
	return &DashboardWebHandlers{
		logger:       logger,
		template:     compiledTemplate,
		sessions:     sessions,
		orchestrator: orchestrator,
		forms:        forms,
		siteDomain:   siteDomain,
		now:          time.Now,
	}
}

// RenderDashboard loads the snapshot and renders the page. A page that only
// reports the outcome of a submission which changed nothing is drawn from the
// snapshot the session was last shown.
func (handlers *DashboardWebHandlers) RenderDashboard(context *gin.Context) {
	current, resolved := handlers.resolveSession(context)
	if !resolved {
		return
	}

	flash, hasFlash := handlers.sessions.TakeFlash(context)
	result := handlers.load(context, current, hasFlash)
	if result.RedirectToLogin || current.loginRequested {
		context.Redirect(http.StatusSeeOther, LoginPagePath)
		return
	}

	footerHTML, footerErr := renderFooterHTML(handlers.siteDomain, handlers.now())
	if footerErr != nil {
		handlers.logger.Warn(logEventRenderDashboardFooter, zap.Error(footerErr))
		footerHTML = template.HTML("")
	}

	data := dashboardTemplateData{
		PageTitle:   dashboardPageTitle,
		View:        result.View,
		Loading:     result.View.State == dashboard.LoadStateLoading,
		Alert:       result.Alert,
		OpenModal:   flash.Modal,
		ModalError:  flash.Error,
		CSRFField:   csrfField(context.Request),
		FooterHTML:  footerHTML,
		Paths:       defaultDashboardPaths,
		Modals:      defaultDashboardModals,
		modalValues: flash.Values,
	}
	if data.Alert == "" {
		data.Alert = flash.Alert
	}
	if result.View.User != nil {
		data.Username = result.View.User.Username
	}

	var buffer bytes.Buffer
	if executeErr := handlers.template.Execute(&buffer, data); executeErr != nil {
		handlers.logger.Error(logEventRenderDashboard, zap.Error(executeErr))
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errorCodeDashboardRender})
		return
	}
	context.Data(http.StatusOK, htmlContentType, buffer.Bytes())
}

// CreateWebsite handles the upload modal.
func (handlers *DashboardWebHandlers) CreateWebsite(context *gin.Context) {
	form := dashboard.CreateWebsiteForm{Subdomain: context.PostForm(formFieldSubdomain)}
	fileHeader, fileErr := context.FormFile(formFieldZipFile)
	if fileErr == nil {
		archiveFile, openErr := fileHeader.Open()
		if openErr != nil {
			handlers.logger.Warn(logEventOpenArchive, zap.Error(openErr))
		} else {
			defer archiveFile.Close()
			form.Archive = &apiclient.Archive{FileName: fileHeader.Filename, Content: archiveFile}
		}
	}
	handlers.submit(context, form)
}

// UpdateWebsite handles the edit website modal.
func (handlers *DashboardWebHandlers) UpdateWebsite(context *gin.Context) {
	resourceID, parsed := handlers.resourceID(context)
	if !parsed {
		return
	}
	handlers.submit(context, dashboard.EditWebsiteForm{ID: resourceID, Subdomain: context.PostForm(formFieldSubdomain)})
}

// CreateRedirect handles the create redirect modal.
func (handlers *DashboardWebHandlers) CreateRedirect(context *gin.Context) {
	handlers.submit(context, dashboard.CreateRedirectForm{
		Name:      context.PostForm(formFieldName),
		TargetURL: context.PostForm(formFieldTargetURL),
	})
}

// UpdateRedirect handles the edit redirect modal.
func (handlers *DashboardWebHandlers) UpdateRedirect(context *gin.Context) {
	resourceID, parsed := handlers.resourceID(context)
	if !parsed {
		return
	}
	handlers.submit(context, dashboard.EditRedirectForm{
		ID:        resourceID,
		Name:      context.PostForm(formFieldName),
		TargetURL: context.PostForm(formFieldTargetURL),
	})
}

// CreateGitHubMapping handles the create mapping modal.
func (handlers *DashboardWebHandlers) CreateGitHubMapping(context *gin.Context) {
	handlers.submit(context, dashboard.CreateGitHubMappingForm{
		Subdomain:      context.PostForm(formFieldSubdomain),
		GitHubUsername: context.PostForm(formFieldGitHubUsername),
		RepositoryName: context.PostForm(formFieldRepositoryName),
	})
}

// UpdateGitHubMapping handles the edit mapping modal.
func (handlers *DashboardWebHandlers) UpdateGitHubMapping(context *gin.Context) {
	resourceID, parsed := handlers.resourceID(context)
	if !parsed {
		return
	}
	handlers.submit(context, dashboard.EditGitHubMappingForm{
		ID:             resourceID,
		Subdomain:      context.PostForm(formFieldSubdomain),
		GitHubUsername: context.PostForm(formFieldGitHubUsername),
		RepositoryName: context.PostForm(formFieldRepositoryName),
	})
}

// DeleteItem handles the confirm delete dialog.
func (handlers *DashboardWebHandlers) DeleteItem(context *gin.Context) {
	current, resolved := handlers.resolveSession(context)
	if !resolved {
		return
	}

	target, parseErr := dashboard.ParseDeleteTarget(context.PostForm(formFieldItemType), context.PostForm(formFieldItemID))
	if parseErr != nil {
		message := parseErr.Error()
		if errors.Is(parseErr, model.ErrUnknownResourceKind) {
			message = unknownItemTypeMessage
		}
		handlers.finish(context, current, dashboard.Outcome{Modal: dashboard.ModalConfirmDelete, Alert: dashboard.DeleteAlert(message)})
		return
	}

	outcome := handlers.forms.Delete(context.Request.Context(), current.sessionID, current, target)
	handlers.finish(context, current, outcome)
}

func (handlers *DashboardWebHandlers) submit(context *gin.Context, form dashboard.Form) {
	current, resolved := handlers.resolveSession(context)
	if !resolved {
		return
	}
	outcome := handlers.forms.Submit(context.Request.Context(), current.sessionID, current, form)
	handlers.finish(context, current, outcome)
}

func (handlers *DashboardWebHandlers) load(context *gin.Context, current *requestSession, reportOnly bool) dashboard.LoadResult {
	if reportOnly {
		if snapshot, found := handlers.sessions.RecallSnapshot(current); found {
			return handlers.orchestrator.Redisplay(current, snapshot)
		}
	}
	result := handlers.orchestrator.Load(context.Request.Context(), current)
	if result.Snapshot != nil {
		handlers.sessions.RememberSnapshot(current, *result.Snapshot)
	}
	return result
}

// finish turns an outcome into the post/redirect/get response. Only a Refresh
// makes the dashboard fetch the snapshot again; errors and alerts travel as a
// flash and are drawn over the snapshot already shown. A duplicate submission
// gets 204 so the browser stays on the current page.
func (handlers *DashboardWebHandlers) finish(context *gin.Context, current *requestSession, outcome dashboard.Outcome) {
	if outcome.Aborted || current.loginRequested {
		context.Redirect(http.StatusSeeOther, LoginPagePath)
		return
	}

	if outcome.Duplicate {
		context.Status(http.StatusNoContent)
		return
	}

	var flash *session.Flash
	switch {
	case outcome.Refresh:
		// fetched again by the redirected GET
	case outcome.InlineError != "":
		flash = &session.Flash{Modal: outcome.Modal, Error: outcome.InlineError, Values: outcome.Values}
	case outcome.Alert != "":
		flash = &session.Flash{Alert: outcome.Alert}
	}
	if flash != nil {
		if flashErr := handlers.sessions.AddFlash(context, *flash); flashErr != nil {
			handlers.logger.Error(logEventSaveFlash, zap.Error(flashErr))
		}
	}
	context.Redirect(http.StatusSeeOther, DashboardPagePath)
}

func (handlers *DashboardWebHandlers) resolveSession(context *gin.Context) (*requestSession, bool) {
	current, resolveErr := handlers.sessions.Resolve(context)
	if resolveErr != nil {
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errorCodeSessionUnavailable})
		return nil, false
	}
	return current, true
}

func (handlers *DashboardWebHandlers) resourceID(context *gin.Context) (int64, bool) {
	resourceID, parseErr := model.ParseResourceID(context.PostForm(formFieldID))
	if parseErr != nil {
		context.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorCodeInvalidResourceID})
		return 0, false
	}
	return resourceID, true
}

func prefillJSON(values map[string]string) string {
	encoded, encodeErr := json.Marshal(values)
	if encodeErr != nil {
		return "{}"
	}
	return string(encoded)
}
