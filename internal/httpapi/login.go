package httpapi

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	LoginPagePath             = "/login"
	LogoutPath                = "/logout"
	loginTemplateName         = "login"
	loginPageTitle            = "Sign in to Sriox"
	formFieldUsername         = "username"
	formFieldPassword         = "password"
	loginMessageMissingFields = "Username and password are required."
	loginMessageInvalidLogin  = "Incorrect username or password"
	errorCodeAccountRender    = "account_page_render_failed"
	logEventRenderAccount     = "render_account_page"
	logEventLogin             = "login"
	logEventLogout            = "logout"
	logEventSaveToken         = "save_access_token"
	logFieldUsername          = "username"
)

// AccountClient exchanges credentials for a bearer token and registers accounts.
type AccountClient interface {
	Login(ctx context.Context, username string, password string) (string, error)
	Signup(ctx context.Context, input model.SignupInput) (*model.UserSummary, error)
}

type loginTemplateData struct {
	PageTitle  string
	LoginPath  string
	SignupPath string
	Username   string
	Email      string
	Error      string
	Notice     string
	CSRFField  template.HTML
	FooterHTML template.HTML
}

// LoginHandlers serves the sign-in and sign-up pages and the logout action.
type LoginHandlers struct {
	logger         *zap.Logger
	template       *template.Template
	signupTemplate *template.Template
	client         AccountClient
	sessions       *WebSessions
	siteDomain     string
	now            func() time.Time
}

// NewLoginHandlers constructs LoginHandlers.
func NewLoginHandlers(logger *zap.Logger, client AccountClient, sessions *WebSessions, siteDomain string) *LoginHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if siteDomain == "" {
		siteDomain = dashboard.DefaultSiteDomain
	}
	return &LoginHandlers{
		logger:         logger,
		template:       template.Must(template.New(loginTemplateName).Parse(loginTemplateHTML)),
		signupTemplate: template.Must(template.New(signupTemplateName).Parse(signupTemplateHTML)),
		client:         client,
		sessions:       sessions,
		siteDomain:     siteDomain,
		now:            time.Now,
	}
}

// RenderLogin shows the sign-in form, or forwards to the dashboard when a token is held.
func (handlers *LoginHandlers) RenderLogin(context *gin.Context) {
	if handlers.signedIn(context) {
		context.Redirect(http.StatusSeeOther, DashboardPagePath)
		return
	}
	flash, _ := handlers.sessions.TakeFlash(context)
	handlers.render(context, http.StatusOK, loginTemplateData{Notice: flash.Notice})
}

// SubmitLogin exchanges the submitted credentials for a token.
func (handlers *LoginHandlers) SubmitLogin(context *gin.Context) {
	username := strings.TrimSpace(context.PostForm(formFieldUsername))
	password := context.PostForm(formFieldPassword)
	if username == "" || password == "" {
		handlers.render(context, http.StatusBadRequest, loginTemplateData{Username: username, Error: loginMessageMissingFields})
		return
	}

	token, loginErr := handlers.client.Login(context.Request.Context(), username, password)
	if loginErr != nil {
		handlers.logger.Info(logEventLogin, zap.String(logFieldUsername, username), zap.Error(loginErr))
		status := http.StatusBadGateway
		message := apiclient.UserMessage(loginErr)
		var apiError *apiclient.APIError
		if errors.As(loginErr, &apiError) && apiError.StatusCode == http.StatusUnauthorized {
			status = http.StatusUnauthorized
			if apiError.Detail == "" {
				message = loginMessageInvalidLogin
			}
		}
		handlers.render(context, status, loginTemplateData{Username: username, Error: message})
		return
	}

	if saveErr := handlers.sessions.SaveToken(context, token); saveErr != nil {
		handlers.logger.Error(logEventSaveToken, zap.Error(saveErr))
		handlers.render(context, http.StatusInternalServerError, loginTemplateData{Username: username, Error: apiclient.FallbackErrorMessage})
		return
	}
	context.Redirect(http.StatusSeeOther, DashboardPagePath)
}

// Logout clears the stored token and returns to the sign-in page.
func (handlers *LoginHandlers) Logout(context *gin.Context) {
	current, resolveErr := handlers.sessions.Resolve(context)
	if resolveErr == nil {
		current.ClearAccessToken()
		handlers.logger.Debug(logEventLogout)
	}
	context.Redirect(http.StatusSeeOther, LoginPagePath)
}

func (handlers *LoginHandlers) signedIn(context *gin.Context) bool {
	current, resolveErr := handlers.sessions.Resolve(context)
	if resolveErr != nil {
		return false
	}
	_, hasToken := current.AccessToken()
	return hasToken
}

func (handlers *LoginHandlers) render(context *gin.Context, status int, data loginTemplateData) {
	data.PageTitle = loginPageTitle
	handlers.execute(context, handlers.template, status, data)
}

func (handlers *LoginHandlers) execute(context *gin.Context, pageTemplate *template.Template, status int, data loginTemplateData) {
	footerHTML, footerErr := renderFooterHTML(handlers.siteDomain, handlers.now())
	if footerErr != nil {
		handlers.logger.Warn(logEventRenderAccount, zap.Error(footerErr))
	}
	data.LoginPath = LoginPagePath
	data.SignupPath = SignupPagePath
	data.CSRFField = csrfField(context.Request)
	data.FooterHTML = footerHTML

	var buffer bytes.Buffer
	if executeErr := pageTemplate.Execute(&buffer, data); executeErr != nil {
		handlers.logger.Error(logEventRenderAccount, zap.Error(executeErr))
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errorCodeAccountRender})
		return
	}
	context.Data(status, htmlContentType, buffer.Bytes())
}
