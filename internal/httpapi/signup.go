package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/session"
)

const (
	SignupPagePath             = "/signup"
	signupTemplateName         = "signup"
	signupPageTitle            = "Create your Sriox account"
	formFieldEmail             = "email"
	signupMessageMissingFields = "Username, email, and password are required."
	signupMessageInvalidInput  = "Please check the username, email, and password."
	signupMessageCreated       = "Account created. Please sign in."
	logEventSignup             = "signup"
	logEventSignupNotice       = "signup_notice"
)

// RenderSignup shows the registration form, or forwards to the dashboard when a token is held.
func (handlers *LoginHandlers) RenderSignup(context *gin.Context) {
	if handlers.signedIn(context) {
		context.Redirect(http.StatusSeeOther, DashboardPagePath)
		return
	}
	handlers.renderSignup(context, http.StatusOK, loginTemplateData{})
}

// SubmitSignup registers the account and sends the browser to the sign-in page.
// The password is never echoed back into the form.
func (handlers *LoginHandlers) SubmitSignup(context *gin.Context) {
	input := model.SignupInput{
		Username: strings.TrimSpace(context.PostForm(formFieldUsername)),
		Email:    strings.TrimSpace(context.PostForm(formFieldEmail)),
		Password: context.PostForm(formFieldPassword),
	}
	retained := loginTemplateData{Username: input.Username, Email: input.Email}
	if input.Username == "" || input.Email == "" || input.Password == "" {
		retained.Error = signupMessageMissingFields
		handlers.renderSignup(context, http.StatusBadRequest, retained)
		return
	}

	user, signupErr := handlers.client.Signup(context.Request.Context(), input)
	if signupErr != nil {
		handlers.logger.Info(logEventSignup, zap.String(logFieldUsername, input.Username), zap.Error(signupErr))
		status, message := signupFailure(signupErr)
		retained.Error = message
		handlers.renderSignup(context, status, retained)
		return
	}

	handlers.logger.Info(logEventSignup, zap.String(logFieldUsername, user.Username))
	if flashErr := handlers.sessions.AddFlash(context, session.Flash{Notice: signupMessageCreated}); flashErr != nil {
		handlers.logger.Warn(logEventSignupNotice, zap.Error(flashErr))
	}
	context.Redirect(http.StatusSeeOther, LoginPagePath)
}

func (handlers *LoginHandlers) renderSignup(context *gin.Context, status int, data loginTemplateData) {
	data.PageTitle = signupPageTitle
	handlers.execute(context, handlers.signupTemplate, status, data)
}

// signupFailure maps a registration error to the response status and the
// message shown above the form. Client errors keep their status; anything else
// is a gateway failure.
func signupFailure(signupErr error) (int, string) {
	var apiError *apiclient.APIError
	if !errors.As(signupErr, &apiError) {
		return http.StatusBadGateway, apiclient.FallbackErrorMessage
	}
	if apiError.StatusCode < http.StatusBadRequest || apiError.StatusCode >= http.StatusInternalServerError {
		return http.StatusBadGateway, apiError.Error()
	}
	if apiError.Detail == "" && apiError.StatusCode == http.StatusUnprocessableEntity {
		return apiError.StatusCode, signupMessageInvalidInput
	}
	return apiError.StatusCode, apiError.Error()
}
