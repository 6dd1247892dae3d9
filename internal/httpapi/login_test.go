package httpapi_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/httpapi"
)

func TestLoginPageRendersForm(testingT *testing.T) {
	harness := buildDashboardHarness(testingT)
	browser := harness.newBrowser()

	recorder := browser.get(httpapi.LoginPagePath)

	require.Equal(testingT, http.StatusOK, recorder.Code)
	document := parseDocument(testingT, recorder.Body.String())
	action, _ := document.Find("#login-form").Attr("action")
	require.Equal(testingT, httpapi.LoginPagePath, action)
	require.Equal(testingT, 0, document.Find("#login-error").Length())
	require.Equal(testingT, 1, document.Find("#page-footer").Length())
	require.Equal(testingT, 1, document.Find(`#login-form input[name="`+httpapi.CSRFFieldName+`"]`).Length())
	signupHref, _ := document.Find("#signup-link").Attr("href")
	require.Equal(testingT, httpapi.SignupPagePath, signupHref)
}

func TestLoginForwardsCredentialsAsForm(testingT *testing.T) {
	harness := buildDashboardHarness(testingT)
	browser := harness.newBrowser()

	browser.signIn(testingT)

	loginRequests := harness.backend.requestsFor(backendRouteLogin)
	require.Len(testingT, loginRequests, 1)
	require.Empty(testingT, loginRequests[0].Authorization)
	require.Equal(testingT, formContentType, loginRequests[0].ContentType)
	submitted, parseErr := url.ParseQuery(string(loginRequests[0].Body))
	require.NoError(testingT, parseErr)
	require.Equal(testingT, testUsername, submitted.Get("username"))
	require.Equal(testingT, testPassword, submitted.Get("password"))
}

func TestLoginPageForwardsSignedInUser(testingT *testing.T) {
	harness := buildDashboardHarness(testingT)
	browser := harness.newBrowser()
	browser.signIn(testingT)

	requireRedirect(testingT, browser.get(httpapi.LoginPagePath), httpapi.DashboardPagePath)
}

func TestLoginFailures(testingT *testing.T) {
	testCases := []struct {
		name           string
		backendStatus  int
		backendBody    string
		form           url.Values
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "missing password",
			form:           url.Values{"username": {testUsername}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Username and password are required.",
		},
		{
			name:           "rejected with detail",
			backendStatus:  http.StatusUnauthorized,
			backendBody:    `{"detail":"Incorrect username or password"}`,
			form:           url.Values{"username": {testUsername}, "password": {"wrong"}},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Incorrect username or password",
		},
		{
			name:           "rejected without detail",
			backendStatus:  http.StatusUnauthorized,
			backendBody:    `{}`,
			form:           url.Values{"username": {testUsername}, "password": {"wrong"}},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Incorrect username or password",
		},
		{
			name:           "backend failure",
			backendStatus:  http.StatusInternalServerError,
			backendBody:    `not json`,
			form:           url.Values{"username": {testUsername}, "password": {testPassword}},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "API request failed",
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			harness := buildDashboardHarness(testingT)
			if testCase.backendStatus != 0 {
				harness.backend.respond(backendRouteLogin, testCase.backendStatus, testCase.backendBody)
			}
			browser := harness.newBrowser()
			browser.get(httpapi.LoginPagePath)

			recorder := browser.postForm(httpapi.LoginPagePath, testCase.form)

			require.Equal(testingT, testCase.expectedStatus, recorder.Code)
			document := parseDocument(testingT, recorder.Body.String())
			require.Equal(testingT, testCase.expectedError, strings.TrimSpace(document.Find("#login-error").Text()))
			usernameValue, _ := document.Find("#login-username").Attr("value")
			require.Equal(testingT, testUsername, usernameValue)
			requireRedirect(testingT, browser.get(httpapi.DashboardPagePath), httpapi.LoginPagePath)
		})
	}
}

func TestLogoutClearsStoredToken(testingT *testing.T) {
	harness := buildDashboardHarness(testingT)
	browser := harness.newBrowser()
	browser.signIn(testingT)

	recorder := browser.postForm(httpapi.LogoutPath, url.Values{})

	requireRedirect(testingT, recorder, httpapi.LoginPagePath)
	requireRedirect(testingT, browser.get(httpapi.DashboardPagePath), httpapi.LoginPagePath)
	require.Empty(testingT, harness.backend.requestsFor(backendRouteSummary))

	removed, purgeErr := harness.tokens.PurgeStale(context.Background(), 0)
	require.NoError(testingT, purgeErr)
	require.Zero(testingT, removed)
}
