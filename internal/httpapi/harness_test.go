package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/httpapi"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/session"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/storage"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/testutil"
)

const (
	testSessionSecret   = "0123456789abcdef0123456789abcdef"
	testUsername        = "marko"
	testPassword        = "correct horse battery staple"
	testAccessToken     = "eyJhbGciOiJIUzI1NiJ9.dashboard.signature"
	headerLocation      = "Location"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	formContentType     = "application/x-www-form-urlencoded"
	jsonContentType     = "application/json"
	backendRouteLogin   = "POST /login"
	backendRouteSummary = "GET /dashboard"
	headerCSRFToken     = "X-CSRF-Token"
)

type backendResponse struct {
	status int
	body   string
}

type recordedBackendRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	Body          []byte
}

func (request recordedBackendRequest) route() string {
	return request.Method + " " + request.Path
}

// fakeBackend stands in for the Sriox API and records every call it receives.
type fakeBackend struct {
	server    *httptest.Server
	mutex     sync.Mutex
	responses map[string]backendResponse
	gates     map[string]chan struct{}
	requests  []recordedBackendRequest
}

func newFakeBackend(testingT *testing.T) *fakeBackend {
	testingT.Helper()
	backend := &fakeBackend{responses: map[string]backendResponse{}, gates: map[string]chan struct{}{}}
	backend.respond(backendRouteLogin, http.StatusOK, `{"access_token":"`+testAccessToken+`","token_type":"bearer"}`)
	backend.respondWithSnapshot(testingT, emptySnapshot())
	backend.server = httptest.NewServer(http.HandlerFunc(backend.serveHTTP))
	testingT.Cleanup(backend.server.Close)
	return backend
}

func (backend *fakeBackend) serveHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)
	recorded := recordedBackendRequest{
		Method:        request.Method,
		Path:          request.URL.Path,
		RawQuery:      request.URL.RawQuery,
		Authorization: request.Header.Get(headerAuthorization),
		ContentType:   request.Header.Get(headerContentType),
		Body:          body,
	}

	backend.mutex.Lock()
	backend.requests = append(backend.requests, recorded)
	response, found := backend.responses[recorded.route()]
	gate := backend.gates[recorded.route()]
	backend.mutex.Unlock()

	if gate != nil {
		<-gate
	}
	if !found {
		response = backendResponse{status: http.StatusNotFound, body: `{"detail":"Not Found"}`}
	}
	if response.status == http.StatusNoContent {
		responseWriter.WriteHeader(http.StatusNoContent)
		return
	}
	responseWriter.Header().Set(headerContentType, jsonContentType)
	responseWriter.WriteHeader(response.status)
	_, _ = responseWriter.Write([]byte(response.body))
}

func (backend *fakeBackend) respond(route string, status int, body string) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.responses[route] = backendResponse{status: status, body: body}
}

// hold parks every call to route until the returned channel is closed.
func (backend *fakeBackend) hold(route string) chan struct{} {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	gate := make(chan struct{})
	backend.gates[route] = gate
	return gate
}

func (backend *fakeBackend) respondWithSnapshot(testingT *testing.T, snapshot model.Snapshot) {
	testingT.Helper()
	encoded, encodeErr := json.Marshal(snapshot)
	require.NoError(testingT, encodeErr)
	backend.respond(backendRouteSummary, http.StatusOK, string(encoded))
}

func (backend *fakeBackend) recorded() []recordedBackendRequest {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	return append([]recordedBackendRequest(nil), backend.requests...)
}

func (backend *fakeBackend) routes() []string {
	var routes []string
	for _, request := range backend.recorded() {
		routes = append(routes, request.route())
	}
	return routes
}

func (backend *fakeBackend) requestsFor(route string) []recordedBackendRequest {
	var matching []recordedBackendRequest
	for _, request := range backend.recorded() {
		if request.route() == route {
			matching = append(matching, request)
		}
	}
	return matching
}

func emptySnapshot() model.Snapshot {
	return model.Snapshot{
		User:           &model.UserSummary{ID: 1, Username: testUsername, Email: "marko@example.com"},
		ResourceCounts: model.ResourceCounts{MaxAllowed: 3},
		Websites:       []model.Website{},
		Redirects:      []model.Redirect{},
		GitHubMappings: []model.GitHubMapping{},
	}
}

type dashboardHarness struct {
	router   *gin.Engine
	backend  *fakeBackend
	tokens   *session.TokenStore
	database *gorm.DB
}

func buildDashboardHarness(testingT *testing.T) *dashboardHarness {
	testingT.Helper()
	gin.SetMode(gin.TestMode)

	backend := newFakeBackend(testingT)
	logger := zap.NewNop()

	manager, managerErr := session.NewManager(session.ManagerConfig{Secret: testSessionSecret}, logger)
	require.NoError(testingT, managerErr)
	database := testutil.OpenMigratedDatabase(testingT)
	values := storage.NewValueStore(database)
	tokens := session.NewTokenStore(values)
	webSessions := httpapi.NewWebSessions(manager, tokens, session.NewSnapshotCache(values), logger)

	client := apiclient.NewClient(backend.server.URL, backend.server.Client(), logger)
	orchestrator := dashboard.NewOrchestrator(client, dashboard.NewRenderer(dashboard.DefaultSiteDomain), logger)
	forms := dashboard.NewFormController(client, dashboard.NewSubmitGuard(), logger)

	dashboardHandlers := httpapi.NewDashboardWebHandlers(logger, webSessions, orchestrator, forms, dashboard.DefaultSiteDomain)
	loginHandlers := httpapi.NewLoginHandlers(logger, client, webSessions, dashboard.DefaultSiteDomain)

	router := gin.New()
	router.Use(httpapi.SecurityHeaders())
	router.Use(httpapi.CSRFProtection(httpapi.CSRFConfig{Secret: testSessionSecret}, logger))
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

	return &dashboardHarness{router: router, backend: backend, tokens: tokens, database: database}
}

// testBrowser replays cookies between requests. Handlers may save the session
// more than once per response, so the last cookie of each name wins. Like a
// real browser it submits forms with the CSRF token of the last page it rendered.
type testBrowser struct {
	harness   *dashboardHarness
	cookies   map[string]*http.Cookie
	csrfToken string
}

func (harness *dashboardHarness) newBrowser() *testBrowser {
	return &testBrowser{harness: harness, cookies: map[string]*http.Cookie{}}
}

// tab returns a second browser tab sharing the cookies and token seen so far.
func (browser *testBrowser) tab() *testBrowser {
	cookies := make(map[string]*http.Cookie, len(browser.cookies))
	for name, cookie := range browser.cookies {
		cookies[name] = cookie
	}
	return &testBrowser{harness: browser.harness, cookies: cookies, csrfToken: browser.csrfToken}
}

func (browser *testBrowser) do(request *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range browser.cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	browser.harness.router.ServeHTTP(recorder, request)
	for _, cookie := range recorder.Result().Cookies() {
		browser.cookies[cookie.Name] = cookie
	}
	if strings.HasPrefix(recorder.Header().Get(headerContentType), "text/html") {
		document, parseErr := goquery.NewDocumentFromReader(strings.NewReader(recorder.Body.String()))
		if parseErr == nil {
			if token, found := document.Find(`input[name="` + httpapi.CSRFFieldName + `"]`).First().Attr("value"); found {
				browser.csrfToken = token
			}
		}
	}
	return recorder
}

func (browser *testBrowser) get(path string) *httptest.ResponseRecorder {
	return browser.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (browser *testBrowser) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	submitted := url.Values{}
	for name, fieldValues := range values {
		submitted[name] = fieldValues
	}
	if browser.csrfToken != "" {
		submitted.Set(httpapi.CSRFFieldName, browser.csrfToken)
	}
	return browser.postFormWithoutToken(path, submitted)
}

func (browser *testBrowser) postFormWithoutToken(path string, values url.Values) *httptest.ResponseRecorder {
	return browser.do(newFormRequest(path, values))
}

func newFormRequest(path string, values url.Values) *http.Request {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	request.Header.Set(headerContentType, formContentType)
	return request
}

func (browser *testBrowser) postMultipart(path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, body)
	request.Header.Set(headerContentType, contentType)
	request.Header.Set(headerCSRFToken, browser.csrfToken)
	return browser.do(request)
}

func (browser *testBrowser) signIn(testingT *testing.T) {
	testingT.Helper()
	require.Equal(testingT, http.StatusOK, browser.get(httpapi.LoginPagePath).Code)
	recorder := browser.postForm(httpapi.LoginPagePath, url.Values{"username": {testUsername}, "password": {testPassword}})
	require.Equal(testingT, http.StatusSeeOther, recorder.Code)
	require.Equal(testingT, httpapi.DashboardPagePath, recorder.Header().Get(headerLocation))
}

func (browser *testBrowser) loadDashboard(testingT *testing.T) *goquery.Document {
	testingT.Helper()
	recorder := browser.get(httpapi.DashboardPagePath)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	return parseDocument(testingT, recorder.Body.String())
}

func parseDocument(testingT *testing.T, body string) *goquery.Document {
	testingT.Helper()
	document, parseErr := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(testingT, parseErr)
	return document
}

func requireRedirect(testingT *testing.T, recorder *httptest.ResponseRecorder, location string) {
	testingT.Helper()
	require.Equal(testingT, http.StatusSeeOther, recorder.Code)
	require.Equal(testingT, location, recorder.Header().Get(headerLocation))
}
