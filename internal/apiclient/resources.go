package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	dashboardPath        = "/dashboard"
	loginPath            = "/login"
	signupPath           = "/signup"
	fieldSubdomain       = "subdomain"
	fieldZipFile         = "zip_file"
	fieldUsername        = "username"
	fieldPassword        = "password"
	querySubdomain       = "subdomain"
	contentTypeForm      = "application/x-www-form-urlencoded"
	logEventLoginFailure = "api_login_failed"
	logEventSignupFailed = "api_signup_failed"
)

// ErrMissingAccessToken indicates a login success response without a token.
var ErrMissingAccessToken = errors.New("apiclient: login response has no access token")

// Archive is an uploaded site bundle.
type Archive struct {
	FileName string
	Content  io.Reader
}

// FetchSnapshot loads the aggregate dashboard payload. A nil snapshot with a nil
// error means the session expired and the caller was redirected to login.
func (client *Client) FetchSnapshot(ctx context.Context, session Session) (*model.Snapshot, error) {
	result, requestErr := client.Request(ctx, session, dashboardPath, http.MethodGet, nil)
	if requestErr != nil || result == nil {
		return nil, requestErr
	}
	var snapshot model.Snapshot
	if decodeErr := result.Decode(&snapshot); decodeErr != nil {
		return nil, decodeErr
	}
	return &snapshot, nil
}

// CreateWebsite uploads a new site bundle under subdomain.
func (client *Client) CreateWebsite(ctx context.Context, session Session, subdomain string, archive Archive) (*Result, error) {
	body := MultipartBody{
		Fields: []FormField{{Name: fieldSubdomain, Value: subdomain}},
		Files:  []FormFile{{FieldName: fieldZipFile, FileName: archive.FileName, Content: archive.Content}},
	}
	return client.Request(ctx, session, model.ResourceKindWebsite.CollectionPath(), http.MethodPost, body)
}

// UpdateWebsite renames a website. The new subdomain travels in the query string.
func (client *Client) UpdateWebsite(ctx context.Context, session Session, websiteID int64, subdomain string) (*Result, error) {
	path := model.ResourceKindWebsite.Path(websiteID) + "?" + querySubdomain + "=" + url.QueryEscape(subdomain)
	return client.Request(ctx, session, path, http.MethodPut, nil)
}

func (client *Client) CreateRedirect(ctx context.Context, session Session, input model.RedirectInput) (*Result, error) {
	return client.Request(ctx, session, model.ResourceKindRedirect.CollectionPath(), http.MethodPost, JSONBody{Value: input})
}

func (client *Client) UpdateRedirect(ctx context.Context, session Session, redirectID int64, input model.RedirectInput) (*Result, error) {
	return client.Request(ctx, session, model.ResourceKindRedirect.Path(redirectID), http.MethodPut, JSONBody{Value: input})
}

func (client *Client) CreateGitHubMapping(ctx context.Context, session Session, input model.GitHubMappingInput) (*Result, error) {
	return client.Request(ctx, session, model.ResourceKindGitHubMapping.CollectionPath(), http.MethodPost, JSONBody{Value: input})
}

func (client *Client) UpdateGitHubMapping(ctx context.Context, session Session, mappingID int64, input model.GitHubMappingInput) (*Result, error) {
	return client.Request(ctx, session, model.ResourceKindGitHubMapping.Path(mappingID), http.MethodPut, JSONBody{Value: input})
}

// Delete removes one resource of the given kind.
func (client *Client) Delete(ctx context.Context, session Session, kind model.ResourceKind, resourceID int64) (*Result, error) {
	if kind.IsZero() {
		return nil, model.ErrUnknownResourceKind
	}
	return client.Request(ctx, session, kind.Path(resourceID), http.MethodDelete, nil)
}

// Login exchanges credentials for a bearer token. It is the only unauthenticated call.
func (client *Client) Login(ctx context.Context, username string, password string) (string, error) {
	form := url.Values{}
	form.Set(fieldUsername, username)
	form.Set(fieldPassword, password)

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+loginPath, strings.NewReader(form.Encode()))
	if requestErr != nil {
		return "", fmt.Errorf("apiclient: create login request: %w", requestErr)
	}
	request.Header.Set(headerContentType, contentTypeForm)
	request.Header.Set(headerAccept, contentTypeJSON)

	statusCode, responseBody, doErr := client.do(request, loginPath)
	if doErr != nil {
		return "", doErr
	}
	if !isSuccessStatus(statusCode) {
		apiError := &APIError{StatusCode: statusCode, Detail: extractDetail(responseBody)}
		client.logger.Info(logEventLoginFailure, zap.Int(logFieldStatus, statusCode))
		return "", apiError
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if decodeErr := json.Unmarshal(responseBody, &tokenResponse); decodeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	accessToken := strings.TrimSpace(tokenResponse.AccessToken)
	if accessToken == "" {
		return "", ErrMissingAccessToken
	}
	return accessToken, nil
}

// Signup registers a new account. Like Login it carries no bearer token.
func (client *Client) Signup(ctx context.Context, input model.SignupInput) (*model.UserSummary, error) {
	encodedInput, encodeErr := json.Marshal(input)
	if encodeErr != nil {
		return nil, fmt.Errorf("apiclient: encode signup: %w", encodeErr)
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+signupPath, bytes.NewReader(encodedInput))
	if requestErr != nil {
		return nil, fmt.Errorf("apiclient: create signup request: %w", requestErr)
	}
	request.Header.Set(headerContentType, contentTypeJSON)
	request.Header.Set(headerAccept, contentTypeJSON)

	statusCode, responseBody, doErr := client.do(request, signupPath)
	if doErr != nil {
		return nil, doErr
	}
	if !isSuccessStatus(statusCode) {
		apiError := &APIError{StatusCode: statusCode, Detail: extractDetail(responseBody)}
		client.logger.Info(logEventSignupFailed, zap.Int(logFieldStatus, statusCode), zap.Error(apiError))
		return nil, apiError
	}

	var user model.UserSummary
	if decodeErr := json.Unmarshal(responseBody, &user); decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	return &user, nil
}
