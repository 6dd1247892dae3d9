package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	headerAuthorization    = "Authorization"
	headerContentType      = "Content-Type"
	headerAccept           = "Accept"
	bearerPrefix           = "Bearer "
	contentTypeJSON        = "application/json"
	maxResponseBodyBytes   = 4 << 20
	defaultRequestTimeout  = 30 * time.Second
	logEventAPIRequest     = "api_request"
	logEventAPIFailure     = "api_request_failed"
	logEventSessionExpired = "api_session_expired"
	logFieldMethod         = "method"
	logFieldPath           = "path"
	logFieldStatus         = "status"
	logFieldDuration       = "dur"
)

// HTTPClient executes outbound HTTP requests.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Session is the per-request authentication context handed to the client.
type Session interface {
	AccessToken() (string, bool)
	ClearAccessToken()
	RedirectToLogin()
}

// Body encodes a request payload and reports its content type.
type Body interface {
	encode() (io.Reader, string, error)
}

// JSONBody is serialized as JSON with an explicit JSON content type.
type JSONBody struct {
	Value any
}

func (body JSONBody) encode() (io.Reader, string, error) {
	encoded, encodeErr := json.Marshal(body.Value)
	if encodeErr != nil {
		return nil, "", fmt.Errorf("apiclient: encode json body: %w", encodeErr)
	}
	return bytes.NewReader(encoded), contentTypeJSON, nil
}

// FormField is a plain multipart field.
type FormField struct {
	Name  string
	Value string
}

// FormFile is a multipart file part.
type FormFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// MultipartBody is a file upload. Its content type is produced by the multipart
// writer so that it carries the boundary. Parts are streamed to the request
// through a pipe, so an archive is never held in memory whole.
type MultipartBody struct {
	Fields []FormField
	Files  []FormFile
}

func (body MultipartBody) encode() (io.Reader, string, error) {
	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)
	go func() {
		pipeWriter.CloseWithError(body.writeParts(writer))
	}()
	return pipeReader, writer.FormDataContentType(), nil
}

func (body MultipartBody) writeParts(writer *multipart.Writer) error {
	for _, field := range body.Fields {
		if writeErr := writer.WriteField(field.Name, field.Value); writeErr != nil {
			return fmt.Errorf("apiclient: write multipart field %s: %w", field.Name, writeErr)
		}
	}
	for _, file := range body.Files {
		part, partErr := writer.CreateFormFile(file.FieldName, file.FileName)
		if partErr != nil {
			return fmt.Errorf("apiclient: create multipart file %s: %w", file.FieldName, partErr)
		}
		if _, copyErr := io.Copy(part, file.Content); copyErr != nil {
			return fmt.Errorf("apiclient: copy multipart file %s: %w", file.FieldName, copyErr)
		}
	}
	if closeErr := writer.Close(); closeErr != nil {
		return fmt.Errorf("apiclient: close multipart body: %w", closeErr)
	}
	return nil
}

// Result is a parsed success response.
type Result struct {
	StatusCode int
	NoContent  bool
	Body       json.RawMessage
}

// Decode unmarshals the response body into target.
func (result *Result) Decode(target any) error {
	if result == nil || result.NoContent {
		return nil
	}
	if decodeErr := json.Unmarshal(result.Body, target); decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	return nil
}

// Client issues authenticated requests against the Sriox backend API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient constructs a Client. A nil httpClient gets a default with a timeout.
func NewClient(baseURL string, httpClient HTTPClient, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Request issues an authenticated call and applies the response policy:
//
//  1. 401: the session token is cleared, the session is sent to the login view,
//     and (nil, nil) is returned. Callers abort silently on a nil result.
//  2. 204: a Result with NoContent set; the body is never parsed.
//  3. otherwise the body is parsed as JSON. Non-2xx yields *APIError.
//
// A session without a token is handled like a 401 without touching the network.
func (client *Client) Request(ctx context.Context, session Session, path string, method string, body Body) (*Result, error) {
	token, hasToken := session.AccessToken()
	if !hasToken {
		client.expireSession(session, method, path)
		return nil, nil
	}

	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		encodedReader, encodedContentType, encodeErr := body.encode()
		if encodeErr != nil {
			return nil, encodeErr
		}
		bodyReader = encodedReader
		contentType = encodedContentType
	}

	request, requestErr := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if requestErr != nil {
		if bodyCloser, closable := bodyReader.(io.Closer); closable {
			bodyCloser.Close()
		}
		return nil, fmt.Errorf("apiclient: create request: %w", requestErr)
	}
	request.Header.Set(headerAuthorization, bearerPrefix+token)
	request.Header.Set(headerAccept, contentTypeJSON)
	if contentType != "" {
		request.Header.Set(headerContentType, contentType)
	}

	statusCode, responseBody, doErr := client.do(request, path)
	if doErr != nil {
		return nil, doErr
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		client.expireSession(session, method, path)
		return nil, nil
	case statusCode == http.StatusNoContent:
		return &Result{StatusCode: statusCode, NoContent: true}, nil
	case !isSuccessStatus(statusCode):
		apiError := &APIError{StatusCode: statusCode, Detail: extractDetail(responseBody)}
		client.logger.Warn(logEventAPIFailure,
			zap.String(logFieldMethod, method),
			zap.String(logFieldPath, path),
			zap.Int(logFieldStatus, statusCode),
			zap.Error(apiError),
		)
		return nil, apiError
	}

	if !json.Valid(responseBody) {
		return nil, fmt.Errorf("%w: %s %s", ErrMalformedResponse, method, path)
	}
	return &Result{StatusCode: statusCode, Body: json.RawMessage(responseBody)}, nil
}

func (client *Client) do(request *http.Request, path string) (int, []byte, error) {
	startedAt := time.Now()
	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		client.logger.Warn(logEventAPIFailure,
			zap.String(logFieldMethod, request.Method),
			zap.String(logFieldPath, path),
			zap.Error(doErr),
		)
		return 0, nil, newNetworkFailure(request.Method, path, doErr)
	}
	defer response.Body.Close()

	responseBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes))
	if readErr != nil {
		return 0, nil, newNetworkFailure(request.Method, path, readErr)
	}

	client.logger.Debug(logEventAPIRequest,
		zap.String(logFieldMethod, request.Method),
		zap.String(logFieldPath, path),
		zap.Int(logFieldStatus, response.StatusCode),
		zap.Duration(logFieldDuration, time.Since(startedAt)),
	)
	return response.StatusCode, responseBody, nil
}

func (client *Client) expireSession(session Session, method string, path string) {
	client.logger.Info(logEventSessionExpired, zap.String(logFieldMethod, method), zap.String(logFieldPath, path))
	session.ClearAccessToken()
	session.RedirectToLogin()
}

func isSuccessStatus(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// extractDetail reads the optional string `detail` field of an error body.
func extractDetail(responseBody []byte) string {
	var errorBody struct {
		Detail json.RawMessage `json:"detail"`
	}
	if decodeErr := json.Unmarshal(responseBody, &errorBody); decodeErr != nil || len(errorBody.Detail) == 0 {
		return ""
	}
	var detail string
	if decodeErr := json.Unmarshal(errorBody.Detail, &detail); decodeErr != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}
