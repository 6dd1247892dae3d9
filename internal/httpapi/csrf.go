package httpapi

import (
	"crypto/sha256"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

const (
	// CSRFFieldName is the hidden form field carrying the request token.
	CSRFFieldName = "csrf_token"

	csrfCookieName        = "sriox_csrf"
	csrfCookiePath        = "/"
	csrfKeyLabel          = "sriox-dashboard/csrf:"
	csrfRejectedBody      = `{"error":"csrf_token_invalid"}`
	jsonContentType       = "application/json; charset=utf-8"
	logEventCSRFRejected  = "csrf_rejected"
	headerContentTypeName = "Content-Type"
)

// CSRFConfig configures the form token check.
type CSRFConfig struct {
	Secret         string
	SecureCookie   bool
	MaxAge         time.Duration
	TrustedOrigins []string
}

// CSRFProtection rejects every state-changing request that does not carry the
// token issued to the browser with its last page. The token is bound to a
// signed cookie, so pages served from sibling subdomains cannot forge it.
// Without secure cookies the deployment is plain HTTP and the Referer check,
// which assumes TLS, is skipped; the Origin check still applies.
func CSRFProtection(config CSRFConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	authKey := sha256.Sum256([]byte(csrfKeyLabel + strings.TrimSpace(config.Secret)))

	options := []csrf.Option{
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(CSRFFieldName),
		csrf.Path(csrfCookiePath),
		csrf.HttpOnly(true),
		csrf.Secure(config.SecureCookie),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			logger.Warn(logEventCSRFRejected,
				zap.String(logFieldRequestPath, request.URL.Path),
				zap.Error(csrf.FailureReason(request)),
			)
			responseWriter.Header().Set(headerContentTypeName, jsonContentType)
			responseWriter.WriteHeader(http.StatusForbidden)
			_, _ = responseWriter.Write([]byte(csrfRejectedBody))
		})),
	}
	if config.MaxAge > 0 {
		options = append(options, csrf.MaxAge(int(config.MaxAge.Seconds())))
	}
	if len(config.TrustedOrigins) > 0 {
		options = append(options, csrf.TrustedOrigins(config.TrustedOrigins))
	}
	protect := csrf.Protect(authKey[:], options...)

	return func(context *gin.Context) {
		request := context.Request
		if !config.SecureCookie {
			request = csrf.PlaintextHTTPRequest(request)
		}

		admitted := false
		protect(http.HandlerFunc(func(_ http.ResponseWriter, admittedRequest *http.Request) {
			admitted = true
			context.Request = admittedRequest
			context.Next()
		})).ServeHTTP(context.Writer, request)
		if !admitted {
			context.Abort()
		}
	}
}

// csrfField renders the hidden token input for the forms of a page.
func csrfField(request *http.Request) template.HTML {
	return csrf.TemplateField(request)
}
