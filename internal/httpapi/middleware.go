package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerContentTypeOptions = "X-Content-Type-Options"
	headerFrameOptions       = "X-Frame-Options"
	headerXSSProtection      = "X-XSS-Protection"
	headerTransportSecurity  = "Strict-Transport-Security"
	headerReferrerPolicy     = "Referrer-Policy"
	headerCacheControl       = "Cache-Control"
	valueContentTypeOptions  = "nosniff"
	valueFrameOptions        = "DENY"
	valueXSSProtection       = "1; mode=block"
	valueTransportSecurity   = "max-age=31536000; includeSubDomains"
	valueReferrerPolicy      = "same-origin"
	valueCacheControlNoStore = "no-store"
	logEventHTTPRequest      = "http"
	logFieldRequestMethod    = "method"
	logFieldRequestPath      = "path"
	logFieldResponseStatus   = "status"
	logFieldRequestDuration  = "dur"
	logFieldClientIP         = "ip"
	logFieldClientUserAgent  = "ua"
)

// RequestLogger logs every request after it is served.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(context *gin.Context) {
		start := time.Now()
		context.Next()
		logger.Info(logEventHTTPRequest,
			zap.String(logFieldRequestMethod, context.Request.Method),
			zap.String(logFieldRequestPath, context.Request.URL.Path),
			zap.Int(logFieldResponseStatus, context.Writer.Status()),
			zap.Duration(logFieldRequestDuration, time.Since(start)),
			zap.String(logFieldClientIP, context.ClientIP()),
			zap.String(logFieldClientUserAgent, context.Request.UserAgent()),
		)
	}
}

// SecurityHeaders sets the browser hardening headers on every response.
// Pages carry account data, so they are never cached.
func SecurityHeaders() gin.HandlerFunc {
	return func(context *gin.Context) {
		responseHeaders := context.Writer.Header()
		responseHeaders.Set(headerContentTypeOptions, valueContentTypeOptions)
		responseHeaders.Set(headerFrameOptions, valueFrameOptions)
		responseHeaders.Set(headerXSSProtection, valueXSSProtection)
		responseHeaders.Set(headerTransportSecurity, valueTransportSecurity)
		responseHeaders.Set(headerReferrerPolicy, valueReferrerPolicy)
		responseHeaders.Set(headerCacheControl, valueCacheControlNoStore)
		context.Next()
	}
}
