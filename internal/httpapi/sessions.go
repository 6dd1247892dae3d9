package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/session"
)

const (
	logEventResolveSession = "resolve_session"
	logEventLoadToken      = "load_access_token"
	logEventClearToken     = "clear_access_token"
	logEventTouchSession   = "touch_session"
	logEventCacheSnapshot  = "cache_snapshot"
)

// WebSessions binds browser cookies to stored bearer tokens and to the
// dashboard payload each browser was last shown.
type WebSessions struct {
	manager   *session.Manager
	tokens    *session.TokenStore
	snapshots *session.SnapshotCache
	logger    *zap.Logger
}

// NewWebSessions constructs WebSessions.
func NewWebSessions(manager *session.Manager, tokens *session.TokenStore, snapshots *session.SnapshotCache, logger *zap.Logger) *WebSessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSessions{manager: manager, tokens: tokens, snapshots: snapshots, logger: logger}
}

// Resolve returns the session of the current request, issuing a cookie when needed.
func (sessions *WebSessions) Resolve(ginContext *gin.Context) (*requestSession, error) {
	sessionID, sessionErr := sessions.manager.SessionID(ginContext.Writer, ginContext.Request)
	if sessionErr != nil {
		sessions.logger.Error(logEventResolveSession, zap.Error(sessionErr))
		return nil, sessionErr
	}
	requestContext := ginContext.Request.Context()
	token, found, tokenErr := sessions.tokens.Token(requestContext, sessionID)
	if tokenErr != nil {
		sessions.logger.Error(logEventLoadToken, zap.Error(tokenErr))
		return nil, tokenErr
	}
	if found {
		if touchErr := sessions.tokens.Touch(requestContext, sessionID); touchErr != nil {
			sessions.logger.Warn(logEventTouchSession, zap.Error(touchErr))
		}
	}
	return &requestSession{
		ctx:       requestContext,
		sessionID: sessionID,
		token:     token,
		hasToken:  found,
		tokens:    sessions.tokens,
		logger:    sessions.logger,
	}, nil
}

// RememberSnapshot caches the payload the session is about to be shown.
func (sessions *WebSessions) RememberSnapshot(current *requestSession, snapshot model.Snapshot) {
	if rememberErr := sessions.snapshots.Remember(current.ctx, current.sessionID, snapshot); rememberErr != nil {
		sessions.logger.Warn(logEventCacheSnapshot, zap.Error(rememberErr))
	}
}

// RecallSnapshot returns the payload the session was last shown.
func (sessions *WebSessions) RecallSnapshot(current *requestSession) (model.Snapshot, bool) {
	snapshot, found, recallErr := sessions.snapshots.Recall(current.ctx, current.sessionID)
	if recallErr != nil {
		sessions.logger.Warn(logEventCacheSnapshot, zap.Error(recallErr))
		return model.Snapshot{}, false
	}
	return snapshot, found
}

// AddFlash queues a notice for the next dashboard render.
func (sessions *WebSessions) AddFlash(ginContext *gin.Context, flash session.Flash) error {
	return sessions.manager.AddFlash(ginContext.Writer, ginContext.Request, flash)
}

// TakeFlash pops the pending notice, if any.
func (sessions *WebSessions) TakeFlash(ginContext *gin.Context) (session.Flash, bool) {
	return sessions.manager.TakeFlash(ginContext.Writer, ginContext.Request)
}

// SaveToken stores the token issued at login for the current browser session.
func (sessions *WebSessions) SaveToken(ginContext *gin.Context, token string) error {
	sessionID, sessionErr := sessions.manager.SessionID(ginContext.Writer, ginContext.Request)
	if sessionErr != nil {
		return sessionErr
	}
	return sessions.tokens.Save(ginContext.Request.Context(), sessionID, token)
}

// requestSession is the per-request view of a browser session handed to the API client.
type requestSession struct {
	ctx            context.Context
	sessionID      string
	token          string
	hasToken       bool
	tokens         *session.TokenStore
	logger         *zap.Logger
	loginRequested bool
}

func (current *requestSession) AccessToken() (string, bool) {
	return current.token, current.hasToken
}

func (current *requestSession) ClearAccessToken() {
	current.token = ""
	current.hasToken = false
	if clearErr := current.tokens.Clear(current.ctx, current.sessionID); clearErr != nil {
		current.logger.Warn(logEventClearToken, zap.Error(clearErr))
	}
}

func (current *requestSession) RedirectToLogin() {
	current.loginRequested = true
}
