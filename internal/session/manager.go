package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/storage"
)

const (
	// CookieName names the cookie that carries the session id.
	CookieName = "sriox_dashboard"

	sessionValueKeyID     = "sid"
	sessionFlashKeyNotice = "notice"
	minimumSecretLength   = 32
	defaultCookieMaxAge   = 7 * 24 * time.Hour
	cookiePath            = "/"
	logEventDecodeSession = "decode_session_cookie"
	logEventDecodeFlash   = "decode_session_flash"
	logEventSaveSession   = "save_session_cookie"
)

// ErrWeakSessionSecret indicates the cookie signing secret is too short.
var ErrWeakSessionSecret = fmt.Errorf("session: secret must be at least %d bytes", minimumSecretLength)

// ManagerConfig configures the session cookie.
type ManagerConfig struct {
	Secret       string
	SecureCookie bool
	MaxAge       time.Duration
}

// Flash carries one pending notice across a redirect: an inline modal error
// with the submitted values, a blocking alert, or a plain status notice.
type Flash struct {
	Modal  string            `json:"modal,omitempty"`
	Error  string            `json:"error,omitempty"`
	Alert  string            `json:"alert,omitempty"`
	Notice string            `json:"notice,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// Manager issues session ids and carries flashes in a signed cookie.
// The bearer token itself never leaves the server.
type Manager struct {
	store  *sessions.CookieStore
	logger *zap.Logger
}

// NewManager builds a Manager backed by a gorilla cookie store.
func NewManager(config ManagerConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	secret := strings.TrimSpace(config.Secret)
	if len(secret) < minimumSecretLength {
		return nil, ErrWeakSessionSecret
	}
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCookieMaxAge
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     cookiePath,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{store: store, logger: logger}, nil
}

// SessionID returns the id bound to the request, issuing a new one when absent.
func (manager *Manager) SessionID(responseWriter http.ResponseWriter, request *http.Request) (string, error) {
	cookieSession := manager.load(request)
	if sessionID, ok := cookieSession.Values[sessionValueKeyID].(string); ok && sessionID != "" {
		return sessionID, nil
	}

	sessionID := storage.NewID()
	cookieSession.Values[sessionValueKeyID] = sessionID
	if saveErr := cookieSession.Save(request, responseWriter); saveErr != nil {
		return "", fmt.Errorf("session: save cookie: %w", saveErr)
	}
	return sessionID, nil
}

// AddFlash queues a notice for the next page render.
func (manager *Manager) AddFlash(responseWriter http.ResponseWriter, request *http.Request, flash Flash) error {
	encodedFlash, encodeErr := json.Marshal(flash)
	if encodeErr != nil {
		return fmt.Errorf("session: encode flash: %w", encodeErr)
	}
	cookieSession := manager.load(request)
	cookieSession.AddFlash(string(encodedFlash), sessionFlashKeyNotice)
	if saveErr := cookieSession.Save(request, responseWriter); saveErr != nil {
		return fmt.Errorf("session: save cookie: %w", saveErr)
	}
	return nil
}

// TakeFlash pops the most recent queued notice.
func (manager *Manager) TakeFlash(responseWriter http.ResponseWriter, request *http.Request) (Flash, bool) {
	cookieSession := manager.load(request)
	queuedFlashes := cookieSession.Flashes(sessionFlashKeyNotice)
	if len(queuedFlashes) == 0 {
		return Flash{}, false
	}
	if saveErr := cookieSession.Save(request, responseWriter); saveErr != nil {
		manager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
	}

	encodedFlash, ok := queuedFlashes[len(queuedFlashes)-1].(string)
	if !ok {
		return Flash{}, false
	}
	var flash Flash
	if decodeErr := json.Unmarshal([]byte(encodedFlash), &flash); decodeErr != nil {
		manager.logger.Warn(logEventDecodeFlash, zap.Error(decodeErr))
		return Flash{}, false
	}
	return flash, true
}

// load returns the cookie session; an undecodable cookie yields a fresh session.
func (manager *Manager) load(request *http.Request) *sessions.Session {
	cookieSession, loadErr := manager.store.Get(request, CookieName)
	if loadErr != nil {
		manager.logger.Debug(logEventDecodeSession, zap.Error(loadErr))
	}
	if cookieSession == nil {
		cookieSession = sessions.NewSession(manager.store, CookieName)
		cookieSession.Options = manager.store.Options
	}
	return cookieSession
}
