package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// AccessTokenKey is the fixed key under which the bearer token is persisted.
const AccessTokenKey = "access_token"

// ErrEmptyToken indicates an attempt to persist a blank token.
var ErrEmptyToken = errors.New("session: empty access token")

// ValueStore persists string values per browser session.
type ValueStore interface {
	Get(ctx context.Context, sessionID string, name string) (string, bool, error)
	Put(ctx context.Context, sessionID string, name string, value string) error
	Delete(ctx context.Context, sessionID string, name string) error
	Touch(ctx context.Context, sessionID string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenStore supplies and clears the bearer token of a browser session.
// It tracks no expiry; only a 401 from the backend ends a token's life early.
// A token is purged once its session has been idle for longer than the TTL.
type TokenStore struct {
	values ValueStore
	now    func() time.Time
}

// NewTokenStore wraps a ValueStore.
func NewTokenStore(values ValueStore) *TokenStore {
	return &TokenStore{values: values, now: time.Now}
}

// Token returns the stored token, if any.
func (store *TokenStore) Token(ctx context.Context, sessionID string) (string, bool, error) {
	token, found, getErr := store.values.Get(ctx, sessionID, AccessTokenKey)
	if getErr != nil || !found {
		return "", false, getErr
	}
	if strings.TrimSpace(token) == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Save stores the token issued at login. A payload cached under an earlier
// token is dropped.
func (store *TokenStore) Save(ctx context.Context, sessionID string, token string) error {
	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return ErrEmptyToken
	}
	if putErr := store.values.Put(ctx, sessionID, AccessTokenKey, trimmedToken); putErr != nil {
		return putErr
	}
	return store.values.Delete(ctx, sessionID, SnapshotKey)
}

// Clear erases the token, and the payload cached with it, on logout or after an
// unauthorized response.
func (store *TokenStore) Clear(ctx context.Context, sessionID string) error {
	if deleteErr := store.values.Delete(ctx, sessionID, AccessTokenKey); deleteErr != nil {
		return deleteErr
	}
	return store.values.Delete(ctx, sessionID, SnapshotKey)
}

// Touch records activity on the session so PurgeStale spares it.
func (store *TokenStore) Touch(ctx context.Context, sessionID string) error {
	return store.values.Touch(ctx, sessionID)
}

// PurgeStale removes tokens whose session has been idle for longer than ttl.
func (store *TokenStore) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	return store.values.PurgeOlderThan(ctx, store.now().Add(-ttl))
}
