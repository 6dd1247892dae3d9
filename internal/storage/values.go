package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	columnSessionID = "session_id"
	columnName      = "name"
	columnValue     = "value"
	columnUpdatedAt = "updated_at"

	errorMessageMissingSessionID = "storage: missing session id"
	errorMessageMissingValueName = "storage: missing value name"
	errorMessageLoadValue        = "storage: load value"
	errorMessageSaveValue        = "storage: save value"
	errorMessageDeleteValue      = "storage: delete value"
	errorMessagePurgeValues      = "storage: purge values"
	errorMessageTouchValues      = "storage: touch values"
)

var (
	// ErrMissingSessionID indicates a value operation was attempted without a session id.
	ErrMissingSessionID = errors.New(errorMessageMissingSessionID)
	// ErrMissingValueName indicates a value operation was attempted without a key.
	ErrMissingValueName = errors.New(errorMessageMissingValueName)
)

// ValueStore persists string values per browser session.
type ValueStore struct {
	database *gorm.DB
}

// NewValueStore constructs a ValueStore on top of a migrated database.
func NewValueStore(database *gorm.DB) *ValueStore {
	return &ValueStore{database: database}
}

// Get returns the stored value and whether it exists.
func (store *ValueStore) Get(ctx context.Context, sessionID string, name string) (string, bool, error) {
	normalizedSessionID, normalizedName, keyErr := normalizeValueKey(sessionID, name)
	if keyErr != nil {
		return "", false, keyErr
	}

	var record model.SessionValue
	queryErr := store.database.WithContext(ctx).
		Where(columnSessionID+" = ? AND "+columnName+" = ?", normalizedSessionID, normalizedName).
		Take(&record).Error
	if errors.Is(queryErr, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if queryErr != nil {
		return "", false, fmt.Errorf("%s: %w", errorMessageLoadValue, queryErr)
	}
	return record.Value, true, nil
}

// Put inserts or replaces a value.
func (store *ValueStore) Put(ctx context.Context, sessionID string, name string, value string) error {
	normalizedSessionID, normalizedName, keyErr := normalizeValueKey(sessionID, name)
	if keyErr != nil {
		return keyErr
	}

	record := model.SessionValue{
		SessionID: normalizedSessionID,
		Name:      normalizedName,
		Value:     value,
	}
	upsertErr := store.database.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: columnSessionID}, {Name: columnName}},
			DoUpdates: clause.AssignmentColumns([]string{columnValue, columnUpdatedAt}),
		}).
		Create(&record).Error
	if upsertErr != nil {
		return fmt.Errorf("%s: %w", errorMessageSaveValue, upsertErr)
	}
	return nil
}

// Delete removes a value. Deleting a missing value is not an error.
func (store *ValueStore) Delete(ctx context.Context, sessionID string, name string) error {
	normalizedSessionID, normalizedName, keyErr := normalizeValueKey(sessionID, name)
	if keyErr != nil {
		return keyErr
	}

	deleteErr := store.database.WithContext(ctx).
		Where(columnSessionID+" = ? AND "+columnName+" = ?", normalizedSessionID, normalizedName).
		Delete(&model.SessionValue{}).Error
	if deleteErr != nil {
		return fmt.Errorf("%s: %w", errorMessageDeleteValue, deleteErr)
	}
	return nil
}

// Touch marks every value of a session as written now, keeping an active
// session clear of PurgeOlderThan.
func (store *ValueStore) Touch(ctx context.Context, sessionID string) error {
	normalizedSessionID := strings.TrimSpace(sessionID)
	if normalizedSessionID == "" {
		return ErrMissingSessionID
	}

	touchErr := store.database.WithContext(ctx).
		Model(&model.SessionValue{}).
		Where(columnSessionID+" = ?", normalizedSessionID).
		UpdateColumn(columnUpdatedAt, store.database.NowFunc()).Error
	if touchErr != nil {
		return fmt.Errorf("%s: %w", errorMessageTouchValues, touchErr)
	}
	return nil
}

// PurgeOlderThan deletes every value last written before cutoff and reports how many were removed.
func (store *ValueStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := store.database.WithContext(ctx).
		Where(columnUpdatedAt+" < ?", cutoff).
		Delete(&model.SessionValue{})
	if result.Error != nil {
		return 0, fmt.Errorf("%s: %w", errorMessagePurgeValues, result.Error)
	}
	return result.RowsAffected, nil
}

func normalizeValueKey(sessionID string, name string) (string, string, error) {
	normalizedSessionID := strings.TrimSpace(sessionID)
	if normalizedSessionID == "" {
		return "", "", ErrMissingSessionID
	}
	normalizedName := strings.TrimSpace(name)
	if normalizedName == "" {
		return "", "", ErrMissingValueName
	}
	return normalizedSessionID, normalizedName, nil
}
