package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

// SnapshotKey is the key under which the last rendered dashboard payload is kept.
const SnapshotKey = "dashboard_snapshot"

// SnapshotCache keeps the dashboard payload a browser session was last shown.
// It lets a page that only reports a failed submission be redrawn without
// asking the backend again.
type SnapshotCache struct {
	values ValueStore
}

// NewSnapshotCache wraps a ValueStore.
func NewSnapshotCache(values ValueStore) *SnapshotCache {
	return &SnapshotCache{values: values}
}

// Remember replaces the cached payload of the session.
func (cache *SnapshotCache) Remember(ctx context.Context, sessionID string, snapshot model.Snapshot) error {
	encodedSnapshot, encodeErr := json.Marshal(snapshot)
	if encodeErr != nil {
		return fmt.Errorf("session: encode snapshot: %w", encodeErr)
	}
	return cache.values.Put(ctx, sessionID, SnapshotKey, string(encodedSnapshot))
}

// Recall returns the cached payload, if any.
func (cache *SnapshotCache) Recall(ctx context.Context, sessionID string) (model.Snapshot, bool, error) {
	encodedSnapshot, found, getErr := cache.values.Get(ctx, sessionID, SnapshotKey)
	if getErr != nil || !found {
		return model.Snapshot{}, false, getErr
	}
	var snapshot model.Snapshot
	if decodeErr := json.Unmarshal([]byte(encodedSnapshot), &snapshot); decodeErr != nil {
		return model.Snapshot{}, false, fmt.Errorf("session: decode snapshot: %w", decodeErr)
	}
	return snapshot, true, nil
}
