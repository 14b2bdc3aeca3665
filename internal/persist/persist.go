// Package persist holds state that must outlive a session: per-player
// combat preferences and the periodic snapshots used for crash recovery.
// All stores are driven from outside the tick loop; the simulation never
// blocks on them.
package persist

import (
	"context"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
)

// ErrNotFound is returned when a player or session has nothing stored.
var ErrNotFound = errors.New("persist: not found")

// PlayerPrefs are the combat preferences that survive disconnects.
type PlayerPrefs struct {
	AutoRetaliate bool        `json:"autoRetaliate" msgpack:"autoRetaliate"`
	Style         stats.Style `json:"style" msgpack:"style"`
}

// PreferenceStore loads and saves per-player preferences.
type PreferenceStore interface {
	LoadPrefs(ctx context.Context, playerID string) (PlayerPrefs, error)
	SavePrefs(ctx context.Context, playerID string, prefs PlayerPrefs) error
}

// SnapshotStore retains restore points per session. Only the newest
// snapshot matters for recovery; implementations may discard older ones.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, session string, snap journal.Snapshot) error
	LatestSnapshot(ctx context.Context, session string) (journal.Snapshot, error)
}

// EncodeSnapshot serializes a snapshot to the stored wire form.
func EncodeSnapshot(snap journal.Snapshot) ([]byte, error) {
	return msgpack.Marshal(snap)
}

// DecodeSnapshot parses a stored snapshot blob.
func DecodeSnapshot(data []byte) (journal.Snapshot, error) {
	var snap journal.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return journal.Snapshot{}, err
	}
	return snap, nil
}
