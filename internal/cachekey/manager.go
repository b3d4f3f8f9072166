// Package cachekey manages the scheduled job's binary cache key: a small
// state machine that rotates the cached release binary when the published
// version moves past the one the cache was built for. Rotation is two-phase
// so an interrupted run never leaves the record pointing at a missing
// artifact.
package cachekey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nexbadge/nexbadge/internal/common/logger"
)

const keyPrefix = "nexbadge-"

// Error variables for rotation operations
var (
	// ErrNoRecord is returned by a RecordStore when no key is recorded yet
	ErrNoRecord = errors.New("no cache key recorded")
	// ErrRotationAborted means rotation failed before the record changed;
	// the previous key, if any, is still fully valid
	ErrRotationAborted = errors.New("cache rotation aborted")
	// ErrRotationPartial means the record now names the new key but the old
	// artifact could not be deleted; the next run retries the cleanup
	ErrRotationPartial = errors.New("cache rotation incomplete")
)

// RecordStore persists which cache key is current.
type RecordStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, key string) error
}

// ArtifactStore stores and deletes the cached artifact itself.
type ArtifactStore interface {
	Store(ctx context.Context, key, version string) error
	Delete(ctx context.Context, key string) error
}

// VersionSource reports the running and the latest published version.
type VersionSource interface {
	Current() string
	Latest(ctx context.Context) (string, error)
}

// State is the observable cache lifecycle state.
type State int

const (
	// NoCache means no key has ever been recorded.
	NoCache State = iota
	// Cached means the record names a key whose artifact is assumed present.
	Cached
	// Rotating is the transient state between storing the new artifact and
	// finishing cleanup of the old one.
	Rotating
)

// Action says what RotateIfStale did.
type Action int

const (
	// NoAction means the recorded key is still fresh.
	NoAction Action = iota
	// Rotated means a new key was stored and recorded.
	Rotated
)

// Decision is the outcome of one RotateIfStale run.
type Decision struct {
	Action        Action
	NewKey        string
	OldKeyDeleted bool
}

// Manager drives the rotation state machine.
type Manager struct {
	Records   RecordStore
	Artifacts ArtifactStore
	Versions  VersionSource

	// now is replaceable for key-uniqueness tests.
	now func() time.Time
}

// NewManager creates a rotation manager.
func NewManager(records RecordStore, artifacts ArtifactStore, versions VersionSource) *Manager {
	return &Manager{
		Records:   records,
		Artifacts: artifacts,
		Versions:  versions,
		now:       time.Now,
	}
}

// CurrentState reports the observable lifecycle state. Rotating only ever
// exists inside a RotateIfStale call and is never observed from outside.
func (m *Manager) CurrentState(ctx context.Context) (State, error) {
	_, err := m.Records.Get(ctx)
	if errors.Is(err, ErrNoRecord) {
		return NoCache, nil
	}
	if err != nil {
		return NoCache, err
	}
	return Cached, nil
}

// RotateIfStale checks the recorded key against the latest published version
// and rotates when they disagree. When the version check itself fails the
// key is treated as stale and refreshed, trading one redundant download for
// never serving an outdated binary.
func (m *Manager) RotateIfStale(ctx context.Context) (Decision, error) {
	oldKey, err := m.Records.Get(ctx)
	if err != nil && !errors.Is(err, ErrNoRecord) {
		return Decision{}, fmt.Errorf("%w: %v", ErrRotationAborted, err)
	}

	target := m.Versions.Current()
	latest, err := m.Versions.Latest(ctx)
	if err != nil {
		logger.Warn("version check failed, refreshing cache anyway: %v", err)
	} else {
		target = latest
		if oldKey != "" && KeyVersion(oldKey) == latest {
			return Decision{Action: NoAction}, nil
		}
	}

	newKey := m.mintKey(target, oldKey)

	if err := m.storeNew(ctx, newKey, target); err != nil {
		return Decision{}, err
	}
	if err := m.updateRecord(ctx, newKey); err != nil {
		return Decision{}, err
	}

	decision := Decision{Action: Rotated, NewKey: newKey}
	if oldKey == "" {
		// Bootstrap: nothing to clean up.
		return decision, nil
	}

	if err := m.deleteOld(ctx, oldKey); err != nil {
		return decision, err
	}
	decision.OldKeyDeleted = true
	return decision, nil
}

// storeNew stores the artifact under the new key. Failure here leaves the
// record untouched.
func (m *Manager) storeNew(ctx context.Context, key, version string) error {
	if err := m.Artifacts.Store(ctx, key, version); err != nil {
		return fmt.Errorf("%w: failed to store new artifact: %v", ErrRotationAborted, err)
	}
	return nil
}

// updateRecord points the record at the new key. Failure here also leaves
// the record untouched; the orphaned new artifact is harmless and will be
// evicted by the host.
func (m *Manager) updateRecord(ctx context.Context, key string) error {
	if err := m.Records.Set(ctx, key); err != nil {
		return fmt.Errorf("%w: failed to update cache record: %v", ErrRotationAborted, err)
	}
	return nil
}

// deleteOld removes the superseded artifact. The record already names the
// new key, so a failure is reported as partial and retried implicitly the
// next time the version moves.
func (m *Manager) deleteOld(ctx context.Context, key string) error {
	if err := m.Artifacts.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: failed to delete old artifact %s: %v", ErrRotationPartial, key, err)
	}
	return nil
}

// mintKey builds a key embedding the version plus a timestamp component, and
// guarantees it differs from the key being replaced.
func (m *Manager) mintKey(version, oldKey string) string {
	for {
		key := fmt.Sprintf("%s%s-%d", keyPrefix, version, m.now().UnixNano())
		if key != oldKey {
			return key
		}
	}
}

// KeyVersion extracts the version a cache key was minted for. Returns ""
// for keys in an unrecognized shape, which callers treat as stale.
func KeyVersion(key string) string {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return ""
	}
	i := strings.LastIndex(rest, "-")
	if i <= 0 {
		return ""
	}
	return rest[:i]
}
