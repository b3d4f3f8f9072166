package cachekey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nexbadge/nexbadge/internal/common/version"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/release"
	"github.com/nexbadge/nexbadge/internal/remote"
)

// VariableRecord stores the current cache key in the automation host's
// CACHE_KEY repository variable.
type VariableRecord struct {
	Actions *ghactions.Client
}

// Get reads the recorded key. An absent variable maps to ErrNoRecord.
func (r *VariableRecord) Get(ctx context.Context) (string, error) {
	key, err := r.Actions.GetVariable(ctx, ghactions.VarCacheKey)
	if errors.Is(err, ghactions.ErrAbsent) {
		return "", ErrNoRecord
	}
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNoRecord
	}
	return key, nil
}

// Set records key as current.
func (r *VariableRecord) Set(ctx context.Context, key string) error {
	return r.Actions.SetVariable(ctx, ghactions.VarCacheKey, key)
}

// ActionsArtifactStore materializes the cached artifact for the scheduled
// job: the release binary is downloaded into a per-key directory which the
// job's cache step saves under that key. Deleting a key removes both the
// host-side cache entry and the local directory.
type ActionsArtifactStore struct {
	Release *release.Client
	Actions *ghactions.Client

	// Dir is the root the per-key artifact directories live under.
	Dir string
}

func (s *ActionsArtifactStore) keyDir(key string) string {
	return filepath.Join(s.Dir, key)
}

// Store downloads the versioned binary into the key's directory and
// confirms it is present before reporting success.
func (s *ActionsArtifactStore) Store(ctx context.Context, key, ver string) error {
	path, err := s.Release.Download(ctx, ver, s.keyDir(key))
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("downloaded artifact missing: %w", err)
	}
	return nil
}

// Delete removes the host-side cache entry and the local directory. A cache
// entry that is already gone is not an error; bootstrap and crashed previous
// rotations both leave that shape behind.
func (s *ActionsArtifactStore) Delete(ctx context.Context, key string) error {
	if err := s.Actions.DeleteCacheEntry(ctx, key); err != nil && !errors.Is(err, remote.ErrNotFound) {
		return err
	}
	return os.RemoveAll(s.keyDir(key))
}

// ReleaseVersionSource reads the running version from build metadata and the
// latest from the published release manifest.
type ReleaseVersionSource struct {
	Release *release.Client
}

// Current returns the running binary's version.
func (v *ReleaseVersionSource) Current() string {
	return version.Short()
}

// Latest returns the latest published version.
func (v *ReleaseVersionSource) Latest(ctx context.Context) (string, error) {
	meta, err := v.Release.Latest(ctx)
	if err != nil {
		return "", err
	}
	return meta.Latest, nil
}
