// Package reconcile implements the sync engine: it merges freshly fetched
// download counts into the remote document without disturbing keys it does
// not own, retries the whole fetch-merge-write cycle a bounded number of
// times when another writer races it, and pushes the automation mirror
// afterwards.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/gist"
	"github.com/nexbadge/nexbadge/internal/nexus"
	"github.com/nexbadge/nexbadge/internal/registry"
	"github.com/nexbadge/nexbadge/internal/remote"
)

// writeAttempts bounds how many times the fetch-merge-write cycle is rerun
// when the document head moves under us.
const writeAttempts = 3

// Error variables for sync operations
var (
	// ErrNotInitialized is returned when no gist id has been configured yet
	ErrNotInitialized = errors.New("no remote document configured, run init first")
	// ErrNoItems is returned when there is nothing to sync
	ErrNoItems = errors.New("no mods are tracked")
	// ErrSyncConflict is returned when every write attempt lost the race
	ErrSyncConflict = errors.New("remote document kept changing during sync")
)

// DocumentStore reads and writes the remote document. Write must fail with
// remote.ErrConflict when the head revision no longer matches.
type DocumentStore interface {
	Fetch(ctx context.Context) (*gist.Snapshot, error)
	Write(ctx context.Context, doc *gist.Document, expectedRevision string) (string, error)
}

// CountFetcher fetches download counts for one mod.
type CountFetcher interface {
	Fetch(ctx context.Context, domain string, id uint64) (nexus.Counts, error)
}

// VariableStore pushes the automation mirror variables.
type VariableStore interface {
	SetVariable(ctx context.Context, name, value string) error
}

// ItemFailure records one per-item fetch failure. Failures are collected so
// a single unreachable mod page never blocks the rest of the sync.
type ItemFailure struct {
	Key registry.ItemKey
	Err error
}

// SyncReport describes what one sync run did.
type SyncReport struct {
	Updated          []registry.Item
	Failed           []ItemFailure
	DocumentChanged  bool
	RawURL           string
	AutomationPushed bool
	AutomationErr    error
}

// Partial reports whether some items failed while others succeeded.
func (r *SyncReport) Partial() bool {
	return len(r.Failed) > 0
}

// Engine runs the merge-on-read sync cycle.
type Engine struct {
	Documents DocumentStore
	Counts    CountFetcher
	Variables VariableStore

	// Attempts overrides the write attempt bound; zero means the default.
	Attempts int
}

func (e *Engine) attempts() int {
	if e.Attempts > 0 {
		return e.Attempts
	}
	return writeAttempts
}

// Sync runs one reconcile cycle against reg. On success the registry's
// counts are updated and its removal tombstones cleared; persisting the
// registry and rendering the badge artifact are the caller's concern.
func (e *Engine) Sync(ctx context.Context, reg *registry.Registry) (*SyncReport, error) {
	if reg.GistID == "" {
		return nil, ErrNotInitialized
	}
	if len(reg.Items) == 0 && len(reg.Removed) == 0 {
		return nil, ErrNoItems
	}

	counts, failures := e.collectCounts(ctx, reg.Keys())
	report := &SyncReport{Failed: failures}

	err := withAttempts(e.attempts(), func(err error) bool {
		return errors.Is(err, remote.ErrConflict)
	}, func() error {
		snap, err := e.Documents.Fetch(ctx)
		if err != nil {
			return err
		}
		report.RawURL = snap.RawURL

		merged, err := merge(snap.Document, reg, counts)
		if err != nil {
			return err
		}

		if merged.Equal(snap.Document) {
			logger.Debug("document already up to date, skipping write")
			report.DocumentChanged = false
			return nil
		}

		if _, err := e.Documents.Write(ctx, merged, snap.Revision); err != nil {
			return err
		}
		report.DocumentChanged = true
		return nil
	})
	if err != nil {
		if errors.Is(err, remote.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrSyncConflict, err)
		}
		return nil, err
	}

	for _, item := range reg.Items {
		c, ok := counts[item.Key()]
		if !ok {
			continue
		}
		reg.SetCounts(item.Key(), c.Name, c.Total, c.Unique)
		report.Updated = append(report.Updated, registry.Item{
			Domain: item.Domain,
			ID:     item.ID,
			Name:   c.Name,
			Total:  c.Total,
			Unique: c.Unique,
		})
	}
	reg.ClearRemoved()

	e.pushMirror(ctx, reg, report)
	return report, nil
}

// collectCounts fans out one fetch per tracked item and collects results and
// failures. Failures are reported, never fatal.
func (e *Engine) collectCounts(ctx context.Context, keys []registry.ItemKey) (map[registry.ItemKey]nexus.Counts, []ItemFailure) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		counts   = make(map[registry.ItemKey]nexus.Counts, len(keys))
		failures []ItemFailure
	)

	for _, key := range keys {
		wg.Add(1)
		go func(key registry.ItemKey) {
			defer wg.Done()
			c, err := e.Counts.Fetch(ctx, key.Domain, key.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("failed to fetch counts for %s: %v", key, err)
				failures = append(failures, ItemFailure{Key: key, Err: err})
				return
			}
			counts[key] = c
		}(key)
	}
	wg.Wait()

	// Registry order keeps the report and its rendering deterministic.
	ordered := make([]ItemFailure, 0, len(failures))
	for _, key := range keys {
		for _, f := range failures {
			if f.Key == key {
				ordered = append(ordered, f)
			}
		}
	}
	return counts, ordered
}

// merge overlays the registry's view onto the fetched document: fresh counts
// are upserted, tombstoned keys deleted, and every other key left untouched
// byte-for-byte. Items whose count fetch failed keep their existing entry.
func merge(doc *gist.Document, reg *registry.Registry, counts map[registry.ItemKey]nexus.Counts) (*gist.Document, error) {
	merged := doc.Clone()

	for _, item := range reg.Items {
		c, ok := counts[item.Key()]
		if !ok {
			continue
		}
		entry := gist.Entry{
			Name:   c.Name,
			URL:    item.Key().PageURL(),
			Total:  gist.DownloadCount(c.Total),
			Unique: gist.DownloadCount(c.Unique),
			Label:  reg.Style.Label,
		}
		if err := merged.SetEntry(item.Key().String(), entry); err != nil {
			return nil, err
		}
	}

	for _, key := range reg.Removed {
		merged.Delete(key.String())
	}
	return merged, nil
}

// pushMirror updates the automation host's mirrored variables. A mirror
// failure is reported on the sync report, not treated as a sync failure;
// the document write already succeeded and is not rolled back.
func (e *Engine) pushMirror(ctx context.Context, reg *registry.Registry, report *SyncReport) {
	if e.Variables == nil || !reg.AutomationConfigured() {
		return
	}

	encoded, err := reg.EncodeItems()
	if err != nil {
		report.AutomationErr = err
		return
	}
	if err := e.Variables.SetVariable(ctx, ghactions.VarTrackedMods, encoded); err != nil {
		report.AutomationErr = fmt.Errorf("failed to mirror tracked mods: %w", err)
		return
	}
	if err := e.Variables.SetVariable(ctx, ghactions.VarGistID, reg.GistID); err != nil {
		report.AutomationErr = fmt.Errorf("failed to mirror gist id: %w", err)
		return
	}
	report.AutomationPushed = true
}
