// Package registry persists the local nexbadge state: tracked mods, badge
// style preferences, credentials, the automation target repository, and the
// cache-key record mirror. The registry is an explicit value loaded at
// process start and saved after a command mutates it; nothing reads it
// through ambient globals.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/nexbadge/nexbadge/internal/badge"
)

// Error variables for registry operations
var (
	// ErrNotFound is returned when no registry file exists yet
	ErrNotFound = errors.New("registry file not found")
	// ErrDuplicate is returned when adding a mod that is already tracked
	ErrDuplicate = errors.New("mod is already tracked")
	// ErrNotTracked is returned when removing a mod that is not tracked
	ErrNotTracked = errors.New("mod is not tracked")
)

// Environment variable names. The same names are used for the automation
// mirror so a scheduled run can reconstruct its state from the job
// environment.
const (
	EnvNexusKey     = "NEXUS_KEY"
	EnvGitToken     = "GIT_TOKEN"
	EnvGistID       = "GIST_ID"
	EnvTrackedMods  = "TRACKED_MODS"
	EnvCacheKey     = "CACHE_KEY"
	EnvRegistryPath = "NEXBADGE_REGISTRY"
)

// ItemKey identifies one tracked mod. Identity is an exact match on both
// fields; domain names are deliberately not case-folded.
type ItemKey struct {
	Domain string `toml:"domain" json:"domain"`
	ID     uint64 `toml:"id" json:"id"`
}

// String returns the document key for this item, e.g. "eldenring:4825".
func (k ItemKey) String() string {
	return fmt.Sprintf("%s:%d", k.Domain, k.ID)
}

// PageURL returns the public mod page this item's badge links to.
func (k ItemKey) PageURL() string {
	return fmt.Sprintf("https://www.nexusmods.com/%s/mods/%d", k.Domain, k.ID)
}

// Item is a tracked mod plus its last-known download counts. Counts are
// zero until the first successful sync fetches them.
type Item struct {
	Domain string `toml:"domain" json:"domain"`
	ID     uint64 `toml:"id" json:"id"`
	Name   string `toml:"name,omitempty" json:"-"`
	Total  uint64 `toml:"total,omitempty" json:"-"`
	Unique uint64 `toml:"unique,omitempty" json:"-"`
}

// Key returns the item's identity.
func (i Item) Key() ItemKey {
	return ItemKey{Domain: i.Domain, ID: i.ID}
}

// Registry is the persisted local state. Removed holds tombstones for items
// removed since the last successful sync; the reconciliation engine consumes
// them to delete exactly those keys from the remote document and clears them
// once the document write succeeds.
type Registry struct {
	GitToken string `toml:"git_token,omitempty"`
	NexusKey string `toml:"nexus_key,omitempty"`
	GistID   string `toml:"gist_id,omitempty"`
	Owner    string `toml:"owner,omitempty"`
	Repo     string `toml:"repo,omitempty"`
	CacheKey string `toml:"cache_key,omitempty"`

	Style badge.Preferences `toml:"style"`

	Items   []Item    `toml:"items"`
	Removed []ItemKey `toml:"removed,omitempty"`

	path string
}

// New returns an empty registry bound to path.
func New(path string) *Registry {
	return &Registry{
		Style: badge.DefaultPreferences(),
		path:  path,
	}
}

// DefaultPath returns the registry location under the XDG config directory.
func DefaultPath() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "nexbadge", "registry.toml"), nil
}

// Path returns the active registry path, honoring the NEXBADGE_REGISTRY
// override.
func Path() (string, error) {
	if p := os.Getenv(EnvRegistryPath); p != "" {
		return p, nil
	}
	return DefaultPath()
}

// Load reads the registry from the active path. Returns ErrNotFound when no
// file exists yet.
func Load() (*Registry, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadOrInit loads the registry, or returns a fresh one bound to the active
// path when none exists. Used by the mutating commands so the first `add`
// works without a setup step.
func LoadOrInit() (*Registry, error) {
	reg, err := Load()
	if errors.Is(err, ErrNotFound) {
		path, perr := Path()
		if perr != nil {
			return nil, perr
		}
		return New(path), nil
	}
	return reg, err
}

// LoadFrom reads the registry from a specific file path.
func LoadFrom(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	var reg Registry
	if err := toml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	reg.path = path
	reg.applyStyleDefaults()
	return &reg, nil
}

// applyStyleDefaults fills unset style fields so an older or hand-edited
// registry file stays loadable.
func (r *Registry) applyStyleDefaults() {
	def := badge.DefaultPreferences()
	if r.Style.Label == "" {
		r.Style.Label = def.Label
	}
	if r.Style.Count == "" {
		r.Style.Count = def.Count
	}
	if r.Style.Style == "" {
		r.Style.Style = def.Style
	}
	if r.Style.Format == "" {
		r.Style.Format = def.Format
	}
}

// Save writes the registry atomically (write-temp-then-rename) so a crash
// mid-save never leaves a half-written file behind.
func (r *Registry) Save() error {
	if r.path == "" {
		path, err := Path()
		if err != nil {
			return err
		}
		r.path = path
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := toml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry file: %w", err)
	}
	return nil
}

// FilePath returns the path this registry was loaded from or will save to.
func (r *Registry) FilePath() string {
	return r.path
}

// AddItem starts tracking a mod. A tombstone for the same identity is
// discarded so a remove-then-add within one sync window does not delete the
// re-added entry.
func (r *Registry) AddItem(domain string, id uint64) error {
	key := ItemKey{Domain: domain, ID: id}
	if r.HasItem(key) {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}

	r.Items = append(r.Items, Item{Domain: domain, ID: id})
	r.Removed = deleteKey(r.Removed, key)
	return nil
}

// RemoveItem stops tracking a mod and records a removal tombstone for the
// next sync to consume.
func (r *Registry) RemoveItem(domain string, id uint64) error {
	key := ItemKey{Domain: domain, ID: id}
	for i, item := range r.Items {
		if item.Key() == key {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			if !containsKey(r.Removed, key) {
				r.Removed = append(r.Removed, key)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotTracked, key)
}

// HasItem reports whether the identity is currently tracked.
func (r *Registry) HasItem(key ItemKey) bool {
	for _, item := range r.Items {
		if item.Key() == key {
			return true
		}
	}
	return false
}

// SetCounts records the last-known counts for a tracked item.
func (r *Registry) SetCounts(key ItemKey, name string, total, unique uint64) {
	for i := range r.Items {
		if r.Items[i].Key() == key {
			r.Items[i].Name = name
			r.Items[i].Total = total
			r.Items[i].Unique = unique
			return
		}
	}
}

// ClearRemoved drops all removal tombstones. Called only after the merged
// document write succeeded.
func (r *Registry) ClearRemoved() {
	r.Removed = nil
}

// Keys returns the identities of all tracked items in registry order.
func (r *Registry) Keys() []ItemKey {
	keys := make([]ItemKey, len(r.Items))
	for i, item := range r.Items {
		keys[i] = item.Key()
	}
	return keys
}

// AutomationConfigured reports whether an automation target repository has
// been set.
func (r *Registry) AutomationConfigured() bool {
	return r.Owner != "" && r.Repo != ""
}

// ResolvedNexusKey returns the NexusMods API key, with the environment
// taking precedence over the stored value.
func (r *Registry) ResolvedNexusKey() string {
	if v := os.Getenv(EnvNexusKey); v != "" {
		return v
	}
	return r.NexusKey
}

// ResolvedGitToken returns the GitHub token, with the environment taking
// precedence over the stored value.
func (r *Registry) ResolvedGitToken() string {
	if v := os.Getenv(EnvGitToken); v != "" {
		return v
	}
	return r.GitToken
}

// EncodeItems returns the compact JSON encoding of the tracked identities,
// the form mirrored into the automation host's variable store.
func (r *Registry) EncodeItems() (string, error) {
	data, err := json.Marshal(r.Keys())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeItems parses the mirrored identity list back into items.
func DecodeItems(encoded string) ([]Item, error) {
	var keys []ItemKey
	if err := json.Unmarshal([]byte(encoded), &keys); err != nil {
		return nil, fmt.Errorf("failed to parse tracked mod list: %w", err)
	}
	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{Domain: k.Domain, ID: k.ID}
	}
	return items, nil
}

// FromEnvironment reconstructs a registry from the scheduled-job
// environment: the mirrored item list and gist id plus the credential
// secrets. Style preferences are irrelevant on the remote side (no badge
// artifact is written there) and stay at their defaults.
func FromEnvironment() (*Registry, error) {
	encoded := os.Getenv(EnvTrackedMods)
	if encoded == "" {
		return nil, fmt.Errorf("%s is not set", EnvTrackedMods)
	}
	items, err := DecodeItems(encoded)
	if err != nil {
		return nil, err
	}

	return &Registry{
		GistID:   os.Getenv(EnvGistID),
		NexusKey: os.Getenv(EnvNexusKey),
		GitToken: os.Getenv(EnvGitToken),
		CacheKey: os.Getenv(EnvCacheKey),
		Style:    badge.DefaultPreferences(),
		Items:    items,
	}, nil
}

func containsKey(keys []ItemKey, key ItemKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func deleteKey(keys []ItemKey, key ItemKey) []ItemKey {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
