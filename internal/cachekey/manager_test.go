package cachekey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockRecords is a RecordStore backed by function fields.
type mockRecords struct {
	GetFunc func(ctx context.Context) (string, error)
	SetFunc func(ctx context.Context, key string) error
}

func (m *mockRecords) Get(ctx context.Context) (string, error) { return m.GetFunc(ctx) }
func (m *mockRecords) Set(ctx context.Context, key string) error {
	return m.SetFunc(ctx, key)
}

// mockArtifacts is an ArtifactStore backed by function fields.
type mockArtifacts struct {
	StoreFunc  func(ctx context.Context, key, version string) error
	DeleteFunc func(ctx context.Context, key string) error
}

func (m *mockArtifacts) Store(ctx context.Context, key, version string) error {
	return m.StoreFunc(ctx, key, version)
}
func (m *mockArtifacts) Delete(ctx context.Context, key string) error {
	return m.DeleteFunc(ctx, key)
}

// mockVersions is a VersionSource with fixed answers.
type mockVersions struct {
	current   string
	latest    string
	latestErr error
}

func (m *mockVersions) Current() string { return m.current }
func (m *mockVersions) Latest(ctx context.Context) (string, error) {
	return m.latest, m.latestErr
}

func fixedKey(version string) string {
	return keyPrefix + version + "-12345"
}

func newTestManager(record string, versions VersionSource) (*Manager, *struct {
	stored, deleted []string
	recorded        []string
}) {
	calls := &struct {
		stored, deleted []string
		recorded        []string
	}{}

	current := record
	m := NewManager(
		&mockRecords{
			GetFunc: func(ctx context.Context) (string, error) {
				if current == "" {
					return "", ErrNoRecord
				}
				return current, nil
			},
			SetFunc: func(ctx context.Context, key string) error {
				current = key
				calls.recorded = append(calls.recorded, key)
				return nil
			},
		},
		&mockArtifacts{
			StoreFunc: func(ctx context.Context, key, version string) error {
				calls.stored = append(calls.stored, key)
				return nil
			},
			DeleteFunc: func(ctx context.Context, key string) error {
				calls.deleted = append(calls.deleted, key)
				return nil
			},
		},
		versions,
	)
	return m, calls
}

func TestRotateFreshKeyIsNoAction(t *testing.T) {
	m, calls := newTestManager(fixedKey("2.0.0"), &mockVersions{current: "2.0.0", latest: "2.0.0"})

	decision, err := m.RotateIfStale(context.Background())
	if err != nil {
		t.Fatalf("RotateIfStale: %v", err)
	}
	if decision.Action != NoAction {
		t.Errorf("Action = %v, want NoAction", decision.Action)
	}
	if len(calls.stored)+len(calls.deleted)+len(calls.recorded) != 0 {
		t.Errorf("a fresh key must not trigger any work: %+v", calls)
	}
}

func TestRotateStaleKey(t *testing.T) {
	oldKey := fixedKey("1.9.0")
	m, calls := newTestManager(oldKey, &mockVersions{current: "1.9.0", latest: "2.0.0"})

	decision, err := m.RotateIfStale(context.Background())
	if err != nil {
		t.Fatalf("RotateIfStale: %v", err)
	}

	if decision.Action != Rotated {
		t.Fatalf("Action = %v, want Rotated", decision.Action)
	}
	if !decision.OldKeyDeleted {
		t.Error("old key should have been deleted")
	}
	if KeyVersion(decision.NewKey) != "2.0.0" {
		t.Errorf("new key %q should embed the latest version", decision.NewKey)
	}
	if decision.NewKey == oldKey {
		t.Error("new key must differ from the old one")
	}

	if len(calls.stored) != 1 || calls.stored[0] != decision.NewKey {
		t.Errorf("stored = %v", calls.stored)
	}
	if len(calls.recorded) != 1 || calls.recorded[0] != decision.NewKey {
		t.Errorf("recorded = %v", calls.recorded)
	}
	if len(calls.deleted) != 1 || calls.deleted[0] != oldKey {
		t.Errorf("deleted = %v", calls.deleted)
	}
}

func TestRotateBootstrapSkipsDeletion(t *testing.T) {
	m, calls := newTestManager("", &mockVersions{current: "2.0.0", latest: "2.0.0"})

	decision, err := m.RotateIfStale(context.Background())
	if err != nil {
		t.Fatalf("RotateIfStale: %v", err)
	}
	if decision.Action != Rotated {
		t.Fatalf("Action = %v, want Rotated", decision.Action)
	}
	if decision.OldKeyDeleted {
		t.Error("there is no old key to delete on bootstrap")
	}
	if len(calls.deleted) != 0 {
		t.Errorf("deleted = %v", calls.deleted)
	}
}

func TestRotateVersionCheckFailureRefreshes(t *testing.T) {
	m, calls := newTestManager(fixedKey("2.0.0"), &mockVersions{
		current:   "2.0.0",
		latestErr: errors.New("metadata unreachable"),
	})

	decision, err := m.RotateIfStale(context.Background())
	if err != nil {
		t.Fatalf("RotateIfStale: %v", err)
	}
	if decision.Action != Rotated {
		t.Error("an unverifiable key is treated as stale")
	}
	if KeyVersion(decision.NewKey) != "2.0.0" {
		t.Errorf("fallback key should embed the running version, got %q", decision.NewKey)
	}
	if len(calls.stored) != 1 {
		t.Errorf("stored = %v", calls.stored)
	}
}

func TestRotateStoreFailureAborts(t *testing.T) {
	var recorded bool
	m := NewManager(
		&mockRecords{
			GetFunc: func(ctx context.Context) (string, error) { return fixedKey("1.9.0"), nil },
			SetFunc: func(ctx context.Context, key string) error {
				recorded = true
				return nil
			},
		},
		&mockArtifacts{
			StoreFunc:  func(ctx context.Context, key, version string) error { return errors.New("download failed") },
			DeleteFunc: func(ctx context.Context, key string) error { return nil },
		},
		&mockVersions{current: "1.9.0", latest: "2.0.0"},
	)

	_, err := m.RotateIfStale(context.Background())
	if !errors.Is(err, ErrRotationAborted) {
		t.Fatalf("expected ErrRotationAborted, got %v", err)
	}
	if recorded {
		t.Error("the record must stay untouched when storing fails")
	}
}

func TestRotateRecordFailureAborts(t *testing.T) {
	var deleted bool
	m := NewManager(
		&mockRecords{
			GetFunc: func(ctx context.Context) (string, error) { return fixedKey("1.9.0"), nil },
			SetFunc: func(ctx context.Context, key string) error { return errors.New("variable api down") },
		},
		&mockArtifacts{
			StoreFunc:  func(ctx context.Context, key, version string) error { return nil },
			DeleteFunc: func(ctx context.Context, key string) error { deleted = true; return nil },
		},
		&mockVersions{current: "1.9.0", latest: "2.0.0"},
	)

	_, err := m.RotateIfStale(context.Background())
	if !errors.Is(err, ErrRotationAborted) {
		t.Fatalf("expected ErrRotationAborted, got %v", err)
	}
	if deleted {
		t.Error("the old artifact must survive an aborted rotation")
	}
}

func TestRotateDeleteFailureIsPartial(t *testing.T) {
	var recordedKey string
	m := NewManager(
		&mockRecords{
			GetFunc: func(ctx context.Context) (string, error) { return fixedKey("1.9.0"), nil },
			SetFunc: func(ctx context.Context, key string) error {
				recordedKey = key
				return nil
			},
		},
		&mockArtifacts{
			StoreFunc:  func(ctx context.Context, key, version string) error { return nil },
			DeleteFunc: func(ctx context.Context, key string) error { return errors.New("cache api down") },
		},
		&mockVersions{current: "1.9.0", latest: "2.0.0"},
	)

	decision, err := m.RotateIfStale(context.Background())
	if !errors.Is(err, ErrRotationPartial) {
		t.Fatalf("expected ErrRotationPartial, got %v", err)
	}
	if decision.Action != Rotated {
		t.Error("a partial rotation still rotated")
	}
	if decision.OldKeyDeleted {
		t.Error("OldKeyDeleted must be false on a partial rotation")
	}
	if recordedKey != decision.NewKey {
		t.Errorf("record = %q, decision key = %q", recordedKey, decision.NewKey)
	}
}

func TestMintKeyAvoidsCollision(t *testing.T) {
	m := NewManager(nil, nil, nil)
	frozen := time.Unix(0, 42)
	calls := 0
	m.now = func() time.Time {
		calls++
		if calls > 1 {
			return time.Unix(0, 43)
		}
		return frozen
	}

	old := keyPrefix + "2.0.0-42"
	key := m.mintKey("2.0.0", old)
	if key == old {
		t.Fatal("minted key collides with the old key")
	}
	if !strings.HasPrefix(key, keyPrefix+"2.0.0-") {
		t.Errorf("key = %q", key)
	}
}

func TestKeyVersion(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"nexbadge-2.0.0-12345", "2.0.0"},
		{"nexbadge-1.10.3-999999", "1.10.3"},
		{"nexbadge-", ""},
		{"something-else", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := KeyVersion(tt.key); got != tt.want {
			t.Errorf("KeyVersion(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestCurrentState(t *testing.T) {
	m, _ := newTestManager("", &mockVersions{})
	state, err := m.CurrentState(context.Background())
	if err != nil || state != NoCache {
		t.Fatalf("state = %v, err = %v", state, err)
	}

	m2, _ := newTestManager(fixedKey("2.0.0"), &mockVersions{})
	state, err = m2.CurrentState(context.Background())
	if err != nil || state != Cached {
		t.Fatalf("state = %v, err = %v", state, err)
	}
}
