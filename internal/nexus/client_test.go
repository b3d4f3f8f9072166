package nexus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexbadge/nexbadge/internal/remote"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/games/eldenring/mods/4825.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "test-key" {
			t.Errorf("apikey = %q", got)
		}
		fmt.Fprint(w, `{"name":"Elden Mod","mod_downloads":100,"mod_unique_downloads":80,"summary":"ignored"}`)
	}))
	defer srv.Close()

	client := NewClient("test-key")
	client.BaseURL = srv.URL

	counts, err := client.Fetch(context.Background(), "eldenring", 4825)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if counts.Name != "Elden Mod" || counts.Total != 100 || counts.Unique != 80 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, remote.ErrUnauthorized},
		{http.StatusNotFound, remote.ErrNotFound},
		{http.StatusTooManyRequests, remote.ErrTransient},
		{http.StatusInternalServerError, remote.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient("test-key")
			client.BaseURL = srv.URL

			_, err := client.Fetch(context.Background(), "eldenring", 4825)
			if !errors.Is(err, tt.want) {
				t.Fatalf("status %d: got %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}
