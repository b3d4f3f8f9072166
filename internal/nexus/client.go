// Package nexus fetches per-mod download counters from the NexusMods API.
package nexus

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nexbadge/nexbadge/internal/remote"
)

const defaultBaseURL = "https://api.nexusmods.com"

// Counts is the download data reported for one mod.
type Counts struct {
	Name   string
	Total  uint64
	Unique uint64
}

// Fetcher fetches download counts for one mod identity.
type Fetcher interface {
	Fetch(ctx context.Context, domain string, id uint64) (Counts, error)
}

// Client is the HTTP Fetcher backed by the NexusMods v1 API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *remote.Client
}

// NewClient creates a NexusMods API client.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		APIKey:  apiKey,
		HTTP:    remote.NewClient(),
	}
}

type modResponse struct {
	Name         string `json:"name"`
	ModDownloads uint64 `json:"mod_downloads"`
	ModUniqueDls uint64 `json:"mod_unique_downloads"`
}

// Fetch fetches the current download counters for one mod.
func (c *Client) Fetch(ctx context.Context, domain string, id uint64) (Counts, error) {
	url := fmt.Sprintf("%s/v1/games/%s/mods/%d.json", c.BaseURL, domain, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Counts{}, err
	}
	req.Header.Set("User-Agent", remote.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.APIKey)

	var resp modResponse
	if err := c.HTTP.DoJSON(req, &resp, http.StatusOK); err != nil {
		return Counts{}, fmt.Errorf("failed to fetch counts for %s:%d: %w", domain, id, err)
	}

	return Counts{
		Name:   resp.Name,
		Total:  resp.ModDownloads,
		Unique: resp.ModUniqueDls,
	}, nil
}
