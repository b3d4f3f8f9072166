// Package ghactions implements the automation config client: typed
// operations over one repository's Actions secrets, variables, workflow
// state, and cache entries. Every method is a single idempotent HTTP call;
// callers own any multi-call consistency.
package ghactions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nexbadge/nexbadge/internal/remote"
)

const defaultBaseURL = "https://api.github.com"

// WorkflowFileName is the scheduled-job workflow this tool manages.
const WorkflowFileName = "nexbadge.yml"

// Variable and secret names mirrored into the automation host.
const (
	VarTrackedMods = "TRACKED_MODS"
	VarGistID      = "GIST_ID"
	VarCacheKey    = "CACHE_KEY"
	SecretNexusKey = "NEXUS_KEY"
	SecretGitToken = "GIT_TOKEN"
)

// ErrAbsent is returned by GetVariable when the variable does not exist.
var ErrAbsent = errors.New("variable is not set")

// Client talks to one owner/repository pair's Actions configuration.
type Client struct {
	BaseURL string
	Owner   string
	Repo    string
	Token   string
	HTTP    *remote.Client

	// publicKey caches the repository encryption key across SetSecret calls
	// within one run.
	publicKey *publicKey
}

// NewClient creates an automation config client.
func NewClient(owner, repo, token string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		Owner:   owner,
		Repo:    repo,
		Token:   token,
		HTTP:    remote.NewClient(),
	}
}

func (c *Client) repoURL(format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.BaseURL, c.Owner, c.Repo) + fmt.Sprintf(format, args...)
}

type publicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

func (c *Client) fetchPublicKey(ctx context.Context) (*publicKey, error) {
	if c.publicKey != nil {
		return c.publicKey, nil
	}

	req, err := remote.NewGitHubRequest(ctx, http.MethodGet, c.repoURL("/actions/secrets/public-key"), c.Token, nil)
	if err != nil {
		return nil, err
	}

	var key publicKey
	if err := c.HTTP.DoJSON(req, &key, http.StatusOK); err != nil {
		return nil, fmt.Errorf("failed to fetch repository public key: %w", err)
	}
	c.publicKey = &key
	return &key, nil
}

// SetSecret creates or updates a repository secret. The value is sealed
// against the repository public key before transmission.
func (c *Client) SetSecret(ctx context.Context, name, value string) error {
	key, err := c.fetchPublicKey(ctx)
	if err != nil {
		return err
	}

	encrypted, err := sealSecret(value, key.Key)
	if err != nil {
		return err
	}

	body := map[string]string{
		"encrypted_value": encrypted,
		"key_id":          key.KeyID,
	}
	req, err := remote.NewGitHubRequest(ctx, http.MethodPut, c.repoURL("/actions/secrets/%s", name), c.Token, body)
	if err != nil {
		return err
	}

	// 201 on create, 204 on update.
	return c.HTTP.DoJSON(req, nil, http.StatusCreated, http.StatusNoContent)
}

// SetVariable creates or updates a repository variable. The update is tried
// first; a missing variable falls through to creation.
func (c *Client) SetVariable(ctx context.Context, name, value string) error {
	body := map[string]string{"name": name, "value": value}

	req, err := remote.NewGitHubRequest(ctx, http.MethodPatch, c.repoURL("/actions/variables/%s", name), c.Token, body)
	if err != nil {
		return err
	}
	err = c.HTTP.DoJSON(req, nil, http.StatusNoContent)
	if err == nil {
		return nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return err
	}

	req, err = remote.NewGitHubRequest(ctx, http.MethodPost, c.repoURL("/actions/variables"), c.Token, body)
	if err != nil {
		return err
	}
	return c.HTTP.DoJSON(req, nil, http.StatusCreated)
}

// GetVariable reads a repository variable. Returns ErrAbsent when it does
// not exist.
func (c *Client) GetVariable(ctx context.Context, name string) (string, error) {
	req, err := remote.NewGitHubRequest(ctx, http.MethodGet, c.repoURL("/actions/variables/%s", name), c.Token, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Value string `json:"value"`
	}
	err = c.HTTP.DoJSON(req, &out, http.StatusOK)
	if errors.Is(err, remote.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrAbsent, name)
	}
	if err != nil {
		return "", err
	}
	return out.Value, nil
}

// DeleteVariable removes a repository variable.
func (c *Client) DeleteVariable(ctx context.Context, name string) error {
	req, err := remote.NewGitHubRequest(ctx, http.MethodDelete, c.repoURL("/actions/variables/%s", name), c.Token, nil)
	if err != nil {
		return err
	}
	return c.HTTP.DoJSON(req, nil, http.StatusNoContent)
}

// SetWorkflowEnabled toggles the scheduled workflow on or off.
func (c *Client) SetWorkflowEnabled(ctx context.Context, enabled bool) error {
	state := "disable"
	if enabled {
		state = "enable"
	}

	req, err := remote.NewGitHubRequest(ctx, http.MethodPut, c.repoURL("/actions/workflows/%s/%s", WorkflowFileName, state), c.Token, nil)
	if err != nil {
		return err
	}
	return c.HTTP.DoJSON(req, nil, http.StatusNoContent)
}

// DeleteCacheEntry removes all Actions cache entries stored under key.
func (c *Client) DeleteCacheEntry(ctx context.Context, key string) error {
	u := c.repoURL("/actions/caches") + "?key=" + url.QueryEscape(key)
	req, err := remote.NewGitHubRequest(ctx, http.MethodDelete, u, c.Token, nil)
	if err != nil {
		return err
	}
	return c.HTTP.DoJSON(req, nil, http.StatusOK)
}
