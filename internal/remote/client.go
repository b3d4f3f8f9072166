package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the per-request deadline applied when no custom HTTP
// client is supplied. There is no user-configurable timeout; a request that
// outlives the deadline is reported as ErrTransient.
const DefaultTimeout = 30 * time.Second

// GitHubAPIVersion is the pinned REST API version sent with every GitHub request.
const GitHubAPIVersion = "2022-11-28"

// UserAgent identifies this tool to the remote APIs.
const UserAgent = "nexbadge"

// Client is a thin JSON-over-HTTP helper shared by the API clients. It does
// not retry: the only retried operation in the system is the document
// write's fetch-merge-write cycle, and that policy lives with its owner.
type Client struct {
	HTTPClient *http.Client
}

// NewClient creates a Client with the default timeout.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewGitHubRequest builds a request carrying the standard GitHub API headers.
func NewGitHubRequest(ctx context.Context, method, url, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", GitHubAPIVersion)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Do executes the request and checks the response status against wantStatus.
// On an unexpected status the body is drained and classified; on success the
// response is returned with its body open for the caller to decode.
func (c *Client) Do(req *http.Request, wantStatus ...int) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, WrapTransport(err)
	}

	for _, want := range wantStatus {
		if resp.StatusCode == want {
			return resp, nil
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return nil, ClassifyStatus(resp.StatusCode, body)
}

// DoJSON executes the request and decodes a JSON response body into out.
// Pass a nil out to discard the body.
func (c *Client) DoJSON(req *http.Request, out any, wantStatus ...int) error {
	resp, err := c.Do(req, wantStatus...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
