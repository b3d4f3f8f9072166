package gist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nexbadge/nexbadge/internal/remote"
)

const (
	defaultBaseURL = "https://api.github.com"

	// FileName is the single file the document lives in inside the gist.
	FileName = "nexus_badges.json"

	description = "Private gist used as a JSON endpoint for badge download counters"

	rawSegment = "/raw/"
)

// ErrNoDocument is returned when the gist exists but does not contain the
// expected document file.
var ErrNoDocument = errors.New("gist does not contain the badge document file")

// Snapshot is one observed state of the remote document: its content, the
// head revision token, and the revision-independent raw URL badges point at.
type Snapshot struct {
	Document *Document
	Revision string
	RawURL   string
}

// Client reads and writes the remote document. It exposes the gist's head
// revision so the reconciliation engine can detect that it raced another
// writer; it performs no merging or retrying itself.
type Client struct {
	BaseURL string
	GistID  string
	Token   string
	HTTP    *remote.Client
}

// NewClient creates a document client for one gist.
func NewClient(gistID, token string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		GistID:  gistID,
		Token:   token,
		HTTP:    remote.NewClient(),
	}
}

type gistResponse struct {
	ID      string                 `json:"id"`
	Files   map[string]fileDetails `json:"files"`
	History []struct {
		Version string `json:"version"`
	} `json:"history"`
}

type fileDetails struct {
	RawURL    string `json:"raw_url"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

func (g *gistResponse) headRevision() string {
	if len(g.History) == 0 {
		return ""
	}
	return g.History[0].Version
}

// universalRawURL strips the revision suffix from a file's raw URL, leaving
// the form that always serves the latest revision.
func universalRawURL(rawURL string) string {
	i := strings.Index(rawURL, rawSegment)
	if i < 0 {
		return rawURL
	}
	return rawURL[:i+len(rawSegment)-1]
}

func (c *Client) gistURL() string {
	return fmt.Sprintf("%s/gists/%s", c.BaseURL, c.GistID)
}

func (c *Client) fetchResponse(ctx context.Context) (*gistResponse, error) {
	req, err := remote.NewGitHubRequest(ctx, http.MethodGet, c.gistURL(), c.Token, nil)
	if err != nil {
		return nil, err
	}

	var resp gistResponse
	if err := c.HTTP.DoJSON(req, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch reads the current document, its head revision, and its raw URL.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	resp, err := c.fetchResponse(ctx)
	if err != nil {
		return nil, err
	}

	fd, ok := resp.Files[FileName]
	if !ok {
		return nil, fmt.Errorf("%w: expected %s", ErrNoDocument, FileName)
	}

	content := fd.Content
	if fd.Truncated {
		content, err = c.fetchRaw(ctx, fd.RawURL)
		if err != nil {
			return nil, err
		}
	}

	doc, err := ParseDocument([]byte(content))
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Document: doc,
		Revision: resp.headRevision(),
		RawURL:   universalRawURL(fd.RawURL),
	}, nil
}

// fetchRaw downloads the full file content when the inline copy was truncated.
func (c *Client) fetchRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := remote.NewGitHubRequest(ctx, http.MethodGet, rawURL, c.Token, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req, http.StatusOK)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", remote.WrapTransport(err)
	}
	return string(data), nil
}

// Write replaces the document content, provided the head revision still
// matches expectedRevision. A moved head surfaces remote.ErrConflict so the
// caller can re-run its fetch-merge-write cycle; a missing revision on
// either side refuses the write outright, since the guard cannot run
// without one. Returns the new head revision.
func (c *Client) Write(ctx context.Context, doc *Document, expectedRevision string) (string, error) {
	if expectedRevision == "" {
		return "", fmt.Errorf("refusing to write without an expected document revision")
	}

	head, err := c.fetchResponse(ctx)
	if err != nil {
		return "", err
	}
	if head.headRevision() == "" {
		return "", fmt.Errorf("gist reports no head revision, cannot guard the write")
	}
	if head.headRevision() != expectedRevision {
		return "", fmt.Errorf("%w: document revision moved from %s to %s",
			remote.ErrConflict, expectedRevision, head.headRevision())
	}

	content, err := doc.Bytes()
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"files": map[string]any{
			FileName: map[string]string{"content": string(content)},
		},
	}
	req, err := remote.NewGitHubRequest(ctx, http.MethodPatch, c.gistURL(), c.Token, body)
	if err != nil {
		return "", err
	}

	var resp gistResponse
	if err := c.HTTP.DoJSON(req, &resp, http.StatusOK); err != nil {
		return "", err
	}
	return resp.headRevision(), nil
}

// Create creates the private gist holding the document and returns its id
// together with the initial snapshot.
func (c *Client) Create(ctx context.Context, doc *Document) (string, *Snapshot, error) {
	content, err := doc.Bytes()
	if err != nil {
		return "", nil, err
	}

	body := map[string]any{
		"description": description,
		"public":      false,
		"files": map[string]any{
			FileName: map[string]string{"content": string(content)},
		},
	}
	req, err := remote.NewGitHubRequest(ctx, http.MethodPost, c.BaseURL+"/gists", c.Token, body)
	if err != nil {
		return "", nil, err
	}

	var resp gistResponse
	if err := c.HTTP.DoJSON(req, &resp, http.StatusCreated); err != nil {
		return "", nil, err
	}

	fd, ok := resp.Files[FileName]
	if !ok {
		return "", nil, fmt.Errorf("%w: expected %s", ErrNoDocument, FileName)
	}

	c.GistID = resp.ID
	return resp.ID, &Snapshot{
		Document: doc,
		Revision: resp.headRevision(),
		RawURL:   universalRawURL(fd.RawURL),
	}, nil
}
