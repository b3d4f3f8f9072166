// Package release reads published release metadata and downloads release
// binaries. The version self-check and the cache artifact store are its two
// consumers.
package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nexbadge/nexbadge/internal/remote"
)

const (
	// defaultMetadataURL serves the published version manifest. The file is
	// plain JSON so the check works without API credentials.
	defaultMetadataURL = "https://raw.githubusercontent.com/nexbadge/nexbadge/main/version.json"

	// defaultDownloadBase is the release asset download root.
	defaultDownloadBase = "https://github.com/nexbadge/nexbadge/releases/download"

	// AssetName is the binary asset the scheduled job caches.
	AssetName = "nexbadge-linux"
)

// Metadata is the published version manifest.
type Metadata struct {
	Latest  string `json:"latest"`
	Message string `json:"message"`
}

// Client reads release metadata and assets.
type Client struct {
	MetadataURL  string
	DownloadBase string
	HTTP         *remote.Client
}

// NewClient creates a release client with the default endpoints.
func NewClient() *Client {
	return &Client{
		MetadataURL:  defaultMetadataURL,
		DownloadBase: defaultDownloadBase,
		HTTP:         remote.NewClient(),
	}
}

// Latest fetches the published version manifest.
func (c *Client) Latest(ctx context.Context) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MetadataURL, nil)
	if err != nil {
		return Metadata{}, err
	}
	req.Header.Set("User-Agent", remote.UserAgent)

	var meta Metadata
	if err := c.HTTP.DoJSON(req, &meta, http.StatusOK); err != nil {
		return Metadata{}, fmt.Errorf("failed to fetch release metadata: %w", err)
	}
	if meta.Latest == "" {
		return Metadata{}, fmt.Errorf("release metadata has no latest version")
	}
	return meta, nil
}

// Download fetches the release binary for version into dir and returns the
// written path. The write is atomic so a failed download never leaves a
// half-written executable behind.
func (c *Client) Download(ctx context.Context, version, dir string) (string, error) {
	url := fmt.Sprintf("%s/v%s/%s", c.DownloadBase, strings.TrimPrefix(version, "v"), AssetName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", remote.UserAgent)

	resp, err := c.HTTP.Do(req, http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("failed to download release %s: %w", version, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, AssetName)
	tmp, err := os.CreateTemp(dir, AssetName+".tmp*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", remote.WrapTransport(err)
	}
	if err := tmp.Chmod(0755); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dest, nil
}

// NewerThan reports whether version a is strictly newer than b. Versions are
// dotted numeric strings with an optional "v" prefix; a malformed component
// falls back to a string comparison of the remainder.
func NewerThan(a, b string) bool {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")

	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := component(as, i), component(bs, i)
		an, aerr := strconv.ParseUint(av, 10, 64)
		bn, berr := strconv.ParseUint(bv, 10, 64)
		if aerr != nil || berr != nil {
			if av != bv {
				return av > bv
			}
			continue
		}
		if an != bn {
			return an > bn
		}
	}
	return false
}

func component(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}
