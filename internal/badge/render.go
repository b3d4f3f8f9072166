package badge

import (
	"fmt"
	"io"
	"net/url"
	"strings"
)

const shieldsBase = "https://img.shields.io/badge/dynamic/json"

// Item is one rendered badge: the document key the badge queries, plus the
// display name and mod page link.
type Item struct {
	Key  string
	Name string
	Link string
}

// encode percent-encodes a string for use inside a shields.io query value.
// shields expects %20 rather than '+' for spaces.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// URL builds the shields.io dynamic-JSON badge URL for one document key.
// rawURL is the revision-independent raw URL of the remote document.
func URL(rawURL, key string, prefs Preferences) string {
	query := fmt.Sprintf("$['%s'].%s", key, prefs.Count.FieldName())

	var b strings.Builder
	b.WriteString(shieldsBase)
	b.WriteString("?url=")
	b.WriteString(encode(rawURL))
	b.WriteString("&query=")
	b.WriteString(encode(query))
	b.WriteString("&label=")
	b.WriteString(encode(prefs.Label))

	// flat is the shields default and is left implicit, like the other
	// optional fields.
	if prefs.Style != StyleFlat && prefs.Style != "" {
		b.WriteString("&style=")
		b.WriteString(string(prefs.Style))
	}
	if prefs.LabelColor != "" {
		b.WriteString("&labelColor=")
		b.WriteString(encode(prefs.LabelColor))
	}
	if prefs.Color != "" {
		b.WriteString("&color=")
		b.WriteString(encode(prefs.Color))
	}
	return b.String()
}

// Render writes one badge in the preferred format. Markdown carries the link
// as a wrapping anchor; the other formats embed it in the badge URL itself.
func Render(w io.Writer, rawURL string, item Item, prefs Preferences) error {
	alt := prefs.Label
	badgeURL := URL(rawURL, item.Key, prefs)
	if prefs.Format != FormatMarkdown && item.Link != "" {
		badgeURL += "&link=" + encode(item.Link)
	}

	var line string
	switch prefs.Format {
	case FormatMarkdown:
		if item.Link == "" {
			line = fmt.Sprintf("![%s](%s)", alt, badgeURL)
		} else {
			line = fmt.Sprintf("[![%s](%s)](%s)", alt, badgeURL, item.Link)
		}
	case FormatURL:
		line = badgeURL
	case FormatRst:
		line = fmt.Sprintf(".. image:: %s\n  :alt: %s", badgeURL, alt)
	case FormatAsciiDoc:
		line = fmt.Sprintf("image:%s[%s]", badgeURL, alt)
	case FormatHTML:
		line = fmt.Sprintf("<img alt=%q src=%q>", alt, badgeURL)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, prefs.Format)
	}

	_, err := fmt.Fprintf(w, "%s\n", line)
	return err
}

// WriteArtifact writes the badge file: one block per tracked item, each
// introduced by an HTML comment naming the mod so blocks stay identifiable
// after copy-paste.
func WriteArtifact(w io.Writer, rawURL string, items []Item, prefs Preferences) error {
	for i, item := range items {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		name := item.Name
		if name == "" {
			name = item.Key
		}
		if _, err := fmt.Fprintf(w, "<!-- %s -->\n", name); err != nil {
			return err
		}
		if err := Render(w, rawURL, item, prefs); err != nil {
			return err
		}
	}
	return nil
}
