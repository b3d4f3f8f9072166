// Package badge renders shields.io dynamic-JSON badge artifacts from tracked
// download counts. Everything in this package is a pure function of its
// inputs; no network or filesystem access happens here.
package badge

import (
	"errors"
	"fmt"
	"strings"
)

// Error variables for preference validation
var (
	// ErrInvalidStyle is returned when a badge style is not recognized
	ErrInvalidStyle = errors.New("invalid badge style")
	// ErrInvalidFormat is returned when an output format is not recognized
	ErrInvalidFormat = errors.New("invalid badge format")
	// ErrInvalidCount is returned when a count source is not recognized
	ErrInvalidCount = errors.New("invalid count source: must be 'total' or 'unique'")
	// ErrInvalidColor is returned when a color is not a 6-digit hex value
	ErrInvalidColor = errors.New("color must be 6 hex digits")
)

// Style is a shields.io badge style.
type Style string

const (
	StyleFlat        Style = "flat"
	StyleFlatSquare  Style = "flat-square"
	StylePlastic     Style = "plastic"
	StyleForTheBadge Style = "for-the-badge"
	StyleSocial      Style = "social"
)

// ParseStyle parses a style name, accepting common casing and separator
// variants (flatSquare, flat_square, Flat-Square, ...).
func ParseStyle(s string) (Style, error) {
	switch normalize(s) {
	case "flat":
		return StyleFlat, nil
	case "flatsquare":
		return StyleFlatSquare, nil
	case "plastic":
		return StylePlastic, nil
	case "forthebadge":
		return StyleForTheBadge, nil
	case "social":
		return StyleSocial, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
}

// Format is the text format a badge is emitted in.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatURL      Format = "url"
	FormatRst      Format = "rst"
	FormatAsciiDoc Format = "asciiDoc"
	FormatHTML     Format = "html"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch normalize(s) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "url":
		return FormatURL, nil
	case "rst":
		return FormatRst, nil
	case "asciidoc":
		return FormatAsciiDoc, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// Count selects which download counter the badge displays.
type Count string

const (
	CountTotal  Count = "total"
	CountUnique Count = "unique"
)

// ParseCount parses a count source name.
func ParseCount(s string) (Count, error) {
	switch normalize(s) {
	case "total":
		return CountTotal, nil
	case "unique":
		return CountUnique, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCount, s)
}

// FieldName returns the document field the badge query selects.
func (c Count) FieldName() string {
	if c == CountUnique {
		return "unique"
	}
	return "total"
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// Preferences holds the operator's badge style configuration. It is embedded
// in the registry file and round-trips through TOML.
type Preferences struct {
	Label      string `toml:"label"`
	Count      Count  `toml:"count"`
	Style      Style  `toml:"style"`
	Format     Format `toml:"format"`
	LabelColor string `toml:"label_color,omitempty"`
	Color      string `toml:"color,omitempty"`
}

// DefaultPreferences returns the out-of-the-box badge configuration.
func DefaultPreferences() Preferences {
	return Preferences{
		Label:  "Nexus Downloads",
		Count:  CountTotal,
		Style:  StyleFlat,
		Format: FormatMarkdown,
	}
}

// Validate checks that every preference field holds a known value.
func (p Preferences) Validate() error {
	if _, err := ParseStyle(string(p.Style)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(p.Format)); err != nil {
		return err
	}
	if _, err := ParseCount(string(p.Count)); err != nil {
		return err
	}
	for _, c := range []string{p.LabelColor, p.Color} {
		if _, err := NormalizeColor(c); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeColor validates a hex color and returns it in "#rrggbb" form.
// Empty input and "default" mean "use the shields.io default" and normalize
// to the empty string.
func NormalizeColor(s string) (string, error) {
	if s == "" || strings.EqualFold(s, "default") {
		return "", nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	for _, c := range hex {
		if !isHexDigit(c) {
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}
	return "#" + strings.ToLower(hex), nil
}

func isHexDigit(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// Summary returns a human-readable rendering of the preferences for the
// style command's read-out.
func (p Preferences) Summary() string {
	var b strings.Builder
	b.WriteString("Style preferences:\n")
	fmt.Fprintf(&b, "- Label: %s\n", p.Label)
	fmt.Fprintf(&b, "- Count: %s\n", p.Count)
	fmt.Fprintf(&b, "- Style: %s\n", p.Style)
	fmt.Fprintf(&b, "- Format: %s\n", p.Format)
	fmt.Fprintf(&b, "- Label color: %s\n", orDefault(p.LabelColor))
	fmt.Fprintf(&b, "- Color: %s\n", orDefault(p.Color))
	return b.String()
}

func orDefault(s string) string {
	if s == "" {
		return "default"
	}
	return s
}
