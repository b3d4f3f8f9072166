// Package gist implements the remote document client: typed read and write
// primitives over the JSON blob hosted as a private gist. The client never
// merges; that responsibility belongs to the reconciliation engine.
package gist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nexbadge/nexbadge/internal/badge"
)

// DownloadCount is a download counter that serializes as the human-formatted
// string the badges display ("10.1k", "2.2M"). Formatting truncates, so
// parsing a formatted value back is approximate; exact counts live in the
// registry, the document exists to be queried by shields.
type DownloadCount uint64

// MarshalJSON writes the formatted display string.
func (c DownloadCount) MarshalJSON() ([]byte, error) {
	return json.Marshal(badge.FormatCount(uint64(c)))
}

// UnmarshalJSON accepts both a plain number and a formatted display string.
func (c *DownloadCount) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = DownloadCount(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("malformed download count %s", data)
	}
	v, err := parseFormattedCount(s)
	if err != nil {
		return err
	}
	*c = DownloadCount(v)
	return nil
}

func parseFormattedCount(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}

	// In the display scheme 'T' covers everything from billions up to the
	// scientific-notation cutoff.
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "k"):
		mult = 1_000
	case strings.HasSuffix(s, "M"):
		mult = 1_000_000
	case strings.HasSuffix(s, "T"):
		mult = 1_000_000_000
	}

	num := s
	if mult > 1 {
		num = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed download count %q", s)
	}
	return uint64(math.Round(f * float64(mult))), nil
}

// Entry is the per-item value stored in the remote document. Foreign keys
// the tool does not own are carried as raw bytes and never pass through
// this type.
type Entry struct {
	Name   string        `json:"name,omitempty"`
	URL    string        `json:"url,omitempty"`
	Total  DownloadCount `json:"total"`
	Unique DownloadCount `json:"unique"`
	Label  string        `json:"label,omitempty"`
}

// Document is the remote JSON object. Key order and the raw bytes of values
// this tool does not own are preserved across a read-modify-write cycle, so
// a merge can leave unrelated keys untouched byte-for-byte.
type Document struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[string]json.RawMessage)}
}

// ParseDocument decodes a JSON object while preserving key order.
func ParseDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document contains a non-string key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse document value %q: %w", key, err)
		}
		doc.Set(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// Set inserts or replaces a raw value, keeping first-insertion order.
func (d *Document) Set(key string, raw json.RawMessage) {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = raw
}

// SetEntry upserts a typed item entry.
func (d *Document) SetEntry(key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	d.Set(key, raw)
	return nil
}

// Get returns the raw value for a key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	raw, ok := d.values[key]
	return raw, ok
}

// Entry decodes the value for a key into a typed entry.
func (d *Document) Entry(key string) (Entry, bool, error) {
	raw, ok := d.values[key]
	if !ok {
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, true, fmt.Errorf("malformed entry %q: %w", key, err)
	}
	return e, true, nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (d *Document) Delete(key string) {
	if _, exists := d.values[key]; !exists {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns all keys in document order.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.keys)
}

// Clone returns an independent copy.
func (d *Document) Clone() *Document {
	out := NewDocument()
	for _, k := range d.keys {
		out.Set(k, append(json.RawMessage(nil), d.values[k]...))
	}
	return out
}

// Bytes serializes the document with stable two-space indentation. Values
// are compacted first so the same logical content always yields identical
// bytes, which is what makes the no-change sync a true no-op.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteString(": ")

		var compact bytes.Buffer
		if err := json.Compact(&compact, d.values[k]); err != nil {
			return nil, fmt.Errorf("malformed value %q: %w", k, err)
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, compact.Bytes(), "  ", "  "); err != nil {
			return nil, err
		}
		buf.Write(indented.Bytes())
	}
	if len(d.keys) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Equal reports whether two documents serialize to identical bytes.
func (d *Document) Equal(other *Document) bool {
	a, err := d.Bytes()
	if err != nil {
		return false
	}
	b, err := other.Bytes()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
