package gist

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseDocumentPreservesOrder(t *testing.T) {
	data := []byte(`{"zeta:1":{"total":5,"unique":3},"alpha:2":{"total":9,"unique":2},"misc":"kept"}`)

	doc, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	want := []string{"zeta:1", "alpha:2", "misc"}
	if !reflect.DeepEqual(doc.Keys(), want) {
		t.Fatalf("Keys = %v, want %v", doc.Keys(), want)
	}
}

func TestParseDocumentEmpty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte(""), []byte("  \n")} {
		doc, err := ParseDocument(data)
		if err != nil {
			t.Fatalf("ParseDocument(%q): %v", data, err)
		}
		if doc.Len() != 0 {
			t.Fatalf("expected empty document for %q", data)
		}
	}
}

func TestParseDocumentRejectsNonObject(t *testing.T) {
	if _, err := ParseDocument([]byte(`[1,2,3]`)); err == nil {
		t.Fatal("arrays are not valid documents")
	}
}

func TestForeignValuesSurviveByteForByte(t *testing.T) {
	foreign := json.RawMessage(`{"custom": [1, 2, {"deep": "value"}], "n": 1.50}`)

	doc := NewDocument()
	doc.Set("someone-elses-key", foreign)
	if err := doc.SetEntry("eldenring:4825", Entry{Total: 100, Unique: 80}); err != nil {
		t.Fatal(err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	reparsed, err := ParseDocument(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	raw, ok := reparsed.Get("someone-elses-key")
	if !ok {
		t.Fatal("foreign key lost")
	}

	var wantCompact, gotCompact bytes.Buffer
	if err := json.Compact(&wantCompact, foreign); err != nil {
		t.Fatal(err)
	}
	if err := json.Compact(&gotCompact, raw); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wantCompact.Bytes(), gotCompact.Bytes()) {
		t.Fatalf("foreign value changed: %s -> %s", wantCompact.Bytes(), gotCompact.Bytes())
	}
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	doc := NewDocument()
	if err := doc.SetEntry("eldenring:4825", Entry{Total: 1}); err != nil {
		t.Fatal(err)
	}

	before, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	doc.Delete("not-there")
	after, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("deleting an absent key must not change the document")
	}
}

func TestEntryRoundTrip(t *testing.T) {
	doc := NewDocument()
	in := Entry{
		Name:   "Elden Mod",
		URL:    "https://www.nexusmods.com/eldenring/mods/4825",
		Total:  100,
		Unique: 80,
	}
	if err := doc.SetEntry("eldenring:4825", in); err != nil {
		t.Fatal(err)
	}

	out, ok, err := doc.Entry("eldenring:4825")
	if err != nil || !ok {
		t.Fatalf("Entry: ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("Entry = %+v, want %+v", out, in)
	}

	if _, ok, _ := doc.Entry("missing"); ok {
		t.Fatal("missing entry reported present")
	}
}

func TestEntryCountsSerializeFormatted(t *testing.T) {
	doc := NewDocument()
	in := Entry{Total: 5_835_742_000_000, Unique: 10_110}
	if err := doc.SetEntry("eldenring:4825", in); err != nil {
		t.Fatal(err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	for _, want := range []string{`"total": "5.8e12"`, `"unique": "10.1k"`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("document missing %s:\n%s", want, out)
		}
	}
}

func TestDownloadCountUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    DownloadCount
		wantErr bool
	}{
		{`100`, 100, false},
		{`"100"`, 100, false},
		{`"10.1k"`, 10_100, false},
		{`"2.2M"`, 2_200_000, false},
		{`"3.63T"`, 3_630_000_000, false},
		{`"5.8e12"`, 5_800_000_000_000, false},
		{`"junk"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		var got DownloadCount
		err := json.Unmarshal([]byte(tt.in), &got)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Unmarshal(%s) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func genDocKey() gopter.Gen {
	return gen.RegexMatch(`^[a-z]{3,10}:[0-9]{1,6}$`)
}

func TestBytesDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("serialize-parse-serialize is a fixed point", prop.ForAll(
		func(key string, total, unique uint64) bool {
			doc := NewDocument()
			doc.Set("foreign", json.RawMessage(`{"keep":   true}`))
			if err := doc.SetEntry(key, Entry{Total: DownloadCount(total), Unique: DownloadCount(unique)}); err != nil {
				t.Logf("SetEntry: %v", err)
				return false
			}

			first, err := doc.Bytes()
			if err != nil {
				t.Logf("Bytes: %v", err)
				return false
			}
			reparsed, err := ParseDocument(first)
			if err != nil {
				t.Logf("ParseDocument: %v", err)
				return false
			}
			second, err := reparsed.Bytes()
			if err != nil {
				t.Logf("Bytes: %v", err)
				return false
			}
			return bytes.Equal(first, second)
		},
		genDocKey(),
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestCloneIsIndependent(t *testing.T) {
	doc := NewDocument()
	if err := doc.SetEntry("a:1", Entry{Total: 1}); err != nil {
		t.Fatal(err)
	}

	clone := doc.Clone()
	clone.Delete("a:1")
	if err := clone.SetEntry("b:2", Entry{Total: 2}); err != nil {
		t.Fatal(err)
	}

	if doc.Len() != 1 {
		t.Fatalf("original mutated: keys %v", doc.Keys())
	}
	if _, ok := doc.Get("a:1"); !ok {
		t.Fatal("original lost its key")
	}
}

func TestEqual(t *testing.T) {
	a := NewDocument()
	b := NewDocument()
	for _, d := range []*Document{a, b} {
		if err := d.SetEntry("x:1", Entry{Total: 3}); err != nil {
			t.Fatal(err)
		}
	}
	if !a.Equal(b) {
		t.Fatal("identical documents should be equal")
	}

	if err := b.SetEntry("x:1", Entry{Total: 4}); err != nil {
		t.Fatal(err)
	}
	if a.Equal(b) {
		t.Fatal("differing documents should not be equal")
	}
}
