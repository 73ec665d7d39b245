package stanza

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Basic(t *testing.T) {
	text := "[search1]\nsearch = index=main | stats count\ndisabled = 0\n\n[search2]\nsearch = index=web | top host"

	doc := Parse(text)
	require.Len(t, doc.Stanzas(), 2)
	assert.Equal(t, 0, doc.Skipped)

	s, ok := doc.Lookup("search1")
	require.True(t, ok)
	assert.Equal(t, []string{"search", "disabled"}, s.Keys())
	assert.Equal(t, "index=main | stats count", s.Values("search")[0].Text)
	assert.Equal(t, "0", s.Values("disabled")[0].Text)
}

func TestParse_ContinuationStaysInValue(t *testing.T) {
	text := "[alert]\nsearch = index=main \\\n| stats count by host \\\n| sort -count\naction.email = 1"

	doc := Parse(text)
	s, ok := doc.Lookup("alert")
	require.True(t, ok)

	// The backslash-newline pairs belong to the value; the split must not
	// occur at an escaped newline.
	assert.Equal(t, "index=main \\\n| stats count by host \\\n| sort -count", s.Values("search")[0].Text)
	assert.Equal(t, "1", s.Values("action.email")[0].Text)
}

func TestParse_MalformedBlockSkipped(t *testing.T) {
	text := "[good]\nkey = value\n\nnot a stanza header\nkey = other\n\n[also_good]\nk = v"

	doc := Parse(text)
	assert.Equal(t, 1, doc.Skipped)
	require.Len(t, doc.Stanzas(), 2)

	_, ok := doc.Lookup("good")
	assert.True(t, ok)
	_, ok = doc.Lookup("also_good")
	assert.True(t, ok)
}

func TestParse_ValueContainingSeparator(t *testing.T) {
	text := "[s]\nsearch = index=main | eval msg = \"a = b\""

	doc := Parse(text)
	s, _ := doc.Lookup("s")
	// Split happens at the first " = " only.
	assert.Equal(t, "index=main | eval msg = \"a = b\"", s.Values("search")[0].Text)
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]string{
		"single stanza":   "[search1]\nsearch = index=main | stats count",
		"two stanzas":     "[a]\nk = v\n\n[b]\nk2 = v2\nk3 = v3",
		"continuation":    "[a]\nsearch = index=main \\\n| stats count",
		"empty value":     "[a]\nk = ",
		"dotted keys":     "[alert one]\naction.email.to = ops@example.com\nalert.track = 1",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			doc := Parse(text)
			out := Serialize(doc)
			assert.Equal(t, text, out)

			// parse(serialize(parse(x))) == parse(x) for collision-free input.
			again := Parse(out)
			if diff := cmp.Diff(docAsMap(doc), docAsMap(again)); diff != "" {
				t.Errorf("round-trip mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestSerialize_CollisionBlock(t *testing.T) {
	doc := NewDocument()
	s := doc.ensure("search1")
	s.append("search", Value{Text: "index=main | stats count"})
	s.append("search", Value{Text: "index=main | stats count by host", Label: "file2"})

	want := "[search1]\n" +
		"# COLLISION\n" +
		"===========\n" +
		"search = index=main | stats count\n" +
		"search = index=main | stats count by host #file2\n" +
		"==========="
	assert.Equal(t, want, Serialize(doc))
}

// docAsMap flattens a document for comparison, ignoring internal layout.
func docAsMap(d *Document) map[string]map[string][]Value {
	out := make(map[string]map[string][]Value)
	for _, s := range d.Stanzas() {
		kv := make(map[string][]Value)
		for _, k := range s.Keys() {
			kv[k] = s.Values(k)
		}
		out[s.Name] = kv
	}
	return out
}
