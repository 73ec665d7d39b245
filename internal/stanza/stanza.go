// Package stanza implements the keyed configuration grammar used by per-user
// knowledge object files: a bracketed stanza header followed by "key = value"
// lines, with stanzas separated by blank lines. A value may span physical
// lines by ending a line with a backslash; the backslash and newline stay
// inside the value so serialization is byte-faithful.
package stanza

import (
	"strings"
)

// Value is a single recorded value for a key. Label identifies the source
// document that contributed it during a merge ("file2", "file3", ...); the
// default value from the first contributing source carries no label.
type Value struct {
	Text  string
	Label string
}

// Stanza is one named block of key/value pairs. Key order is preserved.
type Stanza struct {
	Name string
	keys []string
	vals map[string][]Value
}

func newStanza(name string) *Stanza {
	return &Stanza{Name: name, vals: make(map[string][]Value)}
}

// Keys returns the stanza's keys in insertion order.
func (s *Stanza) Keys() []string {
	return s.keys
}

// Values returns every recorded value for key, the default first.
func (s *Stanza) Values(key string) []Value {
	return s.vals[key]
}

// Set records key with a single value, replacing any previous value for that
// key. This is the parser path: within one source document a key holds
// exactly one value and a repeated key overwrites the earlier one.
func (s *Stanza) Set(key, text string) {
	if _, ok := s.vals[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.vals[key] = []Value{{Text: text}}
}

func (s *Stanza) append(key string, v Value) {
	if _, ok := s.vals[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.vals[key] = append(s.vals[key], v)
}

// Document is an ordered collection of stanzas. Stanza names are unique
// within a document; Lookup is by name, Stanzas preserves source order.
type Document struct {
	stanzas []*Stanza
	byName  map[string]*Stanza

	// Skipped counts malformed blocks dropped during parsing. A non-zero
	// count means the document is partial but still usable.
	Skipped int
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{byName: make(map[string]*Stanza)}
}

// Stanzas returns the stanzas in source order.
func (d *Document) Stanzas() []*Stanza {
	return d.stanzas
}

// Lookup returns the stanza with the given name.
func (d *Document) Lookup(name string) (*Stanza, bool) {
	s, ok := d.byName[name]
	return s, ok
}

func (d *Document) ensure(name string) *Stanza {
	if s, ok := d.byName[name]; ok {
		return s
	}
	s := newStanza(name)
	d.stanzas = append(d.stanzas, s)
	d.byName[name] = s
	return s
}

// Parse converts configuration text into a Document. Blocks whose first line
// is not a bracketed stanza header are skipped and counted in Skipped; the
// rest of the document still parses.
func Parse(text string) *Document {
	doc := NewDocument()
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := logicalLines(block)
		if len(lines) == 0 {
			continue
		}
		header := strings.TrimSpace(lines[0])
		if !strings.HasPrefix(header, "[") || !strings.HasSuffix(header, "]") {
			doc.Skipped++
			continue
		}
		s := doc.ensure(header[1 : len(header)-1])
		for _, line := range lines[1:] {
			if line == "" {
				continue
			}
			key, val, ok := strings.Cut(line, " = ")
			if !ok {
				continue
			}
			s.Set(key, val)
		}
	}
	return doc
}

// logicalLines splits a block on newlines that are not escaped by a trailing
// backslash. The backslash-newline pair of a continued line is preserved
// inside the returned line.
func logicalLines(block string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(block); i++ {
		if block[i] != '\n' {
			continue
		}
		if i > start && block[i-1] == '\\' {
			continue
		}
		lines = append(lines, block[start:i])
		start = i + 1
	}
	if start < len(block) {
		lines = append(lines, block[start:])
	}
	return lines
}

// Serialize renders a document back to configuration text. Non-colliding keys
// round-trip exactly; a key holding more than one value is rendered as a
// delimited collision block with each alternative attributed to its source.
func Serialize(d *Document) string {
	var b strings.Builder
	for _, s := range d.stanzas {
		b.WriteString("[")
		b.WriteString(s.Name)
		b.WriteString("]\n")
		for _, k := range s.keys {
			vals := s.vals[k]
			if len(vals) == 1 {
				b.WriteString(k)
				b.WriteString(" = ")
				b.WriteString(vals[0].Text)
				b.WriteString("\n")
				continue
			}
			b.WriteString("# COLLISION\n===========\n")
			for _, v := range vals {
				b.WriteString(k)
				b.WriteString(" = ")
				b.WriteString(v.Text)
				if v.Label != "" {
					b.WriteString(" #")
					b.WriteString(v.Label)
				}
				b.WriteString("\n")
			}
			b.WriteString("===========\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
