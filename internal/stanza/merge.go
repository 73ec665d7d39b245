package stanza

import "fmt"

// Collision records a key that ended a merge with more than one distinct
// value. Values holds every alternative in the order recorded, the unlabeled
// default first. A Collision is never mutated after the merge returns.
type Collision struct {
	Stanza string
	Key    string
	Values []Value
}

// Merge combines documents key by key, in input order. The first value
// recorded for a (stanza, key) becomes the unlabeled default; a later
// document contributing a distinct value for the same key appends it labeled
// with that document's ordinal ("file2" for the second document, and so on).
// A value identical to one already recorded is dropped silently. Merge order
// therefore decides which value is the default: callers must preserve strict
// input ordering.
func Merge(docs []*Document) (*Document, []Collision) {
	merged := NewDocument()
	for i, doc := range docs {
		label := fmt.Sprintf("file%d", i+1)
		for _, src := range doc.Stanzas() {
			dst := merged.ensure(src.Name)
			for _, key := range src.Keys() {
				for _, v := range src.Values(key) {
					existing := dst.vals[key]
					if len(existing) == 0 {
						dst.append(key, Value{Text: v.Text})
						continue
					}
					if hasText(existing, v.Text) {
						continue
					}
					dst.append(key, Value{Text: v.Text, Label: label})
				}
			}
		}
		merged.Skipped += doc.Skipped
	}

	var collisions []Collision
	for _, s := range merged.stanzas {
		for _, key := range s.keys {
			if vals := s.vals[key]; len(vals) > 1 {
				collisions = append(collisions, Collision{Stanza: s.Name, Key: key, Values: vals})
			}
		}
	}
	return merged, collisions
}

func hasText(vals []Value, text string) bool {
	for _, v := range vals {
		if v.Text == text {
			return true
		}
	}
	return false
}
