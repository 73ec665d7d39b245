// Package report accumulates the human-review output of a run: every site
// the engines refused to rewrite automatically, grouped by file or endpoint.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one manual-review finding. Duplicates are intentional: each one
// reflects a distinct site of ambiguity in the same target.
type Entry struct {
	Identifier string
	Reason     string
}

// Review collects manual-review entries for the lifetime of a run and
// flushes them once at the end. Grouping preserves first-seen target order.
type Review struct {
	RunID string

	order   []string
	entries map[string][]Entry
}

// NewReview returns an empty review accumulator with a fresh run ID.
func NewReview() *Review {
	return &Review{
		RunID:   uuid.NewString(),
		entries: make(map[string][]Entry),
	}
}

// Add records a finding against a file path or endpoint identifier.
func (r *Review) Add(target, identifier, reason string) {
	if _, ok := r.entries[target]; !ok {
		r.order = append(r.order, target)
	}
	r.entries[target] = append(r.entries[target], Entry{Identifier: identifier, Reason: reason})
}

// Len returns the total number of findings.
func (r *Review) Len() int {
	n := 0
	for _, es := range r.entries {
		n += len(es)
	}
	return n
}

// Empty reports whether the run produced no findings.
func (r *Review) Empty() bool {
	return len(r.order) == 0
}

// Targets returns the targets with findings, in first-seen order.
func (r *Review) Targets() []string {
	return r.order
}

// Entries returns the findings for one target.
func (r *Review) Entries(target string) []Entry {
	return r.entries[target]
}

// Flush appends the accumulated findings to the review log, one delimited
// block per target with one line per (identifier, reason) pair. A no-finding
// run writes nothing.
func (r *Review) Flush(path string) error {
	if r.Empty() {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open review log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "RUN: %s %s\n\n", r.RunID, time.Now().UTC().Format(time.RFC3339))
	for _, target := range r.order {
		b.WriteString("==========\n")
		fmt.Fprintf(&b, "FILE/ENDPOINT: %s\n", target)
		b.WriteString("==========\n")
		for _, e := range r.entries[target] {
			fmt.Fprintf(&b, "%s: %s\n", e.Identifier, e.Reason)
		}
		b.WriteString("\n")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write review log: %w", err)
	}
	return nil
}
