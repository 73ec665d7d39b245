package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"komigrate/internal/stanza"
)

// CollisionReportName and RenameReportName are written next to the output
// tree so operators can review them before loading the merged content.
const (
	CollisionReportName = "collisions.txt"
	RenameReportName    = "renamed_files.txt"
)

// fileCollisions groups stanza collisions by the output file they landed in,
// preserving encounter order.
type fileCollisions struct {
	order  []string
	byFile map[string][]stanza.Collision
}

func newFileCollisions() *fileCollisions {
	return &fileCollisions{byFile: make(map[string][]stanza.Collision)}
}

func (c *fileCollisions) add(file string, col stanza.Collision) {
	if _, ok := c.byFile[file]; !ok {
		c.order = append(c.order, file)
	}
	c.byFile[file] = append(c.byFile[file], col)
}

func (c *fileCollisions) empty() bool { return len(c.order) == 0 }

func (c *fileCollisions) render() string {
	var b strings.Builder
	for _, file := range c.order {
		fmt.Fprintf(&b, "==========\nFILE: %s\n==========\n", file)
		for _, col := range c.byFile[file] {
			var vals []string
			for _, v := range col.Values {
				if v.Label == "" {
					vals = append(vals, v.Text)
				} else {
					vals = append(vals, v.Text+" #"+v.Label)
				}
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", col.Stanza, col.Key, strings.Join(vals, " | "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renameLog groups origin-suffixed copies by user.
type renameLog struct {
	order  []string
	byUser map[string][]string
}

func newRenameLog() *renameLog {
	return &renameLog{byUser: make(map[string][]string)}
}

func (r *renameLog) add(user, from, to string) {
	if _, ok := r.byUser[user]; !ok {
		r.order = append(r.order, user)
	}
	r.byUser[user] = append(r.byUser[user], fmt.Sprintf("%s -> %s", from, to))
}

func (r *renameLog) empty() bool { return len(r.order) == 0 }

func (r *renameLog) render() string {
	var b strings.Builder
	for _, user := range r.order {
		fmt.Fprintf(&b, "==========\nUSER: %s\n==========\n", user)
		for _, line := range r.byUser[user] {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// writeReports persists the collision and rename reports beside the output
// tree. Empty reports are not written.
func (m *Merger) writeReports() error {
	if !m.collided.empty() {
		p := filepath.Join(m.outDir, CollisionReportName)
		if err := os.WriteFile(p, []byte(m.collided.render()), 0o644); err != nil {
			return fmt.Errorf("writing collision report: %w", err)
		}
	}
	if !m.renamed.empty() {
		p := filepath.Join(m.outDir, RenameReportName)
		if err := os.WriteFile(p, []byte(m.renamed.render()), 0o644); err != nil {
			return fmt.Errorf("writing rename report: %w", err)
		}
	}
	return nil
}
