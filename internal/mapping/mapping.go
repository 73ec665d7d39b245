// Package mapping loads the rename tables consumed by the rewrite engine:
// the identifier map (old index or sourcetype to its replacements) and the
// optional user identity map used during merges.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Field names the configuration field an identifier map applies to.
type Field string

const (
	FieldIndex      Field = "index"
	FieldSourcetype Field = "sourcetype"
)

// RefMap maps an old identifier to its ordered replacement set. A single
// replacement is a safe one-to-one rewrite; more than one requires
// role-dependent handling.
type RefMap struct {
	Field Field

	order []string
	refs  map[string][]string
}

// LoadRefMap reads an identifier map from CSV: first column the old
// identifier, remaining non-empty columns the ordered replacements. Blank
// rows are skipped. A row without at least one replacement is an error.
func LoadRefMap(path string, field Field) (*RefMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identifier map: %w", err)
	}
	defer f.Close()

	m := &RefMap{Field: field, refs: make(map[string][]string)}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read identifier map %s: %w", path, err)
		}
		var cells []string
		for _, c := range row {
			if c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		if len(cells) < 2 {
			return nil, fmt.Errorf("identifier map %s: %q has no replacement identifiers", path, cells[0])
		}
		old := cells[0]
		if _, ok := m.refs[old]; !ok {
			m.order = append(m.order, old)
		}
		m.refs[old] = cells[1:]
	}
	return m, nil
}

// Old returns the old identifiers in file order.
func (m *RefMap) Old() []string {
	return m.order
}

// New returns the ordered replacement set for old.
func (m *RefMap) New(old string) []string {
	return m.refs[old]
}

// OneToOne reports whether old maps to exactly one replacement.
func (m *RefMap) OneToOne(old string) bool {
	return len(m.refs[old]) == 1
}

// AllNew returns every replacement identifier across the whole map, in file
// order. The rewrite engine scans for these before touching a file.
func (m *RefMap) AllNew() []string {
	var all []string
	for _, old := range m.order {
		all = append(all, m.refs[old]...)
	}
	return all
}

// LoadUserMap reads the optional user identity map: space-delimited CSV,
// two columns, old user then new user.
func LoadUserMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open user map: %w", err)
	}
	defer f.Close()

	users := make(map[string]string)

	r := csv.NewReader(f)
	r.Comma = ' '
	r.FieldsPerRecord = -1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read user map %s: %w", path, err)
		}
		if len(row) < 2 || row[0] == "" {
			continue
		}
		users[row[0]] = row[1]
	}
	return users, nil
}
