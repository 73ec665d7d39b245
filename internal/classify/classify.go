// Package classify decides which files are in scope and which merge or
// rewrite rule applies to them. Classification happens once per file and the
// resulting tags are threaded through explicitly; nothing downstream re-derives
// roles from path substrings.
package classify

import (
	"path/filepath"
	"strings"
)

// Role tags a file for the reference rewrite engine. The set is closed: a
// file that earns no tag is left untouched.
type Role int

const (
	RoleNone Role = iota

	// RoleSearch covers search-type content: saved searches, macros, event
	// type definitions, dashboard XML and search history. Rewrites here
	// build an inclusive old-OR-new disjunction.
	RoleSearch

	// RoleInput covers data-collection descriptors. An input target is
	// singular: one-to-one maps rewrite in place, one-to-many maps are
	// flagged for manual review.
	RoleInput

	// RoleTransform covers indexing-pipeline descriptors (FORMAT targets).
	// Same policy as RoleInput.
	RoleTransform

	// RoleMisc covers descriptor files whose identifier syntax this engine
	// does not parse (wmi, metric alerts, metric rollups). Always flagged.
	RoleMisc

	// RoleExcluded marks files that must never be modified, notably the
	// index definitions themselves.
	RoleExcluded
)

func (r Role) String() string {
	switch r {
	case RoleSearch:
		return "search"
	case RoleInput:
		return "input"
	case RoleTransform:
		return "transform"
	case RoleMisc:
		return "misc"
	case RoleExcluded:
		return "excluded"
	}
	return "none"
}

// FileRole classifies a path for the rewrite engine. Lookup tables and
// default-shipped configuration are out of scope regardless of filename.
func FileRole(path string) Role {
	slash := filepath.ToSlash(path)
	if hasSegment(slash, "lookups") || hasSegment(slash, "default") {
		return RoleNone
	}

	base := filepath.Base(slash)
	switch {
	case base == "indexes.conf":
		return RoleExcluded
	case strings.HasSuffix(base, "inputs.conf"):
		return RoleInput
	case strings.HasSuffix(base, "transforms.conf"):
		return RoleTransform
	case base == "macros.conf", base == "savedsearches.conf", base == "eventtypes.conf":
		return RoleSearch
	case base == "wmi.conf", base == "metric_alerts.conf", base == "metric_rollups.conf":
		return RoleMisc
	case strings.HasSuffix(base, ".xml") && (hasSegment(slash, "views") || hasSegment(slash, "panels")):
		return RoleSearch
	case strings.HasSuffix(base, ".csv") && hasSegment(slash, "history"):
		return RoleSearch
	}
	return RoleNone
}

func hasSegment(slashPath, seg string) bool {
	for _, p := range strings.Split(slashPath, "/") {
		if p == seg {
			return true
		}
	}
	return false
}

// MergeClass selects the merge strategy for a per-user file.
type MergeClass int

const (
	MergeNone MergeClass = iota

	// MergeStanza merges key by key with collision surfacing.
	MergeStanza

	// MergeHistory concatenates source texts in order.
	MergeHistory

	// MergeRename copies each source file, suffixing the origin label when
	// the same base filename arrives from two or more sources.
	MergeRename
)

// Key identifies a file's logical identity across source trees. Files
// sharing a Key across all sources are merged together. History files from
// different systems carry different filenames, so their Key drops the
// filename and keys on the directory instead.
type Key struct {
	User      string
	App       string
	Namespace string
	Filename  string
}

// Path returns the output-relative path for the key, rooted at the users
// directory.
func (k Key) Path() string {
	parts := []string{"users", k.User, k.App}
	if k.Namespace != "" {
		parts = append(parts, k.Namespace)
	}
	if k.Filename != "" {
		parts = append(parts, k.Filename)
	}
	return filepath.Join(parts...)
}

// Remap substitutes the user segment through the identity-remapping table.
// Unmapped users pass through unchanged.
func (k Key) Remap(users map[string]string) Key {
	if mapped, ok := users[k.User]; ok {
		k.User = mapped
	}
	return k
}

// Identity classifies a path relative to the users root
// (<user>/<app>/...)  and produces the correlation key. MergeNone means the
// file is out of scope for the merge.
func Identity(rel string) (Key, MergeClass) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 4 {
		return Key{}, MergeNone
	}

	key := Key{
		User:      parts[0],
		App:       parts[1],
		Namespace: strings.Join(parts[2:len(parts)-1], "/"),
		Filename:  parts[len(parts)-1],
	}
	parent := parts[len(parts)-2]

	switch {
	case parent == "local" && strings.HasSuffix(key.Filename, ".conf"):
		return key, MergeStanza
	case parent == "metadata" && strings.HasSuffix(key.Filename, ".meta"):
		return key, MergeStanza
	case parent == "history" && strings.HasSuffix(key.Filename, ".csv"):
		key.Filename = ""
		return key, MergeHistory
	case parent == "lookups":
		return key, MergeRename
	case parent == "views", parent == "panels":
		return key, MergeRename
	}
	return Key{}, MergeNone
}
