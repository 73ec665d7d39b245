// Package rewrite locates references to renamed identifiers across the
// supported file dialects and either rewrites them in place or flags them
// for manual review. Detection is table-driven: each file role gets an
// ordered battery of (pattern, rule) entries evaluated in a fixed order, so
// new syntactic forms are added as table rows rather than control flow.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// The equality detector needs a negative lookbehind (a "| collect" sink
// assignment is a write target and must never be rewritten) and a negative
// lookahead (a wildcarded value is not an exact reference). Stdlib regexp
// cannot express either, hence regexp2 for the whole battery.
const patternOpts = regexp2.IgnoreCase

func compile(pattern string) *regexp2.Regexp {
	return regexp2.MustCompile(pattern, patternOpts)
}

// rule is one entry of a detection battery. A rule with a rewrite function
// transforms every match; a rule without one is detect-only and records a
// manual-review entry with its reason.
type rule struct {
	name    string
	re      *regexp2.Regexp
	rewrite func(match string) string
	reason  string
}

// searchBattery builds the ordered detector table for search-type content
// (saved searches, macros, event types, dashboards, history). Every rewrite
// is an inclusive disjunction of the old identifier and the full replacement
// set, so existing results are not lost during the transition.
func searchBattery(field, old string, repl []string) []rule {
	o := regexp2.Escape(old)

	var matchTerms, eqTerms []string
	for _, n := range repl {
		matchTerms = append(matchTerms, fmt.Sprintf(`OR match('%s',"%s")`, field, n))
		eqTerms = append(eqTerms, fmt.Sprintf(`OR %s="%s"`, field, n))
	}
	eqReplacement := fmt.Sprintf(`(%s="%s" %s)`, field, old, strings.Join(eqTerms, " "))

	return []rule{
		{
			name: "match-function",
			re:   compile(fmt.Sprintf(`match\('%s',\s*"%s"\)`, field, o)),
			rewrite: func(m string) string {
				return "(" + m + " " + strings.Join(matchTerms, " ") + ")"
			},
		},
		{
			name: "in-operator",
			re:   compile(fmt.Sprintf(`%s\s*IN.*?%s\b`, field, o)),
			rewrite: func(m string) string {
				return m + "," + strings.Join(repl, ",")
			},
		},
		{
			name: "in-function",
			re:   compile(fmt.Sprintf(`IN\(%s,.*%s\b`, field, o)),
			rewrite: func(m string) string {
				return m + "," + strings.Join(repl, ",")
			},
		},
		{
			name:   "wildcard",
			re:     compile(fmt.Sprintf(`%s\s*=\s*"*%s\*`, field, o)),
			reason: "wildcard reference found",
		},
		{
			// Plain, quoted, double-double-quoted and URL-encoded-quote
			// equality, == included for case() expressions. The lookbehind
			// keeps collect sink assignments untouched; the lookahead
			// leaves wildcarded values to the wildcard rule.
			name: "equality",
			re: compile(fmt.Sprintf(
				`(?<!\|\scollect\s)%[1]s(?:\s|%%20)*==?(?:\s|%%20)*(?:%[2]s\b|"%[2]s\b"|""%[2]s\b""|%%22%[2]s\b%%22)(?!\*)`,
				field, o)),
			rewrite: func(string) string {
				return eqReplacement
			},
		},
		{
			// Runs after the equality rewrite: a link target span is
			// URL-encoded markup, so the spaces the disjunction introduced
			// are re-encoded as %20 within the span.
			name: "link-target",
			re:   compile(fmt.Sprintf(`target=.*?%s(?:%%20|\s)*=+.*?\b%s\b.*?</link>`, field, o)),
			rewrite: func(m string) string {
				return strings.ReplaceAll(m, " ", "%20")
			},
		},
	}
}

// inputBattery builds the detector table for data-collection descriptors.
// An input target is singular, so one-to-one maps rewrite in place and
// one-to-many maps are detect-only. Covers the plain assignment and the
// comma-separated multi-index key used by HTTP inputs.
func inputBattery(field, old string, repl []string, oneToOne bool) []rule {
	o := regexp2.Escape(old)

	base := rule{
		name: "input-assignment",
		re:   compile(fmt.Sprintf(`%s\s*=\s*%s\b`, field, o)),
	}
	list := rule{
		name: "input-list",
		re:   compile(fmt.Sprintf(`(%ses\s*=\s*[\w,]*?)%s\b`, field, o)),
	}
	if oneToOne {
		base.rewrite = func(string) string {
			return fmt.Sprintf("%s = %s", field, repl[0])
		}
		list.rewrite = func(m string) string {
			return strings.TrimSuffix(m, old) + repl[0]
		}
	} else {
		base.reason = "one-to-many map for a data-collection descriptor"
		list.reason = "one-to-many map for a data-collection descriptor"
	}
	return []rule{base, list}
}

// transformBattery builds the detector table for indexing-pipeline
// descriptors (FORMAT targets). Same singular-target policy as inputs.
func transformBattery(old string, repl []string, oneToOne bool) []rule {
	r := rule{
		name: "format-assignment",
		re:   compile(fmt.Sprintf(`FORMAT\s*=\s*%s\b`, regexp2.Escape(old))),
	}
	if oneToOne {
		r.rewrite = func(string) string {
			return "FORMAT = " + repl[0]
		}
	} else {
		r.reason = "one-to-many map for an indexing-pipeline descriptor"
	}
	return []rule{r}
}

// miscBattery builds detect-only rules for descriptor files whose identifier
// syntax the engine does not parse. Matches are always manual review.
func miscBattery(field, old string) []rule {
	o := regexp2.Escape(old)
	return []rule{
		{
			name:   "misc-assignment",
			re:     compile(fmt.Sprintf(`%s\s*=\s*%s\b`, field, o)),
			reason: "unparsed descriptor syntax",
		},
		{
			name:   "misc-metric-indexes",
			re:     compile(fmt.Sprintf(`metric_%ses\s*=\s*.*?%s\b`, field, o)),
			reason: "unparsed descriptor syntax",
		},
		{
			name:   "misc-rollup-index",
			re:     compile(fmt.Sprintf(`rollupIndex\s*=\s*%s\b`, o)),
			reason: "unparsed descriptor syntax",
		},
	}
}

// guardBattery builds the detectors used by the idempotence guard: any
// reference to a replacement identifier means the text was already rewritten
// (by this run or a prior one) and must not be touched again.
func guardBattery(field, id string) []*regexp2.Regexp {
	n := regexp2.Escape(id)
	return []*regexp2.Regexp{
		compile(fmt.Sprintf(`match\('%s',\s*"%s"\)`, field, n)),
		compile(fmt.Sprintf(`%s\s*IN.*?%s\b`, field, n)),
		compile(fmt.Sprintf(`IN\(%s,.*%s\b`, field, n)),
		compile(fmt.Sprintf(`%s\s*=\s*"*%s\*`, field, n)),
		compile(fmt.Sprintf(`target=.*?%s=%s.*?</link>`, field, n)),
		compile(fmt.Sprintf(
			`(?<!\|\scollect\s)%[1]s(?:\s|%%20)*==?(?:\s|%%20)*(?:%[2]s\b|"%[2]s\b"|""%[2]s\b""|%%22%[2]s\b%%22)(?!\*)`,
			field, n)),
	}
}

// Two legacy wildcard forms known to predate the rename; their relationship
// to the replacement sets cannot be determined automatically.
var legacyWildcards = []struct {
	id string
	re *regexp2.Regexp
}{
	{id: "*_sec", re: compile(`index\s*=\s*"*\*_sec"*`)},
	{id: "util_*", re: compile(`index\s*=\s*"*util_\*"*`)},
}
