package rewrite

import (
	"fmt"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"komigrate/internal/classify"
	"komigrate/internal/mapping"
	"komigrate/internal/report"
)

// Engine applies every loaded identifier map to a piece of configuration
// text according to its file role. The engine is pure text-in/text-out;
// backups and persistence belong to the caller.
type Engine struct {
	maps   []*mapping.RefMap
	review *report.Review
	log    *zap.Logger
}

// NewEngine builds an engine over the given identifier maps. Manual-review
// findings are accumulated into review for the lifetime of the run.
func NewEngine(maps []*mapping.RefMap, review *report.Review, log *zap.Logger) *Engine {
	return &Engine{maps: maps, review: review, log: log}
}

// Result is the outcome of one Rewrite call.
type Result struct {
	// Text is the (possibly rewritten) content.
	Text string

	// Changed reports whether Text differs from the input.
	Changed bool

	// Invalid means the idempotence guard tripped: the text already
	// references a replacement identifier or a known legacy wildcard, so
	// it was returned unmodified and flagged for review.
	Invalid bool
}

// Rewrite runs the detector battery for every identifier against text.
// target names the file or endpoint for manual-review attribution.
func (e *Engine) Rewrite(text string, role classify.Role, target string) Result {
	if e.alreadyProcessed(text, target) {
		e.log.Warn("replacement references already present, leaving unmodified",
			zap.String("target", target))
		return Result{Text: text, Invalid: true}
	}

	out := text
	for _, m := range e.maps {
		for _, old := range m.Old() {
			for _, r := range e.rulesFor(role, m, old) {
				out = e.applyRule(r, out, target, old)
			}
		}
	}
	return Result{Text: out, Changed: out != text}
}

// rulesFor selects the ordered battery for a role. Collection- and
// indexing-tier descriptors assign indexes, not sourcetypes, so those roles
// only consider the index map.
func (e *Engine) rulesFor(role classify.Role, m *mapping.RefMap, old string) []rule {
	field := string(m.Field)
	switch role {
	case classify.RoleSearch:
		return searchBattery(field, old, m.New(old))
	case classify.RoleInput:
		if m.Field != mapping.FieldIndex {
			return nil
		}
		return inputBattery(field, old, m.New(old), m.OneToOne(old))
	case classify.RoleTransform:
		if m.Field != mapping.FieldIndex {
			return nil
		}
		return transformBattery(old, m.New(old), m.OneToOne(old))
	case classify.RoleMisc:
		return miscBattery(field, old)
	}
	return nil
}

func (e *Engine) applyRule(r rule, text, target, old string) string {
	matched, err := r.re.MatchString(text)
	if err != nil {
		e.log.Error("pattern evaluation failed",
			zap.String("rule", r.name), zap.String("target", target), zap.Error(err))
		return text
	}
	if !matched {
		return text
	}

	if r.rewrite == nil {
		e.log.Warn("manual review required",
			zap.String("rule", r.name),
			zap.String("target", target),
			zap.String("identifier", old))
		e.review.Add(target, old, r.reason)
		return text
	}

	out, err := r.re.ReplaceFunc(text, func(m regexp2.Match) string {
		return r.rewrite(m.String())
	}, -1, -1)
	if err != nil {
		e.log.Error("rewrite failed",
			zap.String("rule", r.name), zap.String("target", target), zap.Error(err))
		return text
	}
	e.log.Info("rewrote identifier reference",
		zap.String("rule", r.name),
		zap.String("target", target),
		zap.String("identifier", old))
	return out
}

// alreadyProcessed scans for references to any replacement identifier and
// for the known legacy wildcard forms. Either finding marks the text as
// invalid for rewriting: applying the disjunction rule twice would corrupt
// the content.
func (e *Engine) alreadyProcessed(text, target string) bool {
	tripped := false
	for _, m := range e.maps {
		field := string(m.Field)
		for _, id := range m.AllNew() {
			for _, re := range guardBattery(field, id) {
				ok, err := re.MatchString(text)
				if err != nil {
					e.log.Error("guard pattern evaluation failed",
						zap.String("target", target), zap.Error(err))
					continue
				}
				if ok {
					e.review.Add(target, id,
						fmt.Sprintf("replacement %s reference already present", field))
					tripped = true
					break
				}
			}
		}
	}
	for _, lw := range legacyWildcards {
		if ok, _ := lw.re.MatchString(text); ok {
			e.review.Add(target, lw.id, "legacy wildcard reference found")
			tripped = true
		}
	}
	return tripped
}
