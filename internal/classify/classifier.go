// Package classify assigns spending categories to transactions from their
// note text using an ordered list of case-insensitive pattern rules.
package classify

import (
	"fmt"
	"regexp"

	"tally/internal/core"
)

type compiledRule struct {
	core.CategoryRule
	re *regexp.Regexp
}

// Classifier holds the ordered rule list. First match wins, so rule order
// is deterministic and explicitly preserved (insertion order).
type Classifier struct {
	rules []compiledRule
}

func New() *Classifier {
	return &Classifier{}
}

// FromRules builds a classifier from persisted rules. Rules that no longer
// compile are skipped and reported through the returned slice of errors so
// the caller can log them; a bad rule never aborts the load.
func FromRules(rules []core.CategoryRule) (*Classifier, []error) {
	c := New()
	var errs []error
	for _, r := range rules {
		if err := c.AddRule(r.Pattern, r.Category); err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", r.Pattern, err))
		}
	}
	return c, errs
}

// Classify returns the category of the first rule whose pattern matches the
// note, or CategoryOther when nothing matches or the note is empty. Pure
// function of the current rule set and input.
func (c *Classifier) Classify(note string) string {
	if note == "" {
		return core.CategoryOther
	}
	for _, r := range c.rules {
		if r.re.MatchString(note) {
			return r.Category
		}
	}
	return core.CategoryOther
}

// AddRule compiles the pattern case-insensitively and stores it. A rule
// with an identical pattern is replaced in place, keeping its position;
// otherwise the rule is appended.
func (c *Classifier) AddRule(pattern, category string) error {
	rule := core.CategoryRule{Pattern: pattern, Category: category}
	if err := rule.Validate(); err != nil {
		return err
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	compiled := compiledRule{CategoryRule: rule, re: re}
	for i, existing := range c.rules {
		if existing.Pattern == pattern {
			c.rules[i] = compiled
			return nil
		}
	}
	c.rules = append(c.rules, compiled)
	return nil
}

// Rules returns the rule list in stored order.
func (c *Classifier) Rules() []core.CategoryRule {
	out := make([]core.CategoryRule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.CategoryRule
	}
	return out
}

func (c *Classifier) Len() int {
	return len(c.rules)
}
