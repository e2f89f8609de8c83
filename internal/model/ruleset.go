// Package model defines the core data structures for studyflow.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRuleSet is returned when a rule set fails structural validation.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// Rule is a keyword rule for one category. All keywords are matched as lower-case substrings.
type Rule struct {
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
	Excluded []string `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	AnyOf    []string `json:"any_of,omitempty" yaml:"any_of,omitempty"`
}

// CategoryRules is the ordered rule list for one target category.
type CategoryRules struct {
	Category string `json:"category" yaml:"category"`
	Rules    []Rule `json:"rules" yaml:"rules"`
}

// DirectLookup maps an exact normalized text to a category.
type DirectLookup struct {
	Text     string `json:"text" yaml:"text"`
	Category string `json:"category" yaml:"category"`
}

// RuleSet is the immutable configuration the classifier runs against.
// Build one with NewRuleSet; the zero value is an empty but usable rule set.
type RuleSet struct {
	direct     map[string]string
	valueIndex map[string]int
	valueOf    map[string]float64
	Version    string
	lookups    []DirectLookup
	rules      []CategoryRules
	values     []CategoryValue
}

// NewRuleSet validates and freezes the given configuration. Slices are copied and keywords
// are lower-cased, so later changes to the arguments do not affect the rule set.
func NewRuleSet(version string, lookups []DirectLookup, rules []CategoryRules, values []CategoryValue) (*RuleSet, error) {
	rs := &RuleSet{
		Version:    version,
		direct:     make(map[string]string, len(lookups)),
		valueIndex: make(map[string]int, len(values)),
		valueOf:    make(map[string]float64, len(values)),
	}

	for i, l := range lookups {
		text := NormalizeText(l.Text)
		category := strings.TrimSpace(l.Category)
		if text == "" {
			return nil, fmt.Errorf("%w: direct lookup %d has empty text", ErrInvalidRuleSet, i)
		}
		if category == "" {
			return nil, fmt.Errorf("%w: direct lookup %q has empty category", ErrInvalidRuleSet, l.Text)
		}
		if _, dup := rs.direct[text]; dup {
			return nil, fmt.Errorf("%w: duplicate direct lookup %q", ErrInvalidRuleSet, text)
		}
		rs.direct[text] = category
		rs.lookups = append(rs.lookups, DirectLookup{Text: text, Category: category})
	}

	seen := make(map[string]bool, len(rules))
	for _, cr := range rules {
		category := strings.TrimSpace(cr.Category)
		if category == "" {
			return nil, fmt.Errorf("%w: rule group with empty category", ErrInvalidRuleSet)
		}
		key := strings.ToLower(category)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate rule group %q", ErrInvalidRuleSet, category)
		}
		seen[key] = true

		frozen := CategoryRules{Category: category, Rules: make([]Rule, 0, len(cr.Rules))}
		for i, r := range cr.Rules {
			rule, err := freezeRule(r)
			if err != nil {
				return nil, fmt.Errorf("%w: %s rule %d: %v", ErrInvalidRuleSet, category, i, err)
			}
			frozen.Rules = append(frozen.Rules, rule)
		}
		rs.rules = append(rs.rules, frozen)
	}

	for _, cv := range values {
		category := strings.TrimSpace(cv.Category)
		if category == "" {
			return nil, fmt.Errorf("%w: value entry with empty category", ErrInvalidRuleSet)
		}
		if cv.Value < 0 {
			return nil, fmt.Errorf("%w: negative value %.2f for %q", ErrInvalidRuleSet, cv.Value, category)
		}
		key := strings.ToLower(category)
		if _, dup := rs.valueIndex[key]; dup {
			return nil, fmt.Errorf("%w: duplicate value entry %q", ErrInvalidRuleSet, category)
		}
		rs.valueIndex[key] = len(rs.values)
		rs.valueOf[category] = cv.Value
		rs.values = append(rs.values, CategoryValue{Category: category, Value: cv.Value})
	}

	return rs, nil
}

func freezeRule(r Rule) (Rule, error) {
	required, err := lowerKeywords(r.Required)
	if err != nil {
		return Rule{}, err
	}
	excluded, err := lowerKeywords(r.Excluded)
	if err != nil {
		return Rule{}, err
	}
	anyOf, err := lowerKeywords(r.AnyOf)
	if err != nil {
		return Rule{}, err
	}
	if len(required) == 0 && len(anyOf) == 0 {
		return Rule{}, errors.New("rule needs at least one required or any_of keyword")
	}
	return Rule{Required: required, Excluded: excluded, AnyOf: anyOf}, nil
}

func lowerKeywords(keywords []string) ([]string, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		// Keywords are not trimmed: a trailing space is a common way to anchor a short hint.
		lk := strings.ToLower(k)
		if strings.TrimSpace(lk) == "" {
			return nil, errors.New("empty keyword")
		}
		out = append(out, lk)
	}
	return out, nil
}

// Direct returns the direct lookup category for already-normalized text.
func (rs *RuleSet) Direct(normalized string) (string, bool) {
	if rs == nil || rs.direct == nil {
		return "", false
	}
	category, ok := rs.direct[normalized]
	return category, ok
}

// DirectLookups returns the direct lookups in configuration order.
func (rs *RuleSet) DirectLookups() []DirectLookup {
	if rs == nil {
		return nil
	}
	return append([]DirectLookup(nil), rs.lookups...)
}

// Rules returns the rule groups in configuration order. The result is shared and must not be modified.
func (rs *RuleSet) Rules() []CategoryRules {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Values returns the category value table in configuration order. The result is shared and must not be modified.
func (rs *RuleSet) Values() []CategoryValue {
	if rs == nil {
		return nil
	}
	return rs.values
}

// ValueOf returns the work value for category, or 0 when the category has no entry.
// The category must be spelled exactly as configured.
func (rs *RuleSet) ValueOf(category string) float64 {
	if rs == nil {
		return 0
	}
	return rs.valueOf[category]
}

// CanonicalCategory returns the configured spelling of a category that matches name
// case-insensitively.
func (rs *RuleSet) CanonicalCategory(name string) (string, bool) {
	cv, ok := rs.lookupValue(name)
	return cv.Category, ok
}

func (rs *RuleSet) lookupValue(category string) (CategoryValue, bool) {
	if rs == nil || rs.valueIndex == nil {
		return CategoryValue{}, false
	}
	idx, ok := rs.valueIndex[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return CategoryValue{}, false
	}
	return rs.values[idx], true
}

// RuleCount returns the total number of rules across all categories.
func (rs *RuleSet) RuleCount() int {
	n := 0
	for _, cr := range rs.Rules() {
		n += len(cr.Rules)
	}
	return n
}
