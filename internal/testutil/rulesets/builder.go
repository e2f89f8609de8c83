// Package rulesets provides a fluent builder and fixtures for constructing rule sets in tests.
//
// Example usage:
//
//	rules := rulesets.NewBuilder(t).
//		WithRadiology().
//		WithValue("US Thyroid", 0.6).
//		Build()
package rulesets

import (
	"testing"

	"github.com/Veraticus/studyflow/internal/model"
)

// Builder accumulates rule set entries in insertion order.
type Builder struct {
	t       testing.TB
	version string
	lookups []model.DirectLookup
	rules   []model.CategoryRules
	values  []model.CategoryValue
}

// NewBuilder starts an empty rule set.
func NewBuilder(t testing.TB) *Builder {
	t.Helper()
	return &Builder{t: t, version: "test"}
}

// WithVersion sets the version label.
func (b *Builder) WithVersion(version string) *Builder {
	b.version = version
	return b
}

// WithValue appends a category value.
func (b *Builder) WithValue(category string, value float64) *Builder {
	b.values = append(b.values, model.CategoryValue{Category: category, Value: value})
	return b
}

// WithRule appends a rule to category, creating the rule group on first use.
func (b *Builder) WithRule(category string, rule model.Rule) *Builder {
	for i := range b.rules {
		if b.rules[i].Category == category {
			b.rules[i].Rules = append(b.rules[i].Rules, rule)
			return b
		}
	}
	b.rules = append(b.rules, model.CategoryRules{Category: category, Rules: []model.Rule{rule}})
	return b
}

// WithDirect appends a direct lookup.
func (b *Builder) WithDirect(text, category string) *Builder {
	b.lookups = append(b.lookups, model.DirectLookup{Text: text, Category: category})
	return b
}

// WithRadiology adds the Radiology fixture.
func (b *Builder) WithRadiology() *Builder {
	for _, cr := range RadiologyRules {
		for _, r := range cr.Rules {
			b.WithRule(cr.Category, r)
		}
	}
	b.values = append(b.values, RadiologyValues...)
	return b
}

// Build freezes the rule set, failing the test on validation errors.
func (b *Builder) Build() *model.RuleSet {
	b.t.Helper()
	rs, err := model.NewRuleSet(b.version, b.lookups, b.rules, b.values)
	if err != nil {
		b.t.Fatalf("failed to build rule set: %v", err)
	}
	return rs
}

// Radiology returns the Radiology fixture as a rule set.
func Radiology(t testing.TB) *model.RuleSet {
	t.Helper()
	return NewBuilder(t).WithRadiology().Build()
}
