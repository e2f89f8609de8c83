// Package classification maps free-text procedure descriptions to study categories.
package classification

import (
	"strings"

	"github.com/Veraticus/studyflow/internal/model"
)

// Tier identifies which stage of the pipeline produced a result.
type Tier int

// Tiers in evaluation order.
const (
	TierFallback Tier = iota
	TierDirect
	TierRule
	TierExact
	TierKeyword
	TierPrefix
	TierPartial
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierRule:
		return "rule"
	case TierExact:
		return "exact"
	case TierKeyword:
		return "keyword"
	case TierPrefix:
		return "prefix"
	case TierPartial:
		return "partial"
	default:
		return "fallback"
	}
}

// Result is the outcome of classifying one description.
type Result struct {
	Category string
	// Matched is the keyword, prefix or category name that decided the result.
	Matched string
	Value   float64
	Tier    Tier
}

// Unknown is the result returned when nothing matches.
var Unknown = Result{Category: model.UnknownCategory, Tier: TierFallback}

var (
	defaultKeywords = sortKeywords(DefaultKeywords())
	defaultPrefixes = sortPrefixes(DefaultPrefixes())
)

// Classifier binds a rule set to a keyword and prefix table.
type Classifier struct {
	rules    *model.RuleSet
	keywords []Keyword
	prefixes []Prefix
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithKeywords replaces the built-in keyword table.
func WithKeywords(keywords []Keyword) Option {
	return func(c *Classifier) {
		c.keywords = sortKeywords(keywords)
	}
}

// WithPrefixes replaces the built-in prefix table.
func WithPrefixes(prefixes []Prefix) Option {
	return func(c *Classifier) {
		c.prefixes = sortPrefixes(prefixes)
	}
}

// NewClassifier creates a classifier over rules using the built-in tables unless overridden.
func NewClassifier(rules *model.RuleSet, opts ...Option) *Classifier {
	c := &Classifier{
		rules:    rules,
		keywords: defaultKeywords,
		prefixes: defaultPrefixes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify classifies text against rules with the built-in tables. It never fails and is a
// pure function of its inputs.
func Classify(text string, rules *model.RuleSet) Result {
	return classify(text, rules, defaultKeywords, defaultPrefixes)
}

// Classify classifies one description.
func (c *Classifier) Classify(text string) Result {
	return classify(text, c.rules, c.keywords, c.prefixes)
}

// ClassifyAll classifies texts in order.
func (c *Classifier) ClassifyAll(texts []string) []Result {
	results := make([]Result, len(texts))
	for i, text := range texts {
		results[i] = c.Classify(text)
	}
	return results
}

// RuleSet returns the rule set the classifier was built with.
func (c *Classifier) RuleSet() *model.RuleSet {
	return c.rules
}

func classify(text string, rules *model.RuleSet, keywords []Keyword, prefixes []Prefix) Result {
	text = model.NormalizeText(text)
	if text == "" {
		return Unknown
	}

	resolve := func(category, matched string, tier Tier) Result {
		return Result{
			Category: category,
			Matched:  matched,
			Value:    rules.ValueOf(category),
			Tier:     tier,
		}
	}

	if category, ok := rules.Direct(text); ok {
		return resolve(category, text, TierDirect)
	}

	if category, ok := matchRules(text, rules); ok {
		return resolve(category, category, TierRule)
	}

	if category, ok := rules.CanonicalCategory(text); ok {
		return resolve(category, category, TierExact)
	}

	for _, kw := range keywords {
		if strings.Contains(text, kw.Substring) {
			return resolve(kw.Category, kw.Substring, TierKeyword)
		}
	}

	if p, ok := matchPrefix(text, prefixes); ok {
		return resolve(p.Category, p.Prefix, TierPrefix)
	}

	if category, ok := matchPartial(text, rules); ok {
		return resolve(category, category, TierPartial)
	}

	return Unknown
}

// matchRules returns the category of the first rule that matches, walking categories and
// their rules in configuration order.
func matchRules(text string, rules *model.RuleSet) (string, bool) {
	for _, cr := range rules.Rules() {
		allExcluded := model.IsSpineCategory(cr.Category)
		for _, r := range cr.Rules {
			if ruleMatches(text, r, allExcluded) {
				return cr.Category, true
			}
		}
	}
	return "", false
}

// ruleMatches applies one rule. When allExcluded is set the rule is excluded only if every
// excluded keyword is present; otherwise any excluded keyword excludes it.
func ruleMatches(text string, r model.Rule, allExcluded bool) bool {
	if len(r.Excluded) > 0 {
		var excluded bool
		if allExcluded {
			excluded = containsAll(text, r.Excluded)
		} else {
			excluded = containsAny(text, r.Excluded)
		}
		if excluded {
			return false
		}
	}

	if !containsAll(text, r.Required) {
		return false
	}

	return len(r.AnyOf) == 0 || containsAny(text, r.AnyOf)
}

func matchPrefix(text string, prefixes []Prefix) (Prefix, bool) {
	for _, p := range prefixes {
		if len(text) < len(p.Prefix) || !strings.HasPrefix(text, p.Prefix) {
			continue
		}
		if p.PassThrough {
			return Prefix{}, false
		}
		return p, true
	}
	return Prefix{}, false
}

// matchPartial looks for category names contained in the text, or the text contained in a
// category name. The most specific non-"Other" name wins, then the most specific "Other"
// bucket, and only then the PET/CT combination.
func matchPartial(text string, rules *model.RuleSet) (string, bool) {
	var best, bestOther, petCT string

	for _, cv := range rules.Values() {
		name := strings.ToLower(cv.Category)

		if model.IsPETCTCategory(cv.Category) {
			if strings.Contains(text, "pet") && strings.Contains(text, "ct") {
				petCT = cv.Category
			}
			continue
		}

		if !strings.Contains(text, name) && !strings.Contains(name, text) {
			continue
		}

		if model.IsOtherCategory(cv.Category) {
			if len(cv.Category) > len(bestOther) {
				bestOther = cv.Category
			}
			continue
		}
		if len(cv.Category) > len(best) {
			best = cv.Category
		}
	}

	switch {
	case best != "":
		return best, true
	case bestOther != "":
		return bestOther, true
	case petCT != "":
		return petCT, true
	}
	return "", false
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
