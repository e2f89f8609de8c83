package classification

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/testutil/rulesets"
)

func TestClassify_Radiology(t *testing.T) {
	rules := rulesets.Radiology(t)

	tests := []struct {
		name     string
		text     string
		want     string
		wantTier Tier
		value    float64
	}{
		{name: "empty", text: "", want: model.UnknownCategory, wantTier: TierFallback},
		{name: "blank", text: "   ", want: model.UnknownCategory, wantTier: TierFallback},
		{name: "rule ct head", text: "CT Head WO Contrast", want: "CT Head", wantTier: TierRule, value: 0.85},
		{name: "rule xr knee", text: "XR Right Knee", want: "XR Knee", wantTier: TierRule, value: 0.18},
		{name: "rule mri brain", text: "MR Brain W WO", want: "MRI Brain", wantTier: TierRule, value: 1.48},
		{name: "rule spine", text: "CT C-Spine", want: "CT Spine", wantTier: TierRule, value: 1.0},
		{name: "exact category name", text: "us abdomen", want: "US Abdomen", wantTier: TierExact, value: 0.81},
		{name: "keyword abbreviation", text: "CT A/P with contrast", want: "CT Abdomen Pelvis", wantTier: TierKeyword, value: 1.74},
		{name: "keyword ultrasound", text: "Ultrasound Abdomen Complete", want: "US Other", wantTier: TierKeyword, value: 0.6},
		{name: "keyword mr", text: "MR Left Shoulder", want: "MRI Other", wantTier: TierKeyword, value: 1.4},
		{name: "fluoroscopy prefix", text: "Fluoro Esophagram", want: "XR Other", wantTier: TierPrefix, value: 0.2},
		{name: "ct prefix", text: "CT guided biopsy liver", want: "CT Other", wantTier: TierPrefix, value: 1.0},
		{name: "pet ct partial", text: "PET/CT Skull Base to Mid Thigh", want: "PET CT", wantTier: TierPartial, value: 2.2},
		{name: "pet without ct", text: "PET scan whole body", want: model.UnknownCategory, wantTier: TierFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, rules)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.wantTier, got.Tier, "tier %s", got.Tier)
			assert.InDelta(t, tt.value, got.Value, 1e-9)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	rules := rulesets.Radiology(t)
	c := NewClassifier(rules)
	texts := []string{
		"CT Head WO Contrast",
		"XR Right Knee",
		"PET/CT Skull Base to Mid Thigh",
		"cta cervical spine",
		"n/a",
		"",
	}

	first := c.ClassifyAll(texts)
	second := c.ClassifyAll(texts)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("classification changed between runs (-first +second):\n%s", diff)
	}
	for i, text := range texts {
		assert.Equal(t, first[i], Classify(text, rules), "bound and free classifier disagree for %q", text)
	}
}

func TestClassify_RuleBeatsKeyword(t *testing.T) {
	rules := rulesets.Radiology(t)

	got := Classify("XR Chest 2 Views", rules)
	assert.Equal(t, "XR Chest", got.Category)
	assert.Equal(t, TierRule, got.Tier)

	// Without the rule the "xr " keyword decides.
	bare := rulesets.NewBuilder(t).WithValue("XR Other", 0.2).Build()
	got = Classify("XR Chest 2 Views", bare)
	assert.Equal(t, "XR Other", got.Category)
	assert.Equal(t, TierKeyword, got.Tier)
	assert.Equal(t, "xr ", got.Matched)
}

func TestClassify_LongestKeywordFirst(t *testing.T) {
	c := NewClassifier(nil, WithKeywords([]Keyword{
		{Substring: "us ", Category: "US Generic"},
		{Substring: "ultrasound", Category: "US Detailed"},
	}), WithPrefixes(nil))

	got := c.Classify("US ultrasound of thyroid")
	assert.Equal(t, "US Detailed", got.Category)
	assert.Equal(t, "ultrasound", got.Matched)

	got = c.Classify("US thyroid")
	assert.Equal(t, "US Generic", got.Category)
}

func TestClassify_KeywordTiesKeepDeclarationOrder(t *testing.T) {
	c := NewClassifier(nil, WithKeywords([]Keyword{
		{Substring: "mri", Category: "First"},
		{Substring: "mra", Category: "Second"},
	}))

	assert.Equal(t, "First", c.Classify("mri and mra neck").Category)
}

func TestClassify_KeywordContainment(t *testing.T) {
	c := NewClassifier(nil, WithKeywords([]Keyword{{Substring: "thumb", Category: "XR Hand"}}))

	got := c.Classify("dumbthumbelina")
	assert.Equal(t, "XR Hand", got.Category)
	assert.Zero(t, got.Value, "categories without a value entry are worth 0")
}

func TestClassify_SpineExclusionAsymmetry(t *testing.T) {
	rule := model.Rule{Required: []string{"spine"}, Excluded: []string{"alpha", "beta"}}
	spine := rulesets.NewBuilder(t).WithRule(model.SpineCategory, rule).Build()
	other := rulesets.NewBuilder(t).WithRule("MRI Spine", rule).Build()

	tests := []struct {
		name  string
		rules *model.RuleSet
		text  string
		want  string
	}{
		{name: "spine with one excluded keyword still matches", rules: spine, text: "spine alpha", want: model.SpineCategory},
		{name: "spine with all excluded keywords is excluded", rules: spine, text: "spine alpha beta", want: model.UnknownCategory},
		{name: "spine without excluded keywords matches", rules: spine, text: "spine", want: model.SpineCategory},
		{name: "other category excluded by any keyword", rules: other, text: "spine alpha", want: model.UnknownCategory},
		{name: "other category matches without excluded keywords", rules: other, text: "spine", want: "MRI Spine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text, tt.rules).Category)
		})
	}
}

func TestClassify_SpineExclusionWithFixture(t *testing.T) {
	rules := rulesets.Radiology(t)

	assert.Equal(t, "CT Spine", Classify("CTA Cervical Spine", rules).Category)
	got := Classify("CTA Angio Cervical Spine", rules)
	assert.Equal(t, "CTA Other", got.Category)
	assert.Equal(t, TierKeyword, got.Tier)
}

func TestClassify_AnyOf(t *testing.T) {
	rules := rulesets.NewBuilder(t).
		WithRule("US Pelvis", model.Rule{Required: []string{"pelvi"}, AnyOf: []string{"transvaginal", "transabdominal"}}).
		Build()
	c := NewClassifier(rules, WithKeywords(nil), WithPrefixes(nil))

	assert.Equal(t, "US Pelvis", c.Classify("pelvis transabdominal").Category)
	assert.Equal(t, model.UnknownCategory, c.Classify("pelvis limited").Category)
}

func TestClassify_RuleOrder(t *testing.T) {
	rules := rulesets.NewBuilder(t).
		WithRule("CT Chest", model.Rule{Required: []string{"chest"}}).
		WithRule("CT Chest Abdomen", model.Rule{Required: []string{"chest", "abdomen"}}).
		Build()

	assert.Equal(t, "CT Chest", Classify("ct chest abdomen", rules).Category, "first matching category wins")
}

func TestClassify_DirectLookup(t *testing.T) {
	rules := rulesets.NewBuilder(t).
		WithRadiology().
		WithDirect("CT Head WO", "CT Chest").
		Build()

	got := Classify("  CT HEAD WO ", rules)
	assert.Equal(t, "CT Chest", got.Category)
	assert.Equal(t, TierDirect, got.Tier)
	assert.InDelta(t, 1.02, got.Value, 1e-9)
}

func TestClassify_PartialMatch(t *testing.T) {
	opts := []Option{WithKeywords(nil), WithPrefixes(nil)}

	t.Run("longest non-other name wins", func(t *testing.T) {
		rules := rulesets.NewBuilder(t).
			WithValue("Chest", 0.1).
			WithValue("CT Chest", 1.0).
			WithValue("Chest Other", 0.5).
			Build()
		got := NewClassifier(rules, opts...).Classify("low dose ct chest screening")
		assert.Equal(t, "CT Chest", got.Category)
		assert.Equal(t, TierPartial, got.Tier)
	})

	t.Run("text contained in category name", func(t *testing.T) {
		rules := rulesets.NewBuilder(t).WithValue("CT Chest", 1.0).Build()
		assert.Equal(t, "CT Chest", NewClassifier(rules, opts...).Classify("chest").Category)
	})

	t.Run("other bucket used when nothing specific matches", func(t *testing.T) {
		rules := rulesets.NewBuilder(t).
			WithValue("PET CT", 2.2).
			WithValue("CT Other", 1.0).
			Build()
		assert.Equal(t, "CT Other", NewClassifier(rules, opts...).Classify("pet ct other").Category)
	})

	t.Run("specific category beats pet ct", func(t *testing.T) {
		rules := rulesets.NewBuilder(t).
			WithValue("PET CT", 2.2).
			WithValue("CT Brain", 1.0).
			Build()
		assert.Equal(t, "CT Brain", NewClassifier(rules, opts...).Classify("pet ct brain").Category)
	})

	t.Run("pet ct needs both parts", func(t *testing.T) {
		rules := rulesets.NewBuilder(t).WithValue("PET CT", 2.2).Build()
		c := NewClassifier(rules, opts...)
		assert.Equal(t, "PET CT", c.Classify("fdg pet/ct").Category)
		assert.Equal(t, model.UnknownCategory, c.Classify("pet").Category)
		assert.Equal(t, model.UnknownCategory, c.Classify("fdg pet skull to thigh").Category)
	})
}

func TestClassify_PrefixPassThrough(t *testing.T) {
	rules := rulesets.Radiology(t)

	got := NewClassifier(rules, WithKeywords(nil)).Classify("cta runoff")
	assert.Equal(t, model.UnknownCategory, got.Category, "cta prefix defers to later tiers")

	got = NewClassifier(rules, WithKeywords(nil), WithPrefixes([]Prefix{{Prefix: "ct", Category: model.CTOther}})).Classify("cta runoff")
	assert.Equal(t, model.CTOther, got.Category)
}

func TestClassify_NilRuleSet(t *testing.T) {
	assert.Equal(t, Unknown, Classify("", nil))

	got := Classify("ultrasound thyroid", nil)
	assert.Equal(t, model.USOther, got.Category)
	assert.Zero(t, got.Value)
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "rule", TierRule.String())
	assert.Equal(t, "partial", TierPartial.String())
	assert.Equal(t, "fallback", Tier(99).String())
}
