package classification

import (
	"cmp"
	"slices"

	"github.com/Veraticus/studyflow/internal/model"
)

// Keyword is a built-in substring hint that resolves to a category.
type Keyword struct {
	Substring string
	Category  string
}

// Prefix maps the first characters of a description to a generic modality bucket.
// A PassThrough prefix stops prefix matching so later tiers decide.
type Prefix struct {
	Prefix      string
	Category    string
	PassThrough bool
}

// DefaultKeywords returns the built-in keyword table in declaration order.
func DefaultKeywords() []Keyword {
	return []Keyword{
		// CT abdomen/pelvis abbreviations
		{Substring: "ct ap", Category: "CT Abdomen Pelvis"},
		{Substring: "ct a/p", Category: "CT Abdomen Pelvis"},
		{Substring: "ct abd/pel", Category: "CT Abdomen Pelvis"},

		// Ultrasound
		{Substring: "ultrasound", Category: model.USOther},
		{Substring: "sonogram", Category: model.USOther},
		{Substring: "us ", Category: model.USOther},

		// Cross-sectional angiography defaults to the generic CTA bucket
		{Substring: "angiogram", Category: model.CTAOther},
		{Substring: "cta", Category: model.CTAOther},

		// MRI
		{Substring: "mri", Category: model.MRIOther},
		{Substring: "mra", Category: model.MRIOther},
		{Substring: "mr ", Category: model.MRIOther},

		// Radiography
		{Substring: "x-ray", Category: model.XROther},
		{Substring: "xray", Category: model.XROther},
		{Substring: "xr ", Category: model.XROther},

		// Nuclear medicine
		{Substring: "nuclear", Category: model.NMOther},
		{Substring: "nm ", Category: model.NMOther},
	}
}

// DefaultPrefixes returns the built-in prefix table. Three-letter prefixes are checked before
// two-letter ones.
func DefaultPrefixes() []Prefix {
	return []Prefix{
		{Prefix: "cta", PassThrough: true},
		{Prefix: "flu", Category: model.XROther},
		{Prefix: "ct", Category: model.CTOther},
		{Prefix: "mr", Category: model.MRIOther},
		{Prefix: "us", Category: model.USOther},
		{Prefix: "xr", Category: model.XROther},
		{Prefix: "nm", Category: model.NMOther},
	}
}

// sortKeywords orders keywords longest first, keeping declaration order between equal lengths.
func sortKeywords(keywords []Keyword) []Keyword {
	sorted := slices.Clone(keywords)
	slices.SortStableFunc(sorted, func(a, b Keyword) int {
		return cmp.Compare(len(b.Substring), len(a.Substring))
	})
	return sorted
}

// sortPrefixes orders prefixes longest first, keeping declaration order between equal lengths.
func sortPrefixes(prefixes []Prefix) []Prefix {
	sorted := slices.Clone(prefixes)
	slices.SortStableFunc(sorted, func(a, b Prefix) int {
		return cmp.Compare(len(b.Prefix), len(a.Prefix))
	})
	return sorted
}
