package model

import "strings"

// Category names the classifier treats specially. They are checked in one place each so a
// rename in the rules file only needs a matching change here.
const (
	// UnknownCategory is returned when nothing matches.
	UnknownCategory = "Unknown"
	// OtherSuffix marks generic per-modality fallback buckets such as "CT Other".
	OtherSuffix = "Other"
	// PETCTCategory only matches when both "pet" and "ct" appear in the text.
	PETCTCategory = "PET CT"
	// SpineCategory excludes a rule only when every excluded keyword is present.
	SpineCategory = "CT Spine"
)

// Generic per-modality buckets used by the built-in keyword and prefix tables.
const (
	CTOther  = "CT Other"
	CTAOther = "CTA Other"
	MRIOther = "MRI Other"
	USOther  = "US Other"
	XROther  = "XR Other"
	NMOther  = "NM Other"
)

// CategoryValue pairs a category with its work value.
type CategoryValue struct {
	Category string  `json:"category" yaml:"category"`
	Value    float64 `json:"value" yaml:"value"`
}

// IsOtherCategory reports whether name is a generic "... Other" bucket.
func IsOtherCategory(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), strings.ToLower(OtherSuffix))
}

// IsPETCTCategory reports whether name is the PET/CT combination category.
func IsPETCTCategory(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), PETCTCategory)
}

// IsSpineCategory reports whether name is the spine category with all-of exclusion.
func IsSpineCategory(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), SpineCategory)
}
