package rulesets

import "github.com/Veraticus/studyflow/internal/model"

// RadiologyRules is a small but realistic rule table covering the common study types.
var RadiologyRules = []model.CategoryRules{
	{Category: "CT Spine", Rules: []model.Rule{
		{Required: []string{"ct"}, AnyOf: []string{"spine", "cervical", "thoracic", "lumbar"}, Excluded: []string{"cta", "angio"}},
	}},
	{Category: "CTA Head Neck", Rules: []model.Rule{
		{Required: []string{"cta"}, AnyOf: []string{"head", "neck", "brain"}},
	}},
	{Category: "CT Abdomen Pelvis", Rules: []model.Rule{
		{Required: []string{"ct", "abd", "pel"}},
		{Required: []string{"ct", "abdomen", "pelvis"}},
	}},
	{Category: "CT Head", Rules: []model.Rule{
		{Required: []string{"ct", "head"}, Excluded: []string{"cta", "neck"}},
	}},
	{Category: "CT Chest", Rules: []model.Rule{
		{Required: []string{"ct", "chest"}, Excluded: []string{"cta"}},
	}},
	{Category: "MRI Brain", Rules: []model.Rule{
		{Required: []string{"brain"}, AnyOf: []string{"mri", "mr "}},
	}},
	{Category: "XR Knee", Rules: []model.Rule{
		{Required: []string{"knee"}, AnyOf: []string{"xr", "x-ray", "radiograph"}},
	}},
	{Category: "XR Chest", Rules: []model.Rule{
		{Required: []string{"chest"}, AnyOf: []string{"xr", "x-ray", "portable"}, Excluded: []string{"ct"}},
	}},
}

// RadiologyValues is the work value table matching RadiologyRules plus the generic buckets.
var RadiologyValues = []model.CategoryValue{
	{Category: "CT Spine", Value: 1.0},
	{Category: "CTA Head Neck", Value: 1.75},
	{Category: "CT Abdomen Pelvis", Value: 1.74},
	{Category: "CT Head", Value: 0.85},
	{Category: "CT Chest", Value: 1.02},
	{Category: "CT Other", Value: 1.0},
	{Category: "CTA Other", Value: 1.5},
	{Category: "MRI Brain", Value: 1.48},
	{Category: "MRI Other", Value: 1.4},
	{Category: "US Abdomen", Value: 0.81},
	{Category: "US Other", Value: 0.6},
	{Category: "XR Knee", Value: 0.18},
	{Category: "XR Chest", Value: 0.22},
	{Category: "XR Other", Value: 0.2},
	{Category: "NM Other", Value: 1.0},
	{Category: "PET CT", Value: 2.2},
}
