package model

import (
	"slices"
	"strings"
	"time"
)

// placeholderTexts are descriptions the feed reports before the real one is populated.
var placeholderTexts = map[string]bool{
	"":        true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"-":       true,
	"unknown": true,
	"pending": true,
}

// NormalizeText lower-cases and trims a procedure description.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsPlaceholderText reports whether text is one of the "no description yet" sentinels.
func IsPlaceholderText(text string) bool {
	return placeholderTexts[NormalizeText(text)]
}

// BatchKey builds the tracking key for a multi-accession unit. Accessions are trimmed,
// de-duplicated and sorted so the key is stable regardless of screen order.
func BatchKey(accessions []string) string {
	return strings.Join(NormalizeAccessions(accessions), ", ")
}

// NormalizeAccessions trims, drops empties, de-duplicates and sorts accessions.
func NormalizeAccessions(accessions []string) []string {
	out := make([]string, 0, len(accessions))
	for _, a := range accessions {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ActiveStudy is a study currently believed to be in progress. Only the tracker holds these.
type ActiveStudy struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Accession     string
	ProcedureText string
	PatientClass  string
	Category      string
	Accessions    []string
	Value         float64
}

// CompletedStudy is an emitted record of a finished study, ready for persistence.
type CompletedStudy struct {
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Accession     string        `json:"accession"`
	ProcedureText string        `json:"procedure_text"`
	PatientClass  string        `json:"patient_class"`
	Category      string        `json:"category"`
	Accessions    []string      `json:"accessions,omitempty"`
	Value         float64       `json:"value"`
	Duration      time.Duration `json:"duration"`
}

// IsBatch reports whether the record bundles several accessions.
func (c CompletedStudy) IsBatch() bool {
	return len(c.Accessions) > 1
}
