// Package tracker turns periodic "currently visible" observations into completed studies.
//
// A Tracker is not safe for concurrent use; callers serialize access to one instance.
package tracker

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/studyflow/internal/classification"
	"github.com/Veraticus/studyflow/internal/model"
)

// BatchLookup reports whether accession was recorded as part of a multi-accession batch.
type BatchLookup func(accession string) bool

// Config holds tracker thresholds.
type Config struct {
	// MinimumDuration is the shortest visibility that counts as a real study.
	MinimumDuration time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MinimumDuration: 5 * time.Second}
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for lifecycle debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Tracker holds the active studies of one feed.
type Tracker struct {
	active  map[string]*model.ActiveStudy
	seen    *SeenSet
	logger  *slog.Logger
	minimum time.Duration
}

// New creates a tracker.
func New(cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		active:  make(map[string]*model.ActiveStudy),
		seen:    NewSeenSet(),
		logger:  slog.Default(),
		minimum: cfg.MinimumDuration,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MinimumDuration returns the configured completion threshold.
func (t *Tracker) MinimumDuration() time.Duration {
	return t.minimum
}

// Observe records that accession is visible at time at. A new accession becomes active and
// is classified immediately. A known accession has its last-seen time refreshed, and is
// re-classified when it was stored before its description was populated.
func (t *Tracker) Observe(accession, procedureText, patientClass string, at time.Time, rules *model.RuleSet) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return
	}
	t.observe(accession, nil, procedureText, patientClass, at, rules)
}

// ObserveBatch records a multi-accession unit. It is tracked under model.BatchKey and
// completes as a single study. A batch of one is an ordinary observation.
func (t *Tracker) ObserveBatch(accessions []string, procedureText, patientClass string, at time.Time, rules *model.RuleSet) {
	members := model.NormalizeAccessions(accessions)
	switch len(members) {
	case 0:
		return
	case 1:
		t.observe(members[0], nil, procedureText, patientClass, at, rules)
	default:
		t.observe(model.BatchKey(members), members, procedureText, patientClass, at, rules)
	}
}

func (t *Tracker) observe(key string, members []string, procedureText, patientClass string, at time.Time, rules *model.RuleSet) {
	procedureText = strings.TrimSpace(procedureText)
	patientClass = strings.TrimSpace(patientClass)

	study, ok := t.active[key]
	if !ok {
		result := classification.Classify(procedureText, rules)
		t.active[key] = &model.ActiveStudy{
			Accession:     key,
			Accessions:    members,
			ProcedureText: procedureText,
			PatientClass:  patientClass,
			Category:      result.Category,
			Value:         result.Value,
			FirstSeen:     at,
			LastSeen:      at,
		}
		t.logger.Debug("study started",
			"accession", key,
			"category", result.Category,
			"tier", result.Tier.String())
		return
	}

	if at.After(study.LastSeen) {
		study.LastSeen = at
	}

	needsText := study.Category == model.UnknownCategory || model.IsPlaceholderText(study.ProcedureText)
	if needsText && !model.IsPlaceholderText(procedureText) {
		result := classification.Classify(procedureText, rules)
		t.logger.Debug("study description resolved",
			"accession", key,
			"from", study.Category,
			"to", result.Category)
		study.ProcedureText = procedureText
		study.Category = result.Category
		study.Value = result.Value
	}

	if study.PatientClass == "" && patientClass != "" {
		study.PatientClass = patientClass
	}
}

// CheckCompletion closes every active study other than currentVisible.
//
// When another accession is visible, a closed study ends at its last-seen time. When nothing
// is visible, it ends at now. Studies shorter than the minimum duration are dropped without
// being returned. Either way the study leaves the active set, so it is emitted at most once
// per activation. Results are ordered by start time, then accession.
func (t *Tracker) CheckCompletion(currentVisible string, now time.Time) []model.CompletedStudy {
	currentVisible = strings.TrimSpace(currentVisible)

	var completed []model.CompletedStudy
	for key, study := range t.active {
		if key == currentVisible {
			continue
		}

		end := now
		if currentVisible != "" {
			end = study.LastSeen
		}
		duration := end.Sub(study.FirstSeen)

		delete(t.active, key)

		if duration < t.minimum {
			t.logger.Debug("study discarded below minimum duration",
				"accession", key,
				"duration", duration,
				"minimum", t.minimum)
			continue
		}

		completed = append(completed, model.CompletedStudy{
			Accession:     study.Accession,
			Accessions:    study.Accessions,
			ProcedureText: study.ProcedureText,
			PatientClass:  study.PatientClass,
			Category:      study.Category,
			Value:         study.Value,
			StartTime:     study.FirstSeen,
			EndTime:       end,
			Duration:      duration,
		})
		t.logger.Debug("study completed",
			"accession", key,
			"category", study.Category,
			"duration", duration)
	}

	slices.SortFunc(completed, func(a, b model.CompletedStudy) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Accession, b.Accession)
	})
	return completed
}

// ShouldIgnore reports whether accession must not be tracked again: dedup is enabled, the
// accession is not active, and lookup says it was already recorded inside a multi-accession
// batch. Previously seen single studies are never ignored, so a longer re-read can update them.
func (t *Tracker) ShouldIgnore(accession string, dedupEnabled bool, lookup BatchLookup) bool {
	if !dedupEnabled || lookup == nil {
		return false
	}
	accession = strings.TrimSpace(accession)
	if accession == "" || t.IsActive(accession) {
		return false
	}
	return lookup(accession)
}

// MarkSeen records accession as completed this shift.
func (t *Tracker) MarkSeen(accession string) {
	t.seen.Add(accession)
}

// Seen reports whether accession was completed this shift.
func (t *Tracker) Seen(accession string) bool {
	return t.seen.Contains(accession)
}

// SeenCount returns the number of accessions completed this shift.
func (t *Tracker) SeenCount() int {
	return t.seen.Len()
}

// ResetShift clears the seen set at a shift boundary. Active studies are kept.
func (t *Tracker) ResetShift() {
	t.seen.Reset()
}

// IsActive reports whether accession is currently tracked.
func (t *Tracker) IsActive(accession string) bool {
	_, ok := t.active[strings.TrimSpace(accession)]
	return ok
}

// Len returns the number of active studies.
func (t *Tracker) Len() int {
	return len(t.active)
}

// Active returns a snapshot of the active studies ordered by first-seen time, then accession.
func (t *Tracker) Active() []model.ActiveStudy {
	studies := make([]model.ActiveStudy, 0, len(t.active))
	for _, s := range t.active {
		cp := *s
		cp.Accessions = slices.Clone(s.Accessions)
		studies = append(studies, cp)
	}
	slices.SortFunc(studies, func(a, b model.ActiveStudy) int {
		if c := a.FirstSeen.Compare(b.FirstSeen); c != 0 {
			return c
		}
		return cmp.Compare(a.Accession, b.Accession)
	})
	return studies
}

// Reclassify re-runs classification for every active study with a real description, for use
// after the rule set changes. It returns the number of studies whose category changed.
func (t *Tracker) Reclassify(rules *model.RuleSet) int {
	changed := 0
	for key, study := range t.active {
		if model.IsPlaceholderText(study.ProcedureText) {
			continue
		}
		result := classification.Classify(study.ProcedureText, rules)
		if result.Category != study.Category {
			changed++
			t.logger.Debug("study reclassified",
				"accession", key,
				"from", study.Category,
				"to", result.Category)
		}
		study.Category = result.Category
		study.Value = result.Value
	}
	return changed
}
