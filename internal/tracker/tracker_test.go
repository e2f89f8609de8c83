package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/testutil/rulesets"
)

var t0 = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func newTracker(minimum time.Duration) *Tracker {
	return New(Config{MinimumDuration: minimum})
}

func TestTracker_ImmediateCompletionWhenNothingVisible(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(5 * time.Second)

	tr.Observe("A1", "CT Head WO Contrast", "ER", at(0), rules)

	completed := tr.CheckCompletion("", at(10))
	require.Len(t, completed, 1)

	got := completed[0]
	assert.Equal(t, "A1", got.Accession)
	assert.Equal(t, "CT Head", got.Category)
	assert.InDelta(t, 0.85, got.Value, 1e-9)
	assert.Equal(t, at(0), got.StartTime)
	assert.Equal(t, at(10), got.EndTime)
	assert.Equal(t, 10*time.Second, got.Duration)
	assert.Equal(t, "ER", got.PatientClass)
	assert.False(t, tr.IsActive("A1"))
}

func TestTracker_ReplacedStudyEndsAtLastSeen(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(5 * time.Second)

	tr.Observe("A1", "XR Right Knee", "", at(0), rules)
	tr.Observe("A1", "XR Right Knee", "", at(8), rules)
	tr.Observe("A2", "CT Chest", "", at(20), rules)

	completed := tr.CheckCompletion("A2", at(20))
	require.Len(t, completed, 1)
	assert.Equal(t, "A1", completed[0].Accession)
	assert.Equal(t, at(8), completed[0].EndTime)
	assert.Equal(t, 8*time.Second, completed[0].Duration)

	assert.True(t, tr.IsActive("A2"), "the visible study stays active")
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_BelowThresholdDiscarded(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(5 * time.Second)

	tr.Observe("A2", "CT Head", "", at(0), rules)
	tr.Observe("A2", "CT Head", "", at(2), rules)

	completed := tr.CheckCompletion("A3", at(2))
	assert.Empty(t, completed)
	assert.False(t, tr.IsActive("A2"), "discarded studies are not retained")
	assert.Zero(t, tr.Len())
}

func TestTracker_DurationAtThresholdIsEmitted(t *testing.T) {
	tr := newTracker(5 * time.Second)

	tr.Observe("A1", "XR Chest", "", at(0), nil)
	completed := tr.CheckCompletion("", at(5))
	require.Len(t, completed, 1)
	assert.Equal(t, 5*time.Second, completed[0].Duration)
}

func TestTracker_PlaceholderUpgradedInPlace(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(0)

	tr.Observe("A4", "n/a", "", at(0), rules)
	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, model.UnknownCategory, active[0].Category)

	tr.Observe("A4", "XR Right Knee", "Outpatient", at(1), rules)

	active = tr.Active()
	require.Len(t, active, 1, "re-observation must not create a second study")
	assert.Equal(t, "XR Knee", active[0].Category)
	assert.InDelta(t, 0.18, active[0].Value, 1e-9)
	assert.Equal(t, "XR Right Knee", active[0].ProcedureText)
	assert.Equal(t, "Outpatient", active[0].PatientClass)
	assert.Equal(t, at(0), active[0].FirstSeen)
	assert.Equal(t, at(1), active[0].LastSeen)
}

func TestTracker_KnownCategoryNotOverwritten(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(0)

	tr.Observe("A1", "CT Head WO", "", at(0), rules)
	tr.Observe("A1", "XR Right Knee", "", at(1), rules)

	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "CT Head", active[0].Category)
	assert.Equal(t, "CT Head WO", active[0].ProcedureText)
}

func TestTracker_PlaceholderDoesNotReplaceText(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(0)

	tr.Observe("A1", "Unreadable scribble", "", at(0), rules)
	tr.Observe("A1", "n/a", "", at(1), rules)

	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Unreadable scribble", active[0].ProcedureText)
	assert.Equal(t, at(1), active[0].LastSeen)
}

func TestTracker_AtMostOneEmissionPerActivation(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(time.Second)

	tr.Observe("A5", "CT Chest", "", at(0), rules)
	require.Len(t, tr.CheckCompletion("", at(30)), 1)

	assert.Empty(t, tr.CheckCompletion("", at(40)))
	assert.Empty(t, tr.CheckCompletion("A6", at(50)))

	// Re-observation starts a new activation.
	tr.Observe("A5", "CT Chest", "", at(60), rules)
	completed := tr.CheckCompletion("", at(65))
	require.Len(t, completed, 1)
	assert.Equal(t, 5*time.Second, completed[0].Duration)
}

func TestTracker_VisibleStudyNotCompleted(t *testing.T) {
	tr := newTracker(0)

	tr.Observe("A1", "CT Head", "", at(0), nil)
	assert.Empty(t, tr.CheckCompletion("A1", at(100)))
	assert.True(t, tr.IsActive("A1"))
}

func TestTracker_UnknownAccessionCompletionIsNoop(t *testing.T) {
	tr := newTracker(0)
	assert.Empty(t, tr.CheckCompletion("never-seen", at(10)))
	assert.Empty(t, tr.CheckCompletion("", at(10)))
}

func TestTracker_EmptyAccessionIgnored(t *testing.T) {
	tr := newTracker(0)
	tr.Observe("", "CT Head", "", at(0), nil)
	tr.Observe("   ", "CT Head", "", at(0), nil)
	tr.ObserveBatch([]string{"", " "}, "CT Head", "", at(0), nil)
	assert.Zero(t, tr.Len())
}

func TestTracker_CompletionOrder(t *testing.T) {
	tr := newTracker(0)

	tr.Observe("B", "CT Head", "", at(5), nil)
	tr.Observe("C", "CT Head", "", at(0), nil)
	tr.Observe("A", "CT Head", "", at(5), nil)

	completed := tr.CheckCompletion("", at(10))
	require.Len(t, completed, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{
		completed[0].Accession, completed[1].Accession, completed[2].Accession,
	})
}

func TestTracker_Batch(t *testing.T) {
	rules := rulesets.Radiology(t)
	tr := newTracker(time.Second)

	tr.ObserveBatch([]string{"A2", "A1"}, "CT Abdomen Pelvis", "Inpatient", at(0), rules)
	tr.ObserveBatch([]string{"A1", "A2"}, "CT Abdomen Pelvis", "Inpatient", at(30), rules)
	require.Equal(t, 1, tr.Len())
	assert.True(t, tr.IsActive("A1, A2"))

	completed := tr.CheckCompletion("", at(45))
	require.Len(t, completed, 1)
	assert.Equal(t, "A1, A2", completed[0].Accession)
	assert.Equal(t, []string{"A1", "A2"}, completed[0].Accessions)
	assert.True(t, completed[0].IsBatch())
	assert.Equal(t, "CT Abdomen Pelvis", completed[0].Category)

	// A batch of one is tracked like a single accession.
	tr.ObserveBatch([]string{"A9"}, "CT Head", "", at(50), rules)
	assert.True(t, tr.IsActive("A9"))
}

func TestTracker_ShouldIgnore(t *testing.T) {
	tr := newTracker(0)
	batchMembers := map[string]bool{"A1": true, "A2": true}
	lookup := func(accession string) bool { return batchMembers[accession] }

	assert.True(t, tr.ShouldIgnore("A1", true, lookup), "batch member is ignored")
	assert.False(t, tr.ShouldIgnore("A1", false, lookup), "dedup disabled")
	assert.False(t, tr.ShouldIgnore("A3", true, lookup), "single studies stay trackable")
	assert.False(t, tr.ShouldIgnore("A1", true, nil), "no lookup available")
	assert.False(t, tr.ShouldIgnore("", true, lookup))

	tr.Observe("A2", "CT Head", "", at(0), nil)
	assert.False(t, tr.ShouldIgnore("A2", true, lookup), "active accessions are never ignored")
}

func TestTracker_SeenSet(t *testing.T) {
	tr := newTracker(0)

	tr.MarkSeen("A1")
	tr.MarkSeen(" A1 ")
	tr.MarkSeen("")
	assert.True(t, tr.Seen("A1"))
	assert.False(t, tr.Seen("A2"))
	assert.Equal(t, 1, tr.SeenCount())

	tr.Observe("A2", "CT Head", "", at(0), nil)
	tr.ResetShift()
	assert.False(t, tr.Seen("A1"))
	assert.True(t, tr.IsActive("A2"), "shift reset keeps active studies")
}

func TestTracker_Reclassify(t *testing.T) {
	tr := newTracker(0)

	tr.Observe("A1", "XR Right Knee", "", at(0), nil)
	tr.Observe("A2", "n/a", "", at(0), nil)
	require.Equal(t, model.XROther, tr.Active()[0].Category)

	changed := tr.Reclassify(rulesets.Radiology(t))
	assert.Equal(t, 1, changed)

	active := tr.Active()
	require.Len(t, active, 2)
	byAccession := map[string]model.ActiveStudy{}
	for _, s := range active {
		byAccession[s.Accession] = s
	}
	assert.Equal(t, "XR Knee", byAccession["A1"].Category)
	assert.Equal(t, model.UnknownCategory, byAccession["A2"].Category)
}

func TestTracker_ActiveIsSnapshot(t *testing.T) {
	tr := newTracker(0)
	tr.ObserveBatch([]string{"A1", "A2"}, "CT Head", "", at(0), nil)

	snapshot := tr.Active()
	snapshot[0].Category = "changed"
	snapshot[0].Accessions[0] = "changed"

	fresh := tr.Active()
	assert.NotEqual(t, "changed", fresh[0].Category)
	assert.Equal(t, "A1", fresh[0].Accessions[0])
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultConfig().MinimumDuration)
	assert.Equal(t, 5*time.Second, New(DefaultConfig()).MinimumDuration())
}
