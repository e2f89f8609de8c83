package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/studyflow/internal/classification"
	"github.com/Veraticus/studyflow/internal/model"
)

func TestRenderClassifications(t *testing.T) {
	var buf bytes.Buffer
	texts := []string{"CT HEAD WO", ""}
	results := []classification.Result{
		{Category: "CT Head", Value: 0.85, Tier: classification.TierRule, Matched: "CT Head"},
		classification.Unknown,
	}

	require.NoError(t, RenderClassifications(&buf, texts, results))
	out := buf.String()
	assert.Contains(t, out, "CT HEAD WO")
	assert.Contains(t, out, "0.85")
	assert.Contains(t, out, classification.TierRule.String())
	assert.Contains(t, out, model.UnknownCategory)
}

func TestRenderStudies(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC)
	studies := []model.CompletedStudy{{
		Accession:     "A1",
		ProcedureText: "CT HEAD WO",
		Category:      "CT Head",
		Value:         0.85,
		StartTime:     start,
		EndTime:       start.Add(90 * time.Second),
		Duration:      90*time.Second + 400*time.Millisecond,
	}}

	require.NoError(t, RenderStudies(&buf, studies))
	out := buf.String()
	assert.Contains(t, out, "A1")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "CT HEAD WO")
}

func TestRenderShifts(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)
	end := start.Add(12 * time.Hour)
	shifts := []model.Shift{
		{ID: "open-shift", StartedAt: end},
		{ID: "closed-shift", StartedAt: start, EndedAt: &end},
	}

	require.NoError(t, RenderShifts(&buf, shifts))
	out := buf.String()
	assert.Contains(t, out, "open-shift")
	assert.Contains(t, out, "closed-shift")
	assert.Contains(t, out, "open")
}

func TestRenderSummary(t *testing.T) {
	summary := &model.ShiftSummary{
		Shift:      model.Shift{ID: "shift-1", StartedAt: time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)},
		Studies:    3,
		TotalValue: 2.22,
		Duration:   3*time.Minute + 30*time.Second,
		ByCategory: []model.CategoryTotal{
			{Category: "CT Head", Count: 2, TotalValue: 2.0},
			{Category: "XR Chest", Count: 1, TotalValue: 0.22},
		},
	}

	out := RenderSummary(summary)
	assert.Contains(t, out, "Shift Summary")
	assert.Contains(t, out, "shift-1")
	assert.Contains(t, out, "2.22")
	assert.Contains(t, out, "3m30s")
	assert.Contains(t, out, "XR Chest")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		want string
		in   time.Duration
	}{
		{name: "zero", in: 0, want: "0s"},
		{name: "rounds down", in: 5*time.Second + 400*time.Millisecond, want: "5s"},
		{name: "rounds up", in: 59*time.Second + 600*time.Millisecond, want: "1m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestTierStyle(t *testing.T) {
	tests := []struct {
		tier classification.Tier
		want lipgloss.Style
	}{
		{tier: classification.TierRule, want: lipgloss.NewStyle()},
		{tier: classification.TierExact, want: lipgloss.NewStyle()},
		{tier: classification.TierKeyword, want: SubtleStyle},
		{tier: classification.TierPartial, want: SubtleStyle},
		{tier: classification.TierFallback, want: WarningStyle},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			assert.Equal(t, tt.want.GetForeground(), TierStyle(tt.tier).GetForeground())
		})
	}
}
