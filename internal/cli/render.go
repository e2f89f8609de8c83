package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/studyflow/internal/classification"
	"github.com/Veraticus/studyflow/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// RenderClassifications writes one row per classified text.
func RenderClassifications(w io.Writer, texts []string, results []classification.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeHeader(tw, "Text", "Category", "Value", "Tier", "Matched")

	for i, result := range results {
		matched := result.Matched
		if matched == "" {
			matched = SubtleStyle.Render("-")
		}
		category := result.Category
		if category == model.UnknownCategory {
			category = WarningStyle.Render(category)
		}
		tier := TierStyle(result.Tier).Render(result.Tier.String())
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", texts[i], category, result.Value, tier, matched)
	}
	return tw.Flush()
}

// RenderStudies writes a table of completed studies.
func RenderStudies(w io.Writer, studies []model.CompletedStudy) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeHeader(tw, "Start", "Accession", "Category", "Value", "Duration", "Procedure")

	for _, s := range studies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			s.StartTime.Local().Format(timeLayout),
			s.Accession,
			s.Category,
			s.Value,
			FormatDuration(s.Duration),
			s.ProcedureText)
	}
	return tw.Flush()
}

// RenderShifts writes a table of shifts.
func RenderShifts(w io.Writer, shifts []model.Shift) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeHeader(tw, "ID", "Started", "Ended")

	for _, s := range shifts {
		ended := SuccessStyle.Render("open")
		if s.EndedAt != nil {
			ended = s.EndedAt.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.StartedAt.Local().Format(timeLayout), ended)
	}
	return tw.Flush()
}

// RenderSummary renders a shift summary box.
func RenderSummary(summary *model.ShiftSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shift:    %s\n", summary.Shift.ID)
	fmt.Fprintf(&b, "Started:  %s\n", summary.Shift.StartedAt.Local().Format(timeLayout))
	fmt.Fprintf(&b, "Studies:  %d\n", summary.Studies)
	fmt.Fprintf(&b, "Value:    %s\n", BoldStyle.Render(fmt.Sprintf("%.2f", summary.TotalValue)))
	fmt.Fprintf(&b, "Reading:  %s\n", FormatDuration(summary.Duration))

	if len(summary.ByCategory) > 0 {
		b.WriteString("\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		writeHeader(tw, "Category", "Count", "Value")
		for _, c := range summary.ByCategory {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\n", c.Category, c.Count, c.TotalValue)
		}
		_ = tw.Flush()
	}

	return RenderBox(ChartIcon+" Shift Summary", strings.TrimRight(b.String(), "\n"))
}

// FormatDuration renders a duration rounded to the second.
func FormatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}

func writeHeader(w io.Writer, columns ...string) {
	headers := make([]string, len(columns))
	rules := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = TableHeaderStyle.Render(c)
		rules[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	fmt.Fprintln(w, strings.Join(rules, "\t"))
}
