package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/studyflow/internal/cli"
	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/config"
	"github.com/Veraticus/studyflow/internal/ingest"
	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/service"
	"github.com/Veraticus/studyflow/internal/tracker"
)

func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <feed-file>",
		Short: "Replay a recorded feed into a new shift",
		Long: `Process a recorded feed file as if it were live. A new shift is opened at
the time of the first tick, and all timing comes from the feed itself.

With --dry-run the studies are recorded in a throwaway in-memory database and
printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}

	cmd.Flags().Bool("dry-run", false, "Print the completed studies without saving them")
	cmd.Flags().Bool("no-progress", false, "Hide the progress bar")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	ctx := cmd.Context()

	cfg, err := config.LoadIngestConfig()
	if err != nil {
		return common.NewUserError("Invalid configuration", err)
	}

	rs, err := loadRules(cfg.RulesPath, !cmd.Flags().Changed("rules"))
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not open feed %s", args[0]), err)
	}
	defer func() { _ = f.Close() }()

	start, err := firstTickTime(f)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Feed %s has no valid ticks", args[0]), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind feed: %w", err)
	}

	dbPath := cfg.DatabasePath
	if dryRun {
		dbPath = ":memory:"
	}
	store, err := openStorage(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var completed []model.CompletedStudy
	pipeline := ingest.NewPipeline(store, tracker.New(cfg.Tracker), rs,
		ingest.WithDedup(cfg.Dedup),
		ingest.OnCompletion(func(study model.CompletedStudy, _ service.SaveOutcome) {
			completed = append(completed, study)
		}),
	)
	// Open the replay's own shift so Start resumes it rather than the live one.
	if _, err := store.StartShift(ctx, start); err != nil {
		return fmt.Errorf("failed to start shift: %w", err)
	}
	shift, err := pipeline.Start(ctx)
	if err != nil {
		return err
	}

	var feed io.Reader = f
	if !noProgress {
		bar := newReplayBar(cmd, fileSize(f))
		feed = io.TeeReader(f, bar)
		defer func() { _ = bar.Finish() }()
	}

	if err := pipeline.Run(ctx, feed); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	stats := pipeline.Stats()
	slog.Info("Replay finished",
		"shift_id", shift.ID,
		"ticks", stats.Ticks,
		"completed", stats.Completed,
		"bad_lines", stats.BadLines)

	if dryRun {
		return cli.RenderStudies(cmd.OutOrStdout(), completed)
	}

	summary, err := store.GetShiftSummary(ctx, shift.ID)
	if err != nil {
		return fmt.Errorf("failed to summarize shift: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(summary))
	return nil
}

// firstTickTime returns the observation time of the first well-formed tick.
func firstTickTime(r io.Reader) (time.Time, error) {
	dec := ingest.NewDecoder(r)
	for {
		tick, err := dec.Next()
		if ingest.IsInvalidLine(err) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return time.Time{}, common.ErrInvalidFeed
		}
		if err != nil {
			return time.Time{}, err
		}
		return tick.ObservedAt, nil
	}
}

func newReplayBar(cmd *cobra.Command, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Replaying feed...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)
}
