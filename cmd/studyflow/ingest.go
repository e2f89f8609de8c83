package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/studyflow/internal/cli"
	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/config"
	"github.com/Veraticus/studyflow/internal/ingest"
	"github.com/Veraticus/studyflow/internal/rules"
	"github.com/Veraticus/studyflow/internal/tracker"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Track studies from a live feed",
		Long: `Read visibility ticks (JSON lines) from stdin or a file and record each study
once it is finished.

The rules file is reloaded when it changes, and the shift rolls over on the
configured cron schedule (shift.rollover). Press Ctrl+C to stop; studies already
completed are saved.`,
		Example: `  screen-poller | studyflow ingest
  studyflow ingest --feed /var/log/poller/today.jsonl --no-watch`,
		RunE: runIngest,
	}

	cmd.Flags().String("feed", "-", "Feed file to read, or - for stdin")
	cmd.Flags().Bool("no-watch", false, "Do not reload the rules file when it changes")
	cmd.Flags().Bool("no-rollover", false, "Do not roll shifts over on a schedule")

	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	feedPath, _ := cmd.Flags().GetString("feed")
	noWatch, _ := cmd.Flags().GetBool("no-watch")
	noRollover, _ := cmd.Flags().GetBool("no-rollover")

	cfg, err := config.LoadIngestConfig()
	if err != nil {
		return common.NewUserError("Invalid configuration", err)
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), true)

	rs, err := loadRules(cfg.RulesPath, false)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	trk := tracker.New(cfg.Tracker)
	pipeline := ingest.NewPipeline(store, trk, rs, ingest.WithDedup(cfg.Dedup))
	shift, err := pipeline.Start(ctx)
	if err != nil {
		return err
	}

	if cfg.WatchRules && !noWatch {
		watcher, err := rules.NewWatcher(cfg.RulesPath, pipeline.SetRules)
		if err != nil {
			return fmt.Errorf("failed to watch rules: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch rules: %w", err)
		}
		defer watcher.Stop()
	}

	if cfg.Rollover != "" && !noRollover {
		scheduler, err := ingest.NewShiftScheduler(pipeline, cfg.Rollover, slog.Default())
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	feed, closeFeed, err := openFeed(cmd, feedPath)
	if err != nil {
		return err
	}
	defer closeFeed()

	slog.Info("Ingesting feed",
		"feed", feedPath,
		"shift_id", shift.ID,
		"rules_version", rs.Version,
		"minimum_duration", cfg.Tracker.MinimumDuration)

	runErr := pipeline.Run(ctx, feed)
	if runErr != nil && !(errors.Is(runErr, context.Canceled) && handler.WasInterrupted()) {
		return fmt.Errorf("ingest failed: %w", runErr)
	}

	stats := pipeline.Stats()
	slog.Info("Ingest finished",
		"ticks", stats.Ticks,
		"completed", stats.Completed,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"ignored", stats.Ignored,
		"bad_lines", stats.BadLines)

	summary, err := store.GetShiftSummary(context.WithoutCancel(ctx), pipeline.Shift().ID)
	if err != nil {
		return fmt.Errorf("failed to summarize shift: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(summary))
	return nil
}

func openFeed(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, common.NewUserError(fmt.Sprintf("Could not open feed %s", path), err)
	}
	return f, func() { _ = f.Close() }, nil
}
