package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/studyflow/internal/cli"
	"github.com/Veraticus/studyflow/internal/common"
)

func shiftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "List and inspect recorded shifts",
	}

	cmd.AddCommand(shiftsListCmd())
	cmd.AddCommand(shiftsShowCmd())

	return cmd
}

func shiftsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shifts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			shifts, err := store.GetShifts(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to get shifts: %w", err)
			}
			if len(shifts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No shifts recorded yet. Run 'studyflow ingest' to start one."))
				return nil
			}
			return cli.RenderShifts(cmd.OutOrStdout(), shifts)
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of shifts to show (0 for all)")

	return cmd
}

func shiftsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [shift-id]",
		Short: "Show a shift's summary and studies",
		Long:  `Show the summary and completed studies of a shift. Defaults to the open shift.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summaryOnly, _ := cmd.Flags().GetBool("summary")
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var shiftID string
			if len(args) == 1 {
				shiftID = args[0]
			} else {
				current, err := store.CurrentShift(ctx)
				if errors.Is(err, common.ErrNoShift) {
					return common.NewUserError("No open shift; pass a shift ID", err)
				}
				if err != nil {
					return err
				}
				shiftID = current.ID
			}

			summary, err := store.GetShiftSummary(ctx, shiftID)
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("Shift %s not found", shiftID), err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(summary))

			if summaryOnly {
				return nil
			}
			studies, err := store.GetStudiesByShift(ctx, shiftID)
			if err != nil {
				return fmt.Errorf("failed to get studies: %w", err)
			}
			return cli.RenderStudies(cmd.OutOrStdout(), studies)
		},
	}

	cmd.Flags().Bool("summary", false, "Only show the summary")

	return cmd
}
