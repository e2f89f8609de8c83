package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/studyflow/internal/cli"
	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect classification rules files",
	}

	cmd.AddCommand(rulesCheckCmd())

	return cmd
}

func rulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a rules file",
		Long: `Parse and validate a rules file without using it.

Defaults to the configured rules file when no path is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if path, err = rulesPath(); err != nil {
					return err
				}
			}

			rs, err := rules.LoadFile(path)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%s is not a valid rules file", path), err)
			}

			content := fmt.Sprintf(
				"Version:         %s\nDirect lookups:  %d\nCategories:      %d\nRules:           %d\nValued:          %d",
				rs.Version,
				len(rs.DirectLookups()),
				len(rs.Rules()),
				rs.RuleCount(),
				len(rs.Values()),
			)
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(path+" is valid"))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Rules", content))
			return nil
		},
	}
}
