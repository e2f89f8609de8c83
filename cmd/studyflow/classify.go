package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/studyflow/internal/classification"
	"github.com/Veraticus/studyflow/internal/cli"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify procedure descriptions",
		Long: `Classify one or more procedure descriptions with the configured rules file.

Each argument is classified separately. With no arguments, descriptions are read
from stdin, one per line.`,
		Example: `  studyflow classify "CT HEAD WO CONTRAST" "XR CHEST 2 VIEWS"
  cat procedures.txt | studyflow classify --json`,
		RunE: runClassify,
	}

	cmd.Flags().Bool("json", false, "Write one JSON object per description")

	return cmd
}

type classifyOutput struct {
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Matched  string  `json:"matched,omitempty"`
	Tier     string  `json:"tier"`
	Value    float64 `json:"value"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	path, err := rulesPath()
	if err != nil {
		return err
	}
	rs, err := loadRules(path, !cmd.Flags().Changed("rules"))
	if err != nil {
		return err
	}

	texts := args
	if len(texts) == 0 {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				texts = append(texts, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read descriptions: %w", err)
		}
	}
	if len(texts) == 0 {
		fmt.Fprintln(os.Stderr, cli.FormatWarning("Nothing to classify."))
		return nil
	}

	results := classification.NewClassifier(rs).ClassifyAll(texts)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for i, result := range results {
			out := classifyOutput{
				Text:     texts[i],
				Category: result.Category,
				Matched:  result.Matched,
				Tier:     result.Tier.String(),
				Value:    result.Value,
			}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
		}
		return nil
	}

	return cli.RenderClassifications(cmd.OutOrStdout(), texts, results)
}
