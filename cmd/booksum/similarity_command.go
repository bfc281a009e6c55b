package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IyadElwy/AiBookSummarizer/internal/similarity"
)

func newSimilarityCommand() *cobra.Command {
	var method string
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "similarity <file> <file> [file...]",
		Short:       "Score how closely several source texts agree",
		Long:        "Computes the cross-reference score the aggregator would assign to the given texts under every similarity method.",
		Args:        cobra.MinimumNArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			texts := make([]string, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				texts = append(texts, string(data))
			}

			breakdown := similarity.BreakdownOf(texts)
			out := cmd.OutOrStdout()

			if strings.TrimSpace(method) != "" {
				m, err := similarity.ParseMethod(method)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, map[string]int{string(m): breakdown.Score(m)})
				}
				fmt.Fprintln(out, breakdown.Score(m))
				return nil
			}
			if asJSON {
				return writeJSON(cmd, breakdown)
			}

			rows := [][]string{
				{string(similarity.Sequence), strconv.Itoa(breakdown.Sequence)},
				{string(similarity.Levenshtein), strconv.Itoa(breakdown.Levenshtein)},
				{string(similarity.Jaccard), strconv.Itoa(breakdown.Jaccard)},
				{string(similarity.Combined), strconv.Itoa(breakdown.Combined)},
			}
			fmt.Fprintln(out, renderTable([]string{"Method", "Score"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "Print only this method's score")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print scores as JSON")
	return cmd
}
