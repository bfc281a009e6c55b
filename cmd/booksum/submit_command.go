package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IyadElwy/AiBookSummarizer/internal/app"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var req pipeline.SubmitRequest
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an ISBN for summarization",
		Example: `  booksum submit --isbn 978-0-13-468599-1
  booksum submit --isbn 0134685997 --language de --model llama3_1_latest__1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				job, err := a.Coordinator.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d submitted for ISBN %s (%s)\n", job.ID, job.ISBN, job.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.ISBN, "isbn", "", "ISBN-10 or ISBN-13 (hyphens allowed)")
	cmd.Flags().StringVar(&req.Language, "language", "en", "Summary language (en, de, fr, es, it)")
	cmd.Flags().StringVar(&req.Model, "model", "mistral_latest__300", "Model id including the character budget")
	cmd.Flags().StringVar(&req.Owner, "owner", os.Getenv("USER"), "Owner recorded on the job")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the created job as JSON")
	_ = cmd.MarkFlagRequired("isbn")
	return cmd
}
