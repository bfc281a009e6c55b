package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IyadElwy/AiBookSummarizer/internal/app"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job and, once completed, its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				view, err := a.Coordinator.Status(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeFormatted(cmd, format, view, func() string { return renderStatus(view) })
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, or yaml")
	return cmd
}

func renderStatus(view *pipeline.StatusView) string {
	job := view.Job
	fields := [][2]string{
		{"ID", strconv.FormatInt(job.ID, 10)},
		{"ISBN", job.ISBN},
		{"Owner", job.Owner},
		{"Status", string(job.Status)},
	}
	if job.FailureReason != "" {
		fields = append(fields, [2]string{"Failure", job.FailureReason})
	}
	fields = append(fields,
		[2]string{"Created", job.CreatedAt.Local().Format(time.DateTime)},
		[2]string{"Updated", job.UpdatedAt.Local().Format(time.DateTime)},
	)

	if doc := view.Document; doc != nil {
		sources := make([]string, 0, len(doc.Sources))
		for _, s := range doc.Sources {
			sources = append(sources, fmt.Sprintf("%s (%d)", s.Type, s.Reliability))
		}
		fields = append(fields,
			[2]string{"Title", doc.Title},
			[2]string{"Authors", strings.Join(doc.Authors, ", ")},
			[2]string{"Language", doc.Language},
			[2]string{"Model", doc.Model},
			[2]string{"Sources", strings.Join(sources, ", ")},
			[2]string{"Confidence", fmt.Sprintf("%d (reliability %d, coverage %d, cross-reference %d)",
				doc.CompositeConfidence, doc.SourceReliability, doc.ContentCoverage, doc.CrossReference)},
			[2]string{"Summary", doc.GeneratedSummary},
		)
	}
	return renderFields(fields)
}
