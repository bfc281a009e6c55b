package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IyadElwy/AiBookSummarizer/internal/app"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
)

const jobsPageSize = 5

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		owner    string
		statuses []string
		page     int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1")
			}
			filter := jobs.Filter{
				Owner:  strings.TrimSpace(owner),
				Limit:  jobsPageSize,
				Offset: (page - 1) * jobsPageSize,
			}
			for _, raw := range statuses {
				status, err := jobs.ParseStatus(raw)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, status)
			}

			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				list, err := a.Coordinator.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					if list == nil {
						list = []*jobs.Job{}
					}
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}
				fmt.Fprintln(out, renderJobs(list))
				fmt.Fprintf(out, "Page %d\n", page)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only show jobs for this owner")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show jobs in these statuses")
	cmd.Flags().IntVar(&page, "page", 1, "Page number (5 jobs per page)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func renderJobs(list []*jobs.Job) string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		status := string(job.Status)
		if job.FailureReason != "" {
			status += " (" + job.FailureReason + ")"
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.ISBN,
			job.Owner,
			status,
			job.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"ID", "ISBN", "Owner", "Status", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
