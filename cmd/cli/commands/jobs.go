package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

func init() {
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(getJobCmd)
	jobsCmd.AddCommand(jobStatsCmd)
	jobsCmd.AddCommand(cancelJobCmd)
	jobsCmd.AddCommand(retryJobCmd)

	listJobsCmd.Flags().IntP("limit", "l", 0, "Limit the number of jobs returned")
	listJobsCmd.Flags().StringP("status", "t", "", "Filter jobs by status")

	getJobCmd.Flags().UintP("id", "i", 0, "Job ID to fetch")
	_ = getJobCmd.MarkFlagRequired("id")

	cancelJobCmd.Flags().UintP("id", "i", 0, "Job ID to cancel")
	_ = cancelJobCmd.MarkFlagRequired("id")

	retryJobCmd.Flags().UintP("id", "i", 0, "Job ID to retry")
	_ = retryJobCmd.MarkFlagRequired("id")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage cluster operation jobs",
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")

		jobs, err := apiClient.ListJobs(context.Background(), models.JobStatus(status), &models.ListOptions{Limit: limit})
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}
		return printJSON(jobs)
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")

		job, err := apiClient.GetJob(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error fetching job: %w", err)
		}
		return printJSON(job)
	},
}

var jobStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-status job counts",
	RunE: func(_ *cobra.Command, _ []string) error {
		stats, err := apiClient.JobStats(context.Background())
		if err != nil {
			return fmt.Errorf("error fetching job stats: %w", err)
		}
		return printJSON(stats)
	},
}

var cancelJobCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a pending or running job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")

		job, err := apiClient.CancelJob(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error canceling job: %w", err)
		}
		return printJSON(job)
	},
}

var retryJobCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reset a failed or canceled job to pending",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")

		job, err := apiClient.RetryJob(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error retrying job: %w", err)
		}
		return printJSON(job)
	},
}

// GetJobsCmd returns the jobs command
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}
