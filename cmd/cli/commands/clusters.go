package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/services"
)

func init() {
	clustersCmd.AddCommand(createClusterCmd)
	clustersCmd.AddCommand(listClustersCmd)
	clustersCmd.AddCommand(getClusterCmd)
	clustersCmd.AddCommand(deleteClusterCmd)
	clustersCmd.AddCommand(resizeClusterCmd)
	clustersCmd.AddCommand(pauseClusterCmd)
	clustersCmd.AddCommand(resumeClusterCmd)
	clustersCmd.AddCommand(backupClusterCmd)
	clustersCmd.AddCommand(restoreBackupCmd)
	clustersCmd.AddCommand(clusterEventsCmd)

	createClusterCmd.Flags().StringP("name", "n", "", "Cluster name")
	createClusterCmd.Flags().Uint("org-id", 0, "Organization ID")
	createClusterCmd.Flags().Uint("project-id", 0, "Project ID")
	createClusterCmd.Flags().String("project-slug", "", "Project slug used for namespace naming")
	createClusterCmd.Flags().StringP("plan", "p", string(models.PlanDev), "Plan tier (dev, small, medium, large, xlarge)")
	createClusterCmd.Flags().String("contact-email", "", "Email notified when the cluster is ready")
	_ = createClusterCmd.MarkFlagRequired("name")
	_ = createClusterCmd.MarkFlagRequired("org-id")
	_ = createClusterCmd.MarkFlagRequired("project-id")
	_ = createClusterCmd.MarkFlagRequired("project-slug")

	listClustersCmd.Flags().Uint("project-id", 0, "Filter by project ID")
	listClustersCmd.Flags().IntP("limit", "l", 0, "Limit the number of clusters returned")

	getClusterCmd.Flags().UintP("id", "i", 0, "Cluster ID to fetch")
	_ = getClusterCmd.MarkFlagRequired("id")

	deleteClusterCmd.Flags().UintP("id", "i", 0, "Cluster ID to delete")
	_ = deleteClusterCmd.MarkFlagRequired("id")

	resizeClusterCmd.Flags().UintP("id", "i", 0, "Cluster ID to resize")
	resizeClusterCmd.Flags().StringP("plan", "p", "", "Target plan tier")
	_ = resizeClusterCmd.MarkFlagRequired("id")
	_ = resizeClusterCmd.MarkFlagRequired("plan")

	pauseClusterCmd.Flags().UintP("id", "i", 0, "Cluster ID to pause")
	pauseClusterCmd.Flags().StringP("reason", "r", "", "Reason recorded on the timeline")
	_ = pauseClusterCmd.MarkFlagRequired("id")

	resumeClusterCmd.Flags().UintP("id", "i", 0, "Cluster ID to resume")
	resumeClusterCmd.Flags().StringP("reason", "r", "", "Reason recorded on the timeline")
	_ = resumeClusterCmd.MarkFlagRequired("id")

	backupClusterCmd.Flags().UintP("id", "i", 0, "Cluster ID to back up")
	_ = backupClusterCmd.MarkFlagRequired("id")

	restoreBackupCmd.Flags().UintP("backup-id", "b", 0, "Backup ID to restore")
	_ = restoreBackupCmd.MarkFlagRequired("backup-id")

	clusterEventsCmd.Flags().UintP("id", "i", 0, "Cluster ID")
	clusterEventsCmd.Flags().IntP("limit", "l", 0, "Limit the number of events returned")
	_ = clusterEventsCmd.MarkFlagRequired("id")
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Manage database clusters",
}

// printJSON pretty prints any API response
func printJSON(v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Println(string(prettyJSON))
	return nil
}

var createClusterCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a new cluster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("name")
		orgID, _ := cmd.Flags().GetUint("org-id")
		projectID, _ := cmd.Flags().GetUint("project-id")
		projectSlug, _ := cmd.Flags().GetString("project-slug")
		plan, _ := cmd.Flags().GetString("plan")
		email, _ := cmd.Flags().GetString("contact-email")

		tier, err := models.ParsePlanTier(plan)
		if err != nil {
			return err
		}

		response, err := apiClient.CreateCluster(context.Background(), services.CreateClusterRequest{
			Name:         name,
			OrgID:        orgID,
			ProjectID:    projectID,
			ProjectSlug:  projectSlug,
			Plan:         tier,
			ContactEmail: email,
		})
		if err != nil {
			return fmt.Errorf("error creating cluster: %w", err)
		}
		return printJSON(response)
	},
}

var listClustersCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		projectID, _ := cmd.Flags().GetUint("project-id")
		limit, _ := cmd.Flags().GetInt("limit")

		opts := &models.ListOptions{Limit: limit}
		clusters, err := apiClient.ListClusters(context.Background(), projectID, opts)
		if err != nil {
			return fmt.Errorf("error fetching clusters: %w", err)
		}
		return printJSON(clusters)
	},
}

var getClusterCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific cluster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")

		cluster, err := apiClient.GetCluster(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error fetching cluster: %w", err)
		}
		return printJSON(cluster)
	},
}

var deleteClusterCmd = &cobra.Command{
	Use:   "delete",
	Short: "Tear a cluster down",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")

		job, err := apiClient.DeleteCluster(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error deleting cluster: %w", err)
		}
		return printJSON(job)
	},
}

var resizeClusterCmd = &cobra.Command{
	Use:   "resize",
	Short: "Move a cluster to another plan tier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")
		plan, _ := cmd.Flags().GetString("plan")

		tier, err := models.ParsePlanTier(plan)
		if err != nil {
			return err
		}

		job, err := apiClient.ResizeCluster(context.Background(), id, tier)
		if err != nil {
			return fmt.Errorf("error resizing cluster: %w", err)
		}
		return printJSON(job)
	},
}

var pauseClusterCmd = &cobra.Command{
	Use:   "pause",
	Short: "Scale a cluster down to zero",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")
		reason, _ := cmd.Flags().GetString("reason")

		job, err := apiClient.PauseCluster(context.Background(), id, reason)
		if err != nil {
			return fmt.Errorf("error pausing cluster: %w", err)
		}
		return printJSON(job)
	},
}

var resumeClusterCmd = &cobra.Command{
	Use:   "resume",
	Short: "Scale a paused cluster back up",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")
		reason, _ := cmd.Flags().GetString("reason")

		job, err := apiClient.ResumeCluster(context.Background(), id, reason)
		if err != nil {
			return fmt.Errorf("error resuming cluster: %w", err)
		}
		return printJSON(job)
	},
}

var backupClusterCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back a cluster up",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")

		response, err := apiClient.BackupCluster(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error backing up cluster: %w", err)
		}
		return printJSON(response)
	},
}

var restoreBackupCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a backup into its cluster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		backupID, _ := cmd.Flags().GetUint("backup-id")

		job, err := apiClient.RestoreBackup(context.Background(), backupID)
		if err != nil {
			return fmt.Errorf("error restoring backup: %w", err)
		}
		return printJSON(job)
	},
}

var clusterEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the timeline of a cluster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetUint("id")
		limit, _ := cmd.Flags().GetInt("limit")

		events, err := apiClient.ClusterEvents(context.Background(), id, &models.ListOptions{Limit: limit})
		if err != nil {
			return fmt.Errorf("error fetching events: %w", err)
		}
		return printJSON(events)
	},
}

// GetClustersCmd returns the clusters command
func GetClustersCmd() *cobra.Command {
	return clustersCmd
}
