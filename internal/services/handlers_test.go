package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/orchestrator"
)

type HandlersTestSuite struct {
	ServicesTestSuite
}

func (s *HandlersTestSuite) createBackup(clusterID uint) *models.Backup {
	backup := &models.Backup{ClusterID: clusterID}
	s.Require().NoError(s.backupRepo.Create(s.ctx, backup))
	return backup
}

func (s *HandlersTestSuite) TestCreateClusterSingleNode() {
	cluster := s.createCluster(models.PlanDev)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)

	result, err := s.handlers.handleCreateCluster(s.ctx, job)
	s.Require().NoError(err)
	s.NotEmpty(result.String("host"))
	s.Empty(result.String("replica_set"))

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusReady, updated.Status)
	s.Equal(orchestrator.MongoPort, updated.Port)
	s.Contains(updated.URI, "mongodb://")
}

func (s *HandlersTestSuite) TestCreateClusterOperatorManaged() {
	cluster := s.createCluster(models.PlanLarge)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)

	result, err := s.handlers.handleCreateCluster(s.ctx, job)
	s.Require().NoError(err)
	s.NotEmpty(result.String("replica_set"))
}

func (s *HandlersTestSuite) TestResizeUpdatesPlan() {
	cluster := s.createCluster(models.PlanMedium)
	job := s.enqueueJob(models.JobTypeResizeCluster, cluster, models.JSONMap{"plan": "LARGE"})

	result, err := s.handlers.handleResizeCluster(s.ctx, job)
	s.Require().NoError(err)
	s.Equal("MEDIUM", result.String("old_plan"))
	s.Equal("LARGE", result.String("new_plan"))

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.PlanLarge, updated.Plan)
	s.Equal(models.ClusterStatusReady, updated.Status)

	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventClusterResized, events[0].Type)
}

func (s *HandlersTestSuite) TestResizeRejectsUnknownPlan() {
	cluster := s.createCluster(models.PlanMedium)
	job := s.enqueueJob(models.JobTypeResizeCluster, cluster, models.JSONMap{"plan": "PLATINUM"})

	_, err := s.handlers.handleResizeCluster(s.ctx, job)
	s.Error(err)

	updated, _ := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Equal(models.PlanMedium, updated.Plan)
}

func (s *HandlersTestSuite) TestResizeAcrossStrategyBoundary() {
	cluster := s.createCluster(models.PlanDev)
	job := s.enqueueJob(models.JobTypeResizeCluster, cluster, models.JSONMap{"plan": "MEDIUM"})

	_, err := s.handlers.handleResizeCluster(s.ctx, job)
	s.ErrorIs(err, orchestrator.ErrUnsupportedResize)
}

func (s *HandlersTestSuite) TestDeleteRemovesClusterRecord() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeDeleteCluster, cluster, nil)

	result, err := s.handlers.handleDeleteCluster(s.ctx, job)
	s.Require().NoError(err)
	s.Equal(true, result["deleted"])
	s.Equal(1, s.orch.deleteCalls)

	_, err = s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Error(err)

	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventClusterDeleted, events[0].Type)
}

func (s *HandlersTestSuite) TestDeleteToleratesMissingResources() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeDeleteCluster, cluster, nil)
	s.orch.deleteErr = orchestrator.ErrNotFound

	_, err := s.handlers.handleDeleteCluster(s.ctx, job)
	s.Require().NoError(err)

	_, err = s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Error(err)
}

func (s *HandlersTestSuite) TestDeleteKeepsRecordOnOrchestrationError() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeDeleteCluster, cluster, nil)
	s.orch.deleteErr = errors.New("namespace stuck terminating")

	_, err := s.handlers.handleDeleteCluster(s.ctx, job)
	s.Error(err)

	_, err = s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.NoError(err)
}

func (s *HandlersTestSuite) TestPauseRecordsReason() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypePauseCluster, cluster, models.JSONMap{"reason": "weekend shutdown"})

	_, err := s.handlers.handlePauseCluster(s.ctx, job)
	s.Require().NoError(err)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.True(updated.Paused)
	s.Equal(models.ClusterStatusPaused, updated.Status)
	s.NotNil(updated.PausedAt)

	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventClusterPaused, events[0].Type)
	s.Equal("weekend shutdown", events[0].Metadata.String("reason"))
}

func (s *HandlersTestSuite) TestResumeDefaultsToLowestTier() {
	cluster := s.createCluster(models.PlanSmall)
	s.Require().NoError(s.clusterRepo.MarkPaused(s.ctx, cluster.ID))
	job := s.enqueueJob(models.JobTypeResumeCluster, cluster, nil)

	result, err := s.handlers.handleResumeCluster(s.ctx, job)
	s.Require().NoError(err)
	s.Equal(string(models.LowestTier), result.String("plan"))

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.False(updated.Paused)
	s.Equal(models.ClusterStatusReady, updated.Status)
}

func (s *HandlersTestSuite) TestResumeWithExplicitPlan() {
	cluster := s.createCluster(models.PlanSmall)
	s.Require().NoError(s.clusterRepo.MarkPaused(s.ctx, cluster.ID))
	job := s.enqueueJob(models.JobTypeResumeCluster, cluster, models.JSONMap{"plan": "SMALL"})

	result, err := s.handlers.handleResumeCluster(s.ctx, job)
	s.Require().NoError(err)
	s.Equal("SMALL", result.String("plan"))
}

func (s *HandlersTestSuite) TestBackupRequiresBackupID() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeBackupCluster, cluster, nil)

	_, err := s.handlers.handleBackupCluster(s.ctx, job)
	s.ErrorContains(err, "backup_id")
	s.Zero(s.orch.backupCalls)
}

func (s *HandlersTestSuite) TestBackupCompletesWithStats() {
	cluster := s.createCluster(models.PlanSmall)
	backup := s.createBackup(cluster.ID)
	job := s.enqueueJob(models.JobTypeBackupCluster, cluster, models.JSONMap{"backup_id": backup.ID})

	result, err := s.handlers.handleBackupCluster(s.ctx, job)
	s.Require().NoError(err)
	s.Equal(1, s.orch.backupCalls)
	s.Positive(result["size_bytes"])

	updated, err := s.backupRepo.GetByID(s.ctx, backup.ID)
	s.Require().NoError(err)
	s.Equal(models.BackupStatusCompleted, updated.Status)
	s.NotNil(updated.StartedAt)
	s.NotNil(updated.CompletedAt)
	s.Positive(updated.SizeBytes)
	s.Greater(updated.SizeBytes, updated.CompressedBytes)
	s.Contains(updated.StoragePath, backup.Slug)
}

func (s *HandlersTestSuite) TestBackupFailureLeavesBackupRunning() {
	cluster := s.createCluster(models.PlanSmall)
	backup := s.createBackup(cluster.ID)
	job := s.enqueueJob(models.JobTypeBackupCluster, cluster, models.JSONMap{"backup_id": backup.ID})
	s.orch.backupErr = errors.New("volume mount failed")

	_, err := s.handlers.handleBackupCluster(s.ctx, job)
	s.Error(err)

	updated, err := s.backupRepo.GetByID(s.ctx, backup.ID)
	s.Require().NoError(err)
	s.Equal(models.BackupStatusRunning, updated.Status)
}

func (s *HandlersTestSuite) TestRestoreMarksBackupRestored() {
	cluster := s.createCluster(models.PlanSmall)
	backup := s.createBackup(cluster.ID)
	s.Require().NoError(s.backupRepo.Complete(s.ctx, backup.ID, models.BackupStats{SizeBytes: 1024}))
	job := s.enqueueJob(models.JobTypeRestoreCluster, cluster, models.JSONMap{"backup_id": backup.ID})

	result, err := s.handlers.handleRestoreCluster(s.ctx, job)
	s.Require().NoError(err)
	s.Equal(true, result["restored"])
	s.Equal(1, s.orch.restoreCalls)

	updated, err := s.backupRepo.GetByID(s.ctx, backup.ID)
	s.Require().NoError(err)
	s.Equal(models.BackupStatusRestored, updated.Status)
	s.NotNil(updated.RestoreCompletedAt)

	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventBackupRestoreCompleted, events[0].Type)
	s.Equal(backup.ID, events[0].Metadata.Uint("backup_id"))
}

func (s *HandlersTestSuite) TestSyncStatusFlipsProvisioningToReady() {
	cluster := s.createCluster(models.PlanSmall)
	s.Require().Equal(models.ClusterStatusProvisioning, cluster.Status)
	job := s.enqueueJob(models.JobTypeSyncStatus, cluster, nil)

	result, err := s.handlers.handleSyncStatus(s.ctx, job)
	s.Require().NoError(err)
	s.Equal(true, result["ready"])

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusReady, updated.Status)
}

func (s *HandlersTestSuite) TestSyncStatusLeavesPausedClusterAlone() {
	cluster := s.createCluster(models.PlanSmall)
	s.Require().NoError(s.clusterRepo.MarkPaused(s.ctx, cluster.ID))
	job := s.enqueueJob(models.JobTypeSyncStatus, cluster, nil)

	_, err := s.handlers.handleSyncStatus(s.ctx, job)
	s.Require().NoError(err)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusPaused, updated.Status)
	s.True(updated.Paused)
}

func (s *HandlersTestSuite) TestSyncStatusReportsUnreadyWithoutFlip() {
	cluster := s.createCluster(models.PlanSmall)
	s.orch.status = &orchestrator.Status{Phase: "Pending", Ready: false, Replicas: 1, ReadyReplicas: 0}
	job := s.enqueueJob(models.JobTypeSyncStatus, cluster, nil)

	result, err := s.handlers.handleSyncStatus(s.ctx, job)
	s.Require().NoError(err)
	s.Equal(false, result["ready"])

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusProvisioning, updated.Status)
}

func (s *HandlersTestSuite) TestSynthesizeBackupStatsIsStable() {
	cluster := s.createCluster(models.PlanSmall)
	backup := s.createBackup(cluster.ID)

	first := synthesizeBackupStats(cluster, backup)
	second := synthesizeBackupStats(cluster, backup)
	s.Equal(first, second)
	s.Positive(first.SizeBytes)
	s.Equal(first.SizeBytes/4, first.CompressedBytes)
	s.Equal(orchestrator.BackupArchivePath(cluster.Slug, backup.Slug), first.StoragePath)
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
