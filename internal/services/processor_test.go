package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

type ProcessorTestSuite struct {
	ServicesTestSuite
}

func (s *ProcessorTestSuite) getJob(id uint) *models.Job {
	job, err := s.jobRepo.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(job)
	return job
}

func (s *ProcessorTestSuite) TestNewProcessorDefaults() {
	processor, err := NewProcessor(s.jobRepo, s.clusterRepo, s.eventRepo, s.handlers, ProcessorOptions{})
	s.Require().NoError(err)
	s.Equal(DefaultPollInterval, processor.interval)
	s.Equal(DefaultBatchSize, processor.batchSize)
}

func (s *ProcessorTestSuite) TestDispatchTableCoversEveryJobType() {
	table := s.handlers.Table()
	for _, jobType := range models.AllJobTypes {
		s.Contains(table, jobType)
	}
}

func (s *ProcessorTestSuite) TestTickCompletesCreateJob() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)

	s.newProcessor().Tick(s.ctx)

	processed := s.getJob(job.ID)
	s.Equal(models.JobStatusSuccess, processed.Status)
	s.Equal(1, processed.Attempts)
	s.NotEmpty(processed.Result.String("host"))
	s.NotNil(processed.CompletedAt)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusReady, updated.Status)
	s.NotEmpty(updated.Host)

	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventClusterReady, events[0].Type)
	s.Equal(models.SeverityInfo, events[0].Severity)

	// No contact email on the cluster, so no notification goes out
	s.Empty(s.notifier.calls)
}

func (s *ProcessorTestSuite) TestTickNotifiesContact() {
	cluster := s.createCluster(models.PlanSmall)
	s.Require().NoError(s.db.Model(cluster).Update("contact_email", "owner@example.com").Error)
	s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)

	s.newProcessor().Tick(s.ctx)

	s.Equal([]string{"owner@example.com"}, s.notifier.calls)
}

func (s *ProcessorTestSuite) TestNotificationFailureDoesNotFailJob() {
	cluster := s.createCluster(models.PlanSmall)
	s.Require().NoError(s.db.Model(cluster).Update("contact_email", "owner@example.com").Error)
	s.notifier.sendErr = errors.New("smtp relay down")
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)

	s.newProcessor().Tick(s.ctx)

	s.Equal(models.JobStatusSuccess, s.getJob(job.ID).Status)
}

func (s *ProcessorTestSuite) TestTickSkippedWhileDraining() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)

	processor := s.newProcessor()
	s.Require().True(processor.beginDrain())

	processor.Tick(s.ctx)
	s.Equal(models.JobStatusPending, s.getJob(job.ID).Status)

	processor.endDrain()
	processor.Tick(s.ctx)
	s.Equal(models.JobStatusSuccess, s.getJob(job.ID).Status)
}

func (s *ProcessorTestSuite) TestTickRespectsBatchSize() {
	cluster := s.createCluster(models.PlanSmall)
	first := s.enqueueJob(models.JobTypeSyncStatus, cluster, nil)
	second := s.enqueueJob(models.JobTypeSyncStatus, cluster, nil)
	third := s.enqueueJob(models.JobTypeSyncStatus, cluster, nil)

	processor, err := NewProcessor(s.jobRepo, s.clusterRepo, s.eventRepo, s.handlers, ProcessorOptions{BatchSize: 2})
	s.Require().NoError(err)
	processor.Tick(s.ctx)

	s.Equal(models.JobStatusSuccess, s.getJob(first.ID).Status)
	s.Equal(models.JobStatusSuccess, s.getJob(second.ID).Status)
	s.Equal(models.JobStatusPending, s.getJob(third.ID).Status)
}

func (s *ProcessorTestSuite) TestFailedAttemptReturnsJobToPending() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)
	s.orch.createErr = errors.New("apiserver unavailable")

	s.newProcessor().Tick(s.ctx)

	failed := s.getJob(job.ID)
	s.Equal(models.JobStatusPending, failed.Status)
	s.Equal(1, failed.Attempts)
	s.Contains(failed.LastError, "apiserver unavailable")

	// The cluster is only surfaced as failed once the budget is gone
	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.NotEqual(models.ClusterStatusFailed, updated.Status)
	s.Empty(s.clusterEvents(cluster.ID))
}

func (s *ProcessorTestSuite) TestExhaustedBudgetFailsClusterOnce() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)
	s.orch.createErr = errors.New("apiserver unavailable")

	processor := s.newProcessor()
	for i := 0; i < job.MaxAttempts; i++ {
		processor.Tick(s.ctx)
	}

	failed := s.getJob(job.ID)
	s.Equal(models.JobStatusFailed, failed.Status)
	s.Equal(job.MaxAttempts, failed.Attempts)
	s.NotNil(failed.CompletedAt)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusFailed, updated.Status)

	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventClusterOperationFailed, events[0].Type)
	s.Equal(models.SeverityError, events[0].Severity)
	s.Contains(events[0].Message, "create_cluster failed after 3 attempts")

	// A further tick finds nothing to do
	processor.Tick(s.ctx)
	s.Len(s.clusterEvents(cluster.ID), 1)
}

func (s *ProcessorTestSuite) TestProcessJobSkipsNonPending() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)
	_, err := s.jobRepo.Cancel(s.ctx, job.ID)
	s.Require().NoError(err)

	s.newProcessor().processJob(s.ctx, job)

	s.Equal(models.JobStatusCanceled, s.getJob(job.ID).Status)
	s.Zero(s.orch.createCalls)
}

func (s *ProcessorTestSuite) TestTickRecoversFromHandlerPanic() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)
	s.orch.panicOnCall = true

	processor := s.newProcessor()
	s.NotPanics(func() { processor.Tick(s.ctx) })

	// The panic consumed one attempt and the job went back to pending
	failed := s.getJob(job.ID)
	s.Equal(models.JobStatusPending, failed.Status)
	s.Equal(1, failed.Attempts)
	s.Contains(failed.LastError, "panic")

	// Once the fault clears, later ticks pick the job up again
	s.orch.panicOnCall = false
	processor.Tick(s.ctx)

	recovered := s.getJob(job.ID)
	s.Equal(models.JobStatusSuccess, recovered.Status)
	s.Equal(2, recovered.Attempts)
}

func (s *ProcessorTestSuite) TestPanicsExhaustBudgetLikeFailures() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)
	s.orch.panicOnCall = true

	processor := s.newProcessor()
	for i := 0; i < job.MaxAttempts; i++ {
		processor.Tick(s.ctx)
	}

	failed := s.getJob(job.ID)
	s.Equal(models.JobStatusFailed, failed.Status)
	s.Equal(job.MaxAttempts, failed.Attempts)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusFailed, updated.Status)
}

func (s *ProcessorTestSuite) TestTickSucceedsAfterTransientFailures() {
	cluster := s.createCluster(models.PlanSmall)
	job := s.enqueueJob(models.JobTypeCreateCluster, cluster, nil)
	s.orch.createFailures = 2

	processor := s.newProcessor()
	for i := 0; i < 3; i++ {
		processor.Tick(s.ctx)
	}

	processed := s.getJob(job.ID)
	s.Equal(models.JobStatusSuccess, processed.Status)
	s.Equal(3, processed.Attempts)
	s.NotEmpty(processed.Result.String("host"))

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Require().NoError(err)
	s.Equal(models.ClusterStatusReady, updated.Status)

	// Recovered runs leave no failure traces on the timeline
	events := s.clusterEvents(cluster.ID)
	s.Require().Len(events, 1)
	s.Equal(models.EventClusterReady, events[0].Type)
}

func TestProcessor(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}
