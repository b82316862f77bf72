package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

func (s *APITestSuite) createJob(cluster *models.Cluster) *models.Job {
	job := &models.Job{
		Type:            models.JobTypeCreateCluster,
		TargetClusterID: cluster.ID,
		TargetProjectID: cluster.ProjectID,
		TargetOrgID:     cluster.OrgID,
	}
	s.Require().NoError(s.jobRepo.Create(s.ctx, job))
	return job
}

func (s *APITestSuite) TestListJobsByStatus() {
	cluster := s.createCluster()
	pending := s.createJob(cluster)
	canceled := s.createJob(cluster)
	_, err := s.jobRepo.Cancel(s.ctx, canceled.ID)
	s.Require().NoError(err)

	status, env := s.request(http.MethodGet, "/api/v1/jobs/?status=pending", nil)
	s.Equal(http.StatusOK, status)

	var jobs []models.Job
	s.Require().NoError(json.Unmarshal(env.Data, &jobs))
	s.Require().Len(jobs, 1)
	s.Equal(pending.ID, jobs[0].ID)
}

func (s *APITestSuite) TestGetJob() {
	cluster := s.createCluster()
	job := s.createJob(cluster)

	status, env := s.request(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", job.ID), nil)
	s.Equal(http.StatusOK, status)

	var fetched models.Job
	s.Require().NoError(json.Unmarshal(env.Data, &fetched))
	s.Equal(job.ID, fetched.ID)
	s.Equal(models.JobStatusPending, fetched.Status)
}

func (s *APITestSuite) TestGetJobNotFound() {
	status, env := s.request(http.MethodGet, "/api/v1/jobs/9999", nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal(NotFoundSlug, env.Slug)
}

func (s *APITestSuite) TestJobStats() {
	cluster := s.createCluster()
	s.createJob(cluster)

	status, env := s.request(http.MethodGet, "/api/v1/jobs/stats", nil)
	s.Equal(http.StatusOK, status)

	var stats map[models.JobStatus]int64
	s.Require().NoError(json.Unmarshal(env.Data, &stats))
	s.Equal(int64(1), stats[models.JobStatusPending])
	s.Equal(int64(0), stats[models.JobStatusFailed])
}

func (s *APITestSuite) TestCancelJob() {
	cluster := s.createCluster()
	job := s.createJob(cluster)

	status, env := s.request(http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/cancel", job.ID), nil)
	s.Equal(http.StatusOK, status)

	var canceled models.Job
	s.Require().NoError(json.Unmarshal(env.Data, &canceled))
	s.Equal(models.JobStatusCanceled, canceled.Status)
}

func (s *APITestSuite) TestRetryJob() {
	cluster := s.createCluster()
	job := s.createJob(cluster)
	_, err := s.jobRepo.Cancel(s.ctx, job.ID)
	s.Require().NoError(err)

	status, env := s.request(http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/retry", job.ID), nil)
	s.Equal(http.StatusOK, status)

	var retried models.Job
	s.Require().NoError(json.Unmarshal(env.Data, &retried))
	s.Equal(models.JobStatusPending, retried.Status)
	s.Zero(retried.Attempts)
}

func (s *APITestSuite) TestRetryPendingJobRejected() {
	cluster := s.createCluster()
	job := s.createJob(cluster)

	status, env := s.request(http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/retry", job.ID), nil)
	s.Equal(http.StatusBadRequest, status)
	s.Equal(InvalidInputSlug, env.Slug)
}
