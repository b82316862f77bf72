package repos

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

type ClusterRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestClusterRepository(t *testing.T) {
	suite.Run(t, new(ClusterRepositoryTestSuite))
}

func (s *ClusterRepositoryTestSuite) TestCreateDefaults() {
	cluster := s.createTestCluster()

	s.NotZero(cluster.ID)
	s.Equal(models.ClusterStatusProvisioning, cluster.Status)
	s.NotEmpty(cluster.Slug)
	s.False(cluster.Paused)
}

func (s *ClusterRepositoryTestSuite) TestCreateRejectsInvalid() {
	err := s.clusterRepo.Create(s.ctx, &models.Cluster{Name: "", ProjectID: 1, Plan: models.PlanDev})
	s.Error(err)

	err = s.clusterRepo.Create(s.ctx, &models.Cluster{Name: "x", ProjectID: 1, Plan: "platinum"})
	s.Error(err)
}

func (s *ClusterRepositoryTestSuite) TestGetBySlug() {
	cluster := s.createTestCluster()

	found, err := s.clusterRepo.GetBySlug(s.ctx, cluster.Slug)
	s.NoError(err)
	s.Equal(cluster.ID, found.ID)

	_, err = s.clusterRepo.GetBySlug(s.ctx, "c-missing")
	s.Error(err)
}

func (s *ClusterRepositoryTestSuite) TestListByProject() {
	s.createTestCluster()
	other := &models.Cluster{
		Name:        "other-cluster",
		OrgID:       1,
		ProjectID:   2,
		ProjectSlug: "other-project",
		Plan:        models.PlanDev,
	}
	s.Require().NoError(s.clusterRepo.Create(s.ctx, other))

	clusters, err := s.clusterRepo.List(s.ctx, 0, &models.ListOptions{Limit: 10})
	s.NoError(err)
	s.Len(clusters, 2)

	clusters, err = s.clusterRepo.List(s.ctx, 2, &models.ListOptions{Limit: 10})
	s.NoError(err)
	s.Require().Len(clusters, 1)
	s.Equal(other.ID, clusters[0].ID)
}

func (s *ClusterRepositoryTestSuite) TestUpdateStatusWithConnection() {
	cluster := s.createTestCluster()

	conn := &models.ConnectionInfo{
		Host:       "mongo-c1-svc.proj-1.svc.cluster.local",
		Port:       27017,
		ReplicaSet: "mongo-c1",
		URI:        "mongodb://mongo-c1-svc.proj-1.svc.cluster.local:27017",
	}
	err := s.clusterRepo.UpdateStatus(s.ctx, cluster.ID, models.ClusterStatusReady, conn)
	s.NoError(err)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.NoError(err)
	s.Equal(models.ClusterStatusReady, updated.Status)
	s.Equal(conn.Host, updated.Host)
	s.Equal(conn.Port, updated.Port)
	s.Equal(conn.ReplicaSet, updated.ReplicaSet)
	s.Equal(conn.URI, updated.URI)
}

func (s *ClusterRepositoryTestSuite) TestUpdateStatusWithoutConnection() {
	cluster := s.createTestCluster()

	err := s.clusterRepo.UpdateStatus(s.ctx, cluster.ID, models.ClusterStatusFailed, nil)
	s.NoError(err)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.NoError(err)
	s.Equal(models.ClusterStatusFailed, updated.Status)
	s.Empty(updated.Host)
}

func (s *ClusterRepositoryTestSuite) TestUpdatePlan() {
	cluster := s.createTestCluster()

	err := s.clusterRepo.UpdatePlan(s.ctx, cluster.ID, models.PlanMedium)
	s.NoError(err)

	updated, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.NoError(err)
	s.Equal(models.PlanMedium, updated.Plan)

	err = s.clusterRepo.UpdatePlan(s.ctx, cluster.ID, "platinum")
	s.Error(err)
}

func (s *ClusterRepositoryTestSuite) TestPauseResume() {
	cluster := s.createTestCluster()

	s.Require().NoError(s.clusterRepo.MarkPaused(s.ctx, cluster.ID))
	paused, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.NoError(err)
	s.True(paused.Paused)
	s.NotNil(paused.PausedAt)
	s.Equal(models.ClusterStatusPaused, paused.Status)

	s.Require().NoError(s.clusterRepo.MarkResumed(s.ctx, cluster.ID))
	resumed, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.NoError(err)
	s.False(resumed.Paused)
	s.Nil(resumed.PausedAt)
	s.Equal(models.ClusterStatusReady, resumed.Status)
}

func (s *ClusterRepositoryTestSuite) TestHardDelete() {
	cluster := s.createTestCluster()

	s.Require().NoError(s.clusterRepo.HardDelete(s.ctx, cluster.ID))

	_, err := s.clusterRepo.GetByID(s.ctx, cluster.ID)
	s.Error(err)
}
