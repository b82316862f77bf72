package repos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db          *gorm.DB
	ctx         context.Context
	clusterRepo *ClusterRepository
	backupRepo  *BackupRepository
	jobRepo     *JobRepository
	eventRepo   *EventRepository
}

func (s *DBRepositoryTestSuite) SetupTest() {
	// Create new in-memory database with JSON support
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	err = db.AutoMigrate(&models.Cluster{}, &models.Job{}, &models.Backup{}, &models.Event{})
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = db
	s.clusterRepo = NewClusterRepository(s.db)
	s.backupRepo = NewBackupRepository(s.db)
	s.jobRepo = NewJobRepository(s.db)
	s.eventRepo = NewEventRepository(s.db)
	s.ctx = context.Background()
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	// The shared-cache memory database persists while a connection is open,
	// so drop the tables before closing to isolate the next test.
	_ = s.db.Migrator().DropTable(&models.Cluster{}, &models.Job{}, &models.Backup{}, &models.Event{})
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// Helper methods for creating test data

func (s *DBRepositoryTestSuite) createTestCluster() *models.Cluster {
	cluster := &models.Cluster{
		Name:        "test-cluster",
		OrgID:       1,
		ProjectID:   1,
		ProjectSlug: "test-project",
		Plan:        models.PlanSmall,
	}
	err := s.clusterRepo.Create(s.ctx, cluster)
	s.Require().NoError(err)
	return cluster
}

func (s *DBRepositoryTestSuite) createTestJob(jobType models.JobType) *models.Job {
	job := &models.Job{
		Type:            jobType,
		TargetClusterID: 1,
		TargetProjectID: 1,
		TargetOrgID:     1,
		CreatedAt:       time.Now(),
	}
	err := s.jobRepo.Create(s.ctx, job)
	s.Require().NoError(err)
	return job
}

func (s *DBRepositoryTestSuite) createTestBackup(clusterID uint) *models.Backup {
	backup := &models.Backup{ClusterID: clusterID}
	err := s.backupRepo.Create(s.ctx, backup)
	s.Require().NoError(err)
	return backup
}

// TestDBRepository runs the base suite to verify setup does not panic
func TestDBRepository(t *testing.T) {
	suite.Run(t, new(DBRepositoryTestSuite))
}
