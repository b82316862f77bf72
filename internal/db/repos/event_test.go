package repos

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dbpilot/dbpilot/internal/db/models"
)

type EventRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestEventRepository(t *testing.T) {
	suite.Run(t, new(EventRepositoryTestSuite))
}

func (s *EventRepositoryTestSuite) TestRecordDefaultsSeverity() {
	event := &models.Event{
		OrgID:     1,
		ClusterID: 1,
		Type:      models.EventClusterReady,
		Message:   "Cluster test-cluster is ready",
	}
	s.Require().NoError(s.eventRepo.Record(s.ctx, event))
	s.Equal(models.SeverityInfo, event.Severity)
}

func (s *EventRepositoryTestSuite) TestRecordRequiresType() {
	err := s.eventRepo.Record(s.ctx, &models.Event{OrgID: 1, ClusterID: 1})
	s.Error(err)
}

func (s *EventRepositoryTestSuite) TestListByCluster() {
	for _, eventType := range []string{models.EventClusterReady, models.EventClusterPaused} {
		s.Require().NoError(s.eventRepo.Record(s.ctx, &models.Event{
			OrgID:     1,
			ClusterID: 1,
			Type:      eventType,
		}))
	}
	s.Require().NoError(s.eventRepo.Record(s.ctx, &models.Event{
		OrgID:     1,
		ClusterID: 2,
		Type:      models.EventClusterDeleted,
	}))

	events, err := s.eventRepo.ListByCluster(s.ctx, 1, &models.ListOptions{Limit: 10})
	s.NoError(err)
	s.Len(events, 2)

	events, err = s.eventRepo.ListByCluster(s.ctx, 2, &models.ListOptions{Limit: 10})
	s.NoError(err)
	s.Len(events, 1)
}
