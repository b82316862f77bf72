package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobType(t *testing.T) {
	for _, jobType := range AllJobTypes {
		parsed, err := ParseJobType(string(jobType))
		require.NoError(t, err)
		assert.Equal(t, jobType, parsed)
	}

	_, err := ParseJobType("compact_cluster")
	assert.Error(t, err)

	_, err = ParseJobType("")
	assert.Error(t, err)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusInProgress.Terminal())
	assert.True(t, JobStatusSuccess.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCanceled.Terminal())
}

func TestJobValidate(t *testing.T) {
	job := &Job{Type: JobTypeCreateCluster, MaxAttempts: 3}
	assert.NoError(t, job.Validate())

	job = &Job{Type: "compact_cluster", MaxAttempts: 3}
	assert.Error(t, job.Validate())

	job = &Job{Type: JobTypeCreateCluster, MaxAttempts: 0}
	assert.Error(t, job.Validate())
}

func TestJobBeforeCreateDefaults(t *testing.T) {
	job := &Job{Type: JobTypeSyncStatus}
	require.NoError(t, job.BeforeCreate(nil))
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
}
