package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/models"
)

func createTestSession() *Session {
	return New(nil, arbor.NewLogger())
}

func TestBeginResetsStateAtomically(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")
	sess.AppendLog("old line")
	sess.ReplaceResults([]models.Product{{Title: "Old", Price: 10}})
	_, err := sess.ApplyStatus(models.JobStatusCompleted)
	require.NoError(t, err)

	sess.Begin("job_2")

	assert.Equal(t, "job_2", sess.JobID())
	assert.Equal(t, models.JobStatusPending, sess.Status())
	assert.Empty(t, sess.Results())

	// Fresh narrative: only the acceptance line for the new job remains
	logs := sess.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "job_2")
}

func TestBeginStartsPendingAfterTerminal(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")
	_, err := sess.ApplyStatus(models.JobStatusFailed)
	require.NoError(t, err)

	sess.Begin("job_2")
	assert.Equal(t, models.JobStatusPending, sess.Status())
}

func TestApplyStatusMonotonic(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")

	changed, err := sess.ApplyStatus(models.JobStatusRunning)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = sess.ApplyStatus(models.JobStatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.JobStatusCompleted, sess.Status())
}

func TestApplyStatusRegressionRejected(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")
	_, err := sess.ApplyStatus(models.JobStatusCompleted)
	require.NoError(t, err)

	_, err = sess.ApplyStatus(models.JobStatusRunning)
	assert.Error(t, err)
	assert.Equal(t, models.JobStatusCompleted, sess.Status())
}

func TestApplyStatusSameStatusNotChanged(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")
	_, err := sess.ApplyStatus(models.JobStatusRunning)
	require.NoError(t, err)

	changed, err := sess.ApplyStatus(models.JobStatusRunning)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApplyStatusWithoutJob(t *testing.T) {
	sess := createTestSession()
	_, err := sess.ApplyStatus(models.JobStatusRunning)
	assert.Error(t, err)
}

func TestReplaceResultsLastWriteWins(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")

	sess.ReplaceResults([]models.Product{{Title: "A"}, {Title: "B"}})
	sess.ReplaceResults([]models.Product{{Title: "C"}})

	results := sess.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "C", results[0].Title)

	// An empty snapshot is still a snapshot
	sess.ReplaceResults(nil)
	assert.Empty(t, sess.Results())
}

func TestAppendLogsKeepsArrivalOrder(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")

	sess.AppendLogs([]string{"one", "two"})
	sess.AppendLogs([]string{"two"}) // duplicates are kept
	sess.AppendLog("three")

	logs := sess.Logs()
	require.Len(t, logs, 5)
	assert.Equal(t, "one", logs[1].Message)
	assert.Equal(t, "two", logs[2].Message)
	assert.Equal(t, "two", logs[3].Message)
	assert.Equal(t, "three", logs[4].Message)
}

func TestFailSubmission(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")
	sess.ReplaceResults([]models.Product{{Title: "A"}})

	sess.FailSubmission(assert.AnError)

	assert.Equal(t, models.JobStatusFailed, sess.Status())
	assert.Empty(t, sess.JobID())
	assert.Empty(t, sess.Results())
	logs := sess.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "submission failed")

	_, ok := sess.Handle()
	assert.False(t, ok)
}

func TestConnectedFlag(t *testing.T) {
	sess := createTestSession()
	assert.False(t, sess.Connected())

	sess.SetConnected(true)
	assert.True(t, sess.Connected())

	sess.SetConnected(false)
	assert.False(t, sess.Connected())
}

func TestReadsReturnCopies(t *testing.T) {
	sess := createTestSession()
	sess.Begin("job_1")
	sess.ReplaceResults([]models.Product{{Title: "A"}})

	results := sess.Results()
	results[0].Title = "mutated"
	assert.Equal(t, "A", sess.Results()[0].Title)

	logs := sess.Logs()
	logs[0].Message = "mutated"
	assert.NotEqual(t, "mutated", sess.Logs()[0].Message)
}
