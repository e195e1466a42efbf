package uploadqueue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueDeduplicates(t *testing.T) {
	q := openTestQueue(t)

	h1, err := q.Enqueue(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	// Same value, different field order at the source: identical canonical
	// payload, identical digest, no second row.
	h2, err := q.Enqueue(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	n, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDequeueLeasesRecords(t *testing.T) {
	q := openTestQueue(t)
	_, err := q.Enqueue(map[string]string{"k": "v"})
	require.NoError(t, err)

	batch, err := q.DequeueBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.NotEmpty(t, batch[0].LeaseToken)

	// Leased records are invisible to a second dequeue.
	again, err := q.DequeueBatch(10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDoneRemovesRecord(t *testing.T) {
	q := openTestQueue(t)
	_, err := q.Enqueue(map[string]string{"k": "v"})
	require.NoError(t, err)

	batch, err := q.DequeueBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NoError(t, q.Done(batch[0]))

	n, err := q.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailSchedulesRetryAndReleasesLease(t *testing.T) {
	q := openTestQueue(t)
	_, err := q.Enqueue(map[string]string{"k": "v"})
	require.NoError(t, err)

	batch, err := q.DequeueBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NoError(t, q.Fail(batch[0], "network unreachable"))

	// The record is still queued but not yet due.
	n, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	due, err := q.DequeueBatch(1)
	require.NoError(t, err)
	assert.Empty(t, due, "first retry waits five minutes")
}

func TestDoneWithStaleLeaseIsNoop(t *testing.T) {
	q := openTestQueue(t)
	_, err := q.Enqueue(map[string]string{"k": "v"})
	require.NoError(t, err)

	batch, err := q.DequeueBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	stale := batch[0]
	stale.LeaseToken = "not-the-token"
	require.NoError(t, q.Done(stale))

	n, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a stale lease cannot delete the record")
}

func TestBackoffSchedule(t *testing.T) {
	assert.Equal(t, 5*time.Minute, backoffFor(1))
	assert.Equal(t, 30*time.Minute, backoffFor(2))
	assert.Equal(t, 2*time.Hour, backoffFor(3))
	assert.Equal(t, 6*time.Hour, backoffFor(4))
	assert.Equal(t, 12*time.Hour, backoffFor(5))
	assert.Equal(t, 24*time.Hour, backoffFor(6))
	assert.Equal(t, 24*time.Hour, backoffFor(99), "capped at a day")
	assert.Equal(t, 5*time.Minute, backoffFor(0))
}
