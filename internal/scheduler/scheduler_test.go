package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/internal/scheduler"
)

type countingSnapshotService struct {
	calls int
}

func (s *countingSnapshotService) ExportSnapshot(ctx context.Context) (string, error) {
	s.calls++
	return "", nil
}

func TestAddSnapshotJob(t *testing.T) {
	c := scheduler.NewCron()
	svc := &countingSnapshotService{}

	id, err := scheduler.AddSnapshotJob(c, "0 */10 * * * *", svc)
	require.NoError(t, err)

	entry := c.Entry(id)
	require.True(t, entry.Valid())
	entry.Job.Run()
	assert.Equal(t, 1, svc.calls)
}

func TestAddSnapshotJob_InvalidSchedule(t *testing.T) {
	_, err := scheduler.AddSnapshotJob(scheduler.NewCron(), "every ten minutes", &countingSnapshotService{})
	assert.Error(t, err)
}
