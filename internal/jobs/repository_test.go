package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/store"
)

func ptr[T any](v T) *T { return &v }

func TestAddScheduledJob(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(0))

	job := repo.AddScheduledJob(ctx, "Daily", "0 9 * * *", true)
	assert.NotEmpty(t, job.ID)

	jobs := repo.LoadScheduledJobs(ctx)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.Equal(t, "Daily", jobs[0].Name)
	assert.Equal(t, "0 9 * * *", jobs[0].CronPattern)
	assert.True(t, jobs[0].Enabled)
	assert.Nil(t, jobs[0].LastRun)
	assert.Nil(t, jobs[0].NextRun)
}

func TestAddScheduledJob_PreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(0))

	a := repo.AddScheduledJob(ctx, "a", "* * * * *", true)
	b := repo.AddScheduledJob(ctx, "b", "* * * * *", false)
	c := repo.AddScheduledJob(ctx, "c", "* * * * *", true)

	jobs := repo.LoadScheduledJobs(ctx)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpdateScheduledJob_MergesPresentFields(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(0))
	job := repo.AddScheduledJob(ctx, "Daily", "0 9 * * *", true)

	ok := repo.UpdateScheduledJob(ctx, job.ID, domain.JobUpdate{Enabled: ptr(false)})
	require.True(t, ok)

	got, found := repo.GetScheduledJob(ctx, job.ID)
	require.True(t, found)
	assert.False(t, got.Enabled)
	assert.Equal(t, "Daily", got.Name)
	assert.Equal(t, "0 9 * * *", got.CronPattern)

	ok = repo.UpdateScheduledJob(ctx, job.ID, domain.JobUpdate{Name: ptr("Morning"), CronPattern: ptr("0 8 * * *")})
	require.True(t, ok)
	got, _ = repo.GetScheduledJob(ctx, job.ID)
	assert.Equal(t, "Morning", got.Name)
	assert.Equal(t, "0 8 * * *", got.CronPattern)
	assert.False(t, got.Enabled)
}

func TestUpdateScheduledJob_UnknownID(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(0))
	repo.AddScheduledJob(ctx, "Daily", "0 9 * * *", true)
	before := repo.LoadScheduledJobs(ctx)

	ok := repo.UpdateScheduledJob(ctx, "missing", domain.JobUpdate{Name: ptr("x")})

	assert.False(t, ok)
	assert.Equal(t, before, repo.LoadScheduledJobs(ctx))
}

func TestDeleteScheduledJob(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(0))
	a := repo.AddScheduledJob(ctx, "a", "* * * * *", true)
	b := repo.AddScheduledJob(ctx, "b", "* * * * *", true)
	c := repo.AddScheduledJob(ctx, "c", "* * * * *", true)

	assert.True(t, repo.DeleteScheduledJob(ctx, b.ID))
	assert.False(t, repo.DeleteScheduledJob(ctx, b.ID))

	jobs := repo.LoadScheduledJobs(ctx)
	require.Len(t, jobs, 2)
	assert.Equal(t, a.ID, jobs[0].ID)
	assert.Equal(t, c.ID, jobs[1].ID)
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewFile(t.TempDir()))
	job := repo.AddScheduledJob(ctx, "Daily", "0 9 * * *", true)

	last := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	next := last.Add(24 * time.Hour)
	require.True(t, repo.RecordRun(ctx, job.ID, last, &next))

	got, _ := repo.GetScheduledJob(ctx, job.ID)
	require.NotNil(t, got.LastRun)
	require.NotNil(t, got.NextRun)
	assert.True(t, last.Equal(*got.LastRun))
	assert.True(t, next.Equal(*got.NextRun))
	assert.Equal(t, "Daily", got.Name)

	assert.False(t, repo.RecordRun(ctx, "missing", last, &next))
}
