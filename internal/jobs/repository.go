// Package jobs is CRUD over scheduled job records. It knows nothing about
// whether a timer is running for a job.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/store"
)

type Repository struct {
	backend store.Backend
	mu      sync.Mutex
	newID   func() string
}

func NewRepository(backend store.Backend) *Repository {
	return &Repository{backend: backend, newID: uuid.NewString}
}

// LoadScheduledJobs returns jobs in insertion order.
func (r *Repository) LoadScheduledJobs(ctx context.Context) []domain.ScheduledJob {
	jobs, _ := r.backend.LoadScheduledJobs(ctx)
	return jobs
}

func (r *Repository) GetScheduledJob(ctx context.Context, id string) (domain.ScheduledJob, bool) {
	return lo.Find(r.LoadScheduledJobs(ctx), func(j domain.ScheduledJob) bool { return j.ID == id })
}

// AddScheduledJob appends a new record. The cron pattern must already have
// been validated by the caller.
func (r *Repository) AddScheduledJob(ctx context.Context, name, cronPattern string, enabled bool) domain.ScheduledJob {
	job := domain.ScheduledJob{
		ID:          r.newID(),
		Name:        name,
		CronPattern: cronPattern,
		Enabled:     enabled,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	jobs, _ := r.backend.LoadScheduledJobs(ctx)
	jobs = append(jobs, job)
	if res := r.backend.SaveScheduledJobs(ctx, jobs); res.Failed() {
		log.Warn().Str("job_id", job.ID).Msg("scheduled job not persisted")
	}
	return job
}

// UpdateScheduledJob merges upd over the stored record. It reports false
// when id is unknown.
func (r *Repository) UpdateScheduledJob(ctx context.Context, id string, upd domain.JobUpdate) bool {
	return r.modify(ctx, id, func(j domain.ScheduledJob) domain.ScheduledJob {
		return upd.Apply(j)
	})
}

// RecordRun writes the run bookkeeping for id. Only the scheduler calls it.
func (r *Repository) RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) bool {
	return r.modify(ctx, id, func(j domain.ScheduledJob) domain.ScheduledJob {
		j.LastRun = &lastRun
		j.NextRun = nextRun
		return j
	})
}

func (r *Repository) DeleteScheduledJob(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs, _ := r.backend.LoadScheduledJobs(ctx)
	_, idx, ok := lo.FindIndexOf(jobs, func(j domain.ScheduledJob) bool { return j.ID == id })
	if !ok {
		return false
	}
	jobs = append(jobs[:idx], jobs[idx+1:]...)
	if res := r.backend.SaveScheduledJobs(ctx, jobs); res.Failed() {
		log.Warn().Str("job_id", id).Msg("job deletion not persisted")
	}
	return true
}

func (r *Repository) modify(ctx context.Context, id string, fn func(domain.ScheduledJob) domain.ScheduledJob) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs, _ := r.backend.LoadScheduledJobs(ctx)
	_, idx, ok := lo.FindIndexOf(jobs, func(j domain.ScheduledJob) bool { return j.ID == id })
	if !ok {
		return false
	}
	jobs[idx] = fn(jobs[idx])
	if res := r.backend.SaveScheduledJobs(ctx, jobs); res.Failed() {
		log.Warn().Str("job_id", id).Msg("job update not persisted")
	}
	return true
}
