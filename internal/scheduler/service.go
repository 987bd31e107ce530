// Package scheduler keeps one live cron timer per enabled job and records
// each firing as a feed item.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/metrics"
)

var (
	ErrInvalidPattern = errors.New("invalid cron pattern")
	ErrJobNotFound    = errors.New("job not found")
)

// Five fields, an optional leading seconds field, or a descriptor such as @daily.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type FeedAppender interface {
	AddFeedItem(ctx context.Context, title, description string) domain.FeedItem
}

type JobStore interface {
	LoadScheduledJobs(ctx context.Context) []domain.ScheduledJob
	RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) bool
}

type Service struct {
	feed    FeedAppender
	jobs    JobStore
	metrics *metrics.Metrics
	cron    *cron.Cron

	mu          sync.Mutex
	entries     map[string]cron.EntryID
	initialized bool
	running     bool
	ctx         context.Context
	now         func() time.Time
}

func NewService(feed FeedAppender, jobs JobStore, m *metrics.Metrics) *Service {
	return &Service{
		feed:    feed,
		jobs:    jobs,
		metrics: m,
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cronLogger{}))),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
		now:     time.Now,
	}
}

// Start runs the timer loop. Firings use ctx for their storage calls.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx = ctx
	s.running = true
	s.cron.Start()
	log.Info().Msg("schedule service started")
}

// Stop cancels every timer and waits up to timeout for in-flight firings.
func (s *Service) Stop(timeout time.Duration) {
	s.StopAll()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("firings still running at shutdown")
	}
	log.Info().Msg("schedule service stopped")
}

// Init starts a timer for every enabled job with a valid pattern. Only the
// first call does anything; it reports whether this call initialized.
func (s *Service) Init(ctx context.Context) (bool, int) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		log.Info().Msg("scheduler already initialized")
		return false, s.ActiveCount()
	}
	s.initialized = true
	s.mu.Unlock()

	jobs := s.jobs.LoadScheduledJobs(ctx)
	for _, job := range jobs {
		if !job.Enabled {
			log.Debug().Str("job_id", job.ID).Str("job_name", job.Name).Msg("skipping disabled job")
			continue
		}
		if err := ValidateCronExpression(job.CronPattern); err != nil {
			log.Warn().Str("job_id", job.ID).Str("cron_pattern", job.CronPattern).Msg("skipping job with invalid cron pattern")
			continue
		}
		_ = s.StartJob(job.ID, job.Name, job.CronPattern)
	}

	n := s.ActiveCount()
	log.Info().Int("jobs", len(jobs)).Int("started", n).Msg("scheduler initialized")
	return true, n
}

func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// StartJob registers a recurring timer for id, replacing any timer already
// registered for it. An invalid pattern leaves the job stopped.
func (s *Service) StartJob(id, name, pattern string) error {
	sched, err := parser.Parse(pattern)
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Str("cron_pattern", pattern).Msg("invalid cron expression, job not started")
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[id]; ok {
		s.cron.Remove(prev)
		delete(s.entries, id)
	}
	entryID := s.cron.Schedule(sched, cron.FuncJob(func() {
		s.fire(id, name, pattern)
	}))
	s.entries[id] = entryID
	s.metrics.SetActiveJobs(len(s.entries))

	log.Info().
		Str("job_id", id).
		Str("job_name", name).
		Str("cron_pattern", pattern).
		Time("next_run", sched.Next(s.now())).
		Msg("started job")
	return nil
}

// StopJob cancels future firings for id. It reports whether a timer was
// registered; stopping a stopped job is a no-op.
func (s *Service) StopJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entries, id)
	s.metrics.SetActiveJobs(len(s.entries))
	log.Info().Str("job_id", id).Msg("stopped job")
	return true
}

func (s *Service) RestartJob(id, name, pattern string) error {
	s.StopJob(id)
	return s.StartJob(id, name, pattern)
}

func (s *Service) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.metrics.SetActiveJobs(0)
	log.Info().Msg("stopped all scheduled jobs")
}

func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Service) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// TriggerJob fires id once, outside its schedule, with the same effects as
// a timer firing.
func (s *Service) TriggerJob(ctx context.Context, id string) (domain.FeedItem, error) {
	for _, job := range s.jobs.LoadScheduledJobs(ctx) {
		if job.ID != id {
			continue
		}
		if err := ValidateCronExpression(job.CronPattern); err != nil {
			return domain.FeedItem{}, err
		}
		return s.run(ctx, job.ID, job.Name, job.CronPattern, "Manually triggered"), nil
	}
	return domain.FeedItem{}, ErrJobNotFound
}

func (s *Service) fire(id, name, pattern string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.run(ctx, id, name, pattern, "Automatically triggered")
}

// run records one firing. Failures are logged and never stop the timer.
func (s *Service) run(ctx context.Context, id, name, pattern, verb string) domain.FeedItem {
	now := s.now()
	log.Info().Str("job_id", id).Str("job_name", name).Msg("executing scheduled job")

	item := s.feed.AddFeedItem(ctx,
		"Scheduled: "+name,
		fmt.Sprintf("%s by scheduled job %q at %s", verb, name, now.UTC().Format(time.RFC3339)),
	)
	s.metrics.FeedItemAdded(metrics.SourceScheduled)

	var nextRun *time.Time
	if next, err := NextRunTime(pattern, now); err == nil {
		nextRun = &next
	}
	ok := s.jobs.RecordRun(ctx, id, now, nextRun)
	if !ok {
		log.Warn().Str("job_id", id).Msg("job record missing, run times not saved")
	}
	s.metrics.JobFired(ok)

	ev := log.Info().Str("job_id", id).Str("item_id", item.ID)
	if nextRun != nil {
		ev = ev.Time("next_run", *nextRun)
	}
	ev.Msg("created feed item")
	return item
}

// ValidateCronExpression validates a cron expression
func ValidateCronExpression(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

// NextRunTime is the first occurrence of expr strictly after from. Firings
// record it as the job's next run.
func NextRunTime(expr string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return sched.Next(from), nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
