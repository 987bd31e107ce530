package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
)

const DefaultIdleTimeout = 10 * time.Minute

// Memory keeps both collections in process memory. With a non-zero idle
// timeout, state untouched for longer than the timeout is discarded on the
// next access.
type Memory struct {
	mu           sync.Mutex
	items        []domain.FeedItem
	jobs         []domain.ScheduledJob
	idle         time.Duration
	lastActivity time.Time
	now          func() time.Time
}

func NewMemory(idle time.Duration) *Memory {
	return &Memory{idle: idle, now: time.Now}
}

// touch must be called with mu held.
func (m *Memory) touch() {
	now := m.now()
	if m.idle > 0 && !m.lastActivity.IsZero() && now.Sub(m.lastActivity) >= m.idle {
		log.Info().
			Dur("idle", now.Sub(m.lastActivity)).
			Int("feed_items", len(m.items)).
			Int("jobs", len(m.jobs)).
			Msg("memory store idle timeout, discarding state")
		m.items = nil
		m.jobs = nil
	}
	m.lastActivity = now
}

func (m *Memory) LoadFeedItems(ctx context.Context) ([]domain.FeedItem, Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	return append([]domain.FeedItem{}, m.items...), Ok
}

func (m *Memory) SaveFeedItems(ctx context.Context, items []domain.FeedItem) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	m.items = append([]domain.FeedItem{}, items...)
	return Ok
}

func (m *Memory) LoadScheduledJobs(ctx context.Context) ([]domain.ScheduledJob, Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	return append([]domain.ScheduledJob{}, m.jobs...), Ok
}

func (m *Memory) SaveScheduledJobs(ctx context.Context, jobs []domain.ScheduledJob) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	m.jobs = append([]domain.ScheduledJob{}, jobs...)
	return Ok
}
