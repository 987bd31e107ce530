package quiz

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"rsstrigger/internal/domain"
)

const MaxQuizzes = 50

// Store keeps the most recent quizzes created through the publishing API,
// newest first.
type Store struct {
	mu      sync.RWMutex
	quizzes []domain.CreatedQuiz
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Add assigns ID and Timestamp and records q.
func (s *Store) Add(q domain.CreatedQuiz) domain.CreatedQuiz {
	now := s.now()
	q.ID = strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
	q.Timestamp = now.UTC().Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = append([]domain.CreatedQuiz{q}, s.quizzes...)
	if len(s.quizzes) > MaxQuizzes {
		s.quizzes = s.quizzes[:MaxQuizzes]
	}
	return q
}

// List returns up to limit quizzes, newest first. A negative limit returns
// all of them.
func (s *Store) List(limit int) []domain.CreatedQuiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit < 0 || limit > len(s.quizzes) {
		limit = len(s.quizzes)
	}
	return append([]domain.CreatedQuiz{}, s.quizzes[:limit]...)
}

func (s *Store) FindByUUID(id string) (domain.CreatedQuiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.UUID == id {
			return q, true
		}
	}
	return domain.CreatedQuiz{}, false
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = nil
}
