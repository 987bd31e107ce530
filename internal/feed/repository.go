// Package feed holds the business rules for the bounded feed: item
// construction, newest-first ordering and eviction of the oldest items.
package feed

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
	"rsstrigger/internal/store"
)

const DefaultMaxItems = 50

type Repository struct {
	backend  store.Backend
	maxItems int
	baseURL  string

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewRepository(backend store.Backend, baseURL string, maxItems int) *Repository {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Repository{
		backend:  backend,
		maxItems: maxItems,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (r *Repository) MaxItems() int { return r.maxItems }

// LoadFeedItems returns the retained items newest first. Storage order is
// never trusted.
func (r *Repository) LoadFeedItems(ctx context.Context) []domain.FeedItem {
	items, _ := r.backend.LoadFeedItems(ctx)
	sortNewestFirst(items)
	return items
}

// AddFeedItem records a new item and returns it even when the save fails.
// Empty title or description get a timestamped default.
func (r *Repository) AddFeedItem(ctx context.Context, title, description string) domain.FeedItem {
	now := r.now()
	item := domain.FeedItem{
		ID:          r.newID(),
		Title:       title,
		Description: description,
		Link:        r.baseURL + "/trigger/" + r.newID(),
		PubDate:     now,
		GUID:        r.newID(),
	}
	if item.Title == "" {
		item.Title = "RSS Trigger " + now.Format("2006-01-02 15:04:05")
	}
	if item.Description == "" {
		item.Description = "Triggered at " + now.UTC().Format("2006-01-02T15:04:05.000Z")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, _ := r.backend.LoadFeedItems(ctx)
	sortNewestFirst(existing)
	items := append([]domain.FeedItem{item}, existing...)
	if len(items) > r.maxItems {
		items = items[:r.maxItems]
	}
	if res := r.backend.SaveFeedItems(ctx, items); res.Failed() {
		log.Warn().Str("item_id", item.ID).Msg("feed item not persisted, returning in-memory result")
	}
	return item
}

func sortNewestFirst(items []domain.FeedItem) {
	slices.SortStableFunc(items, func(a, b domain.FeedItem) int {
		return b.PubDate.Compare(a.PubDate)
	})
}
