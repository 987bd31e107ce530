package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
)

// EdgeConfig reads from a read-mostly remote config service. The service does
// not accept writes from here, so a Memory shadow serves every write and is
// the read fallback whenever the remote value is empty or unreachable.
type EdgeConfig struct {
	endpoint   string
	token      string
	client     *http.Client
	maxElapsed time.Duration
	shadow     *Memory
}

func NewEdgeConfig(endpoint, token string) *EdgeConfig {
	return &EdgeConfig{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		client:     &http.Client{Timeout: 5 * time.Second},
		maxElapsed: 3 * time.Second,
		shadow:     NewMemory(0),
	}
}

func (e *EdgeConfig) LoadFeedItems(ctx context.Context) ([]domain.FeedItem, Result) {
	var items []domain.FeedItem
	if err := e.fetch(ctx, FeedItemsKey, &items); err != nil {
		logFault("edge-config", Fault("get "+FeedItemsKey, err))
		return e.shadow.LoadFeedItems(ctx)
	}
	if len(items) == 0 {
		return e.shadow.LoadFeedItems(ctx)
	}
	e.shadow.SaveFeedItems(ctx, items)
	return items, Ok
}

func (e *EdgeConfig) SaveFeedItems(ctx context.Context, items []domain.FeedItem) Result {
	log.Debug().Str("store", "edge-config").Int("count", len(items)).Msg("remote is read-only, feed items kept in memory")
	return e.shadow.SaveFeedItems(ctx, items)
}

func (e *EdgeConfig) LoadScheduledJobs(ctx context.Context) ([]domain.ScheduledJob, Result) {
	var jobs []domain.ScheduledJob
	if err := e.fetch(ctx, ScheduledJobsKey, &jobs); err != nil {
		logFault("edge-config", Fault("get "+ScheduledJobsKey, err))
		return e.shadow.LoadScheduledJobs(ctx)
	}
	if len(jobs) == 0 {
		return e.shadow.LoadScheduledJobs(ctx)
	}
	e.shadow.SaveScheduledJobs(ctx, jobs)
	return jobs, Ok
}

func (e *EdgeConfig) SaveScheduledJobs(ctx context.Context, jobs []domain.ScheduledJob) Result {
	log.Debug().Str("store", "edge-config").Int("count", len(jobs)).Msg("remote is read-only, jobs kept in memory")
	return e.shadow.SaveScheduledJobs(ctx, jobs)
}

// fetch reads one item. A missing item decodes to nothing and is not an error.
func (e *EdgeConfig) fetch(ctx context.Context, key string, v any) error {
	u := e.endpoint + "/item/" + url.PathEscape(key)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = e.maxElapsed

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if e.token != "" {
			req.Header.Set("Authorization", "Bearer "+e.token)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("edge config %d: %s", resp.StatusCode, string(body))
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("edge config %d: %s", resp.StatusCode, string(body)))
		}
		if len(body) == 0 || string(body) == "null" {
			return nil
		}
		if err := json.Unmarshal(body, v); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", key, err))
		}
		return nil
	}

	notify := func(err error, d time.Duration) {
		log.Warn().Err(err).Str("key", key).Dur("retry_in", d).Msg("edge config read failed, retrying")
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}
