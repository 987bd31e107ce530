// Package store persists feed items and scheduled jobs behind a single
// load/save contract. Every variant degrades to a best-effort fallback on
// faults instead of returning errors to the repositories above it.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
)

const (
	FeedItemsKey     = "rss:feed-items"
	ScheduledJobsKey = "rss:scheduled-jobs"
)

type Kind string

const (
	KindMemory     Kind = "memory"
	KindFile       Kind = "file"
	KindTemp       Kind = "tmp"
	KindSQLite     Kind = "sqlite"
	KindEdgeConfig Kind = "edge-config"
)

// Backend is the load/save surface used by the feed and job repositories.
// Loads never fail the caller: on a fault they return an empty slice and a
// Fault result.
type Backend interface {
	LoadFeedItems(ctx context.Context) ([]domain.FeedItem, Result)
	SaveFeedItems(ctx context.Context, items []domain.FeedItem) Result
	LoadScheduledJobs(ctx context.Context) ([]domain.ScheduledJob, Result)
	SaveScheduledJobs(ctx context.Context, jobs []domain.ScheduledJob) Result
}

// Result is the outcome of a storage operation. The zero value is Ok.
type Result struct {
	Op  string
	Err error
}

var Ok = Result{}

func Fault(op string, err error) Result {
	return Result{Op: op, Err: err}
}

func (r Result) Failed() bool { return r.Err != nil }

func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", r.Op, r.Err)
}

type Options struct {
	Kind            Kind
	DataDir         string
	SQLitePath      string
	EdgeConfigURL   string
	EdgeConfigToken string
	IdleTimeout     time.Duration
}

// Open builds the backend selected by opts.Kind. Backends holding resources
// implement io.Closer.
func Open(opts Options) (Backend, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemory(opts.IdleTimeout), nil
	case KindFile:
		dir := opts.DataDir
		if dir == "" {
			dir = "data"
		}
		return NewFile(dir), nil
	case KindTemp:
		return NewFile(filepath.Join(os.TempDir(), "rss-trigger")), nil
	case KindSQLite:
		return OpenSQLite(opts.SQLitePath)
	case KindEdgeConfig:
		if opts.EdgeConfigURL == "" {
			return nil, fmt.Errorf("edge-config store requires an endpoint")
		}
		return NewEdgeConfig(opts.EdgeConfigURL, opts.EdgeConfigToken), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", opts.Kind)
	}
}

// WithFaultHook wraps b so that every failed operation is reported to hook.
func WithFaultHook(b Backend, hook func(op string, err error)) Backend {
	return &hooked{Backend: b, hook: hook}
}

type hooked struct {
	Backend
	hook func(op string, err error)
}

func (h *hooked) report(r Result) Result {
	if r.Failed() {
		h.hook(r.Op, r.Err)
	}
	return r
}

func (h *hooked) LoadFeedItems(ctx context.Context) ([]domain.FeedItem, Result) {
	items, r := h.Backend.LoadFeedItems(ctx)
	return items, h.report(r)
}

func (h *hooked) SaveFeedItems(ctx context.Context, items []domain.FeedItem) Result {
	return h.report(h.Backend.SaveFeedItems(ctx, items))
}

func (h *hooked) LoadScheduledJobs(ctx context.Context) ([]domain.ScheduledJob, Result) {
	jobs, r := h.Backend.LoadScheduledJobs(ctx)
	return jobs, h.report(r)
}

func (h *hooked) SaveScheduledJobs(ctx context.Context, jobs []domain.ScheduledJob) Result {
	return h.report(h.Backend.SaveScheduledJobs(ctx, jobs))
}

func (h *hooked) Close() error {
	if c, ok := h.Backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func logFault(store string, r Result) Result {
	if r.Failed() {
		log.Error().Err(r.Err).Str("store", store).Str("op", r.Op).Msg("storage fault, using fallback")
	}
	return r
}
