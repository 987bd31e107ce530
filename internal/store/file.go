package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"rsstrigger/internal/domain"
)

const (
	FeedItemsFile     = "feed-items.json"
	ScheduledJobsFile = "scheduled-jobs.json"
)

// File stores each collection as a JSON array in its own document under dir.
// The directory is created on first use.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) Dir() string { return f.dir }

func (f *File) LoadFeedItems(ctx context.Context) ([]domain.FeedItem, Result) {
	var items []domain.FeedItem
	if r := f.read(FeedItemsFile, &items); r.Failed() {
		return []domain.FeedItem{}, r
	}
	if items == nil {
		items = []domain.FeedItem{}
	}
	return items, Ok
}

func (f *File) SaveFeedItems(ctx context.Context, items []domain.FeedItem) Result {
	return f.write(FeedItemsFile, items)
}

func (f *File) LoadScheduledJobs(ctx context.Context) ([]domain.ScheduledJob, Result) {
	var jobs []domain.ScheduledJob
	if r := f.read(ScheduledJobsFile, &jobs); r.Failed() {
		return []domain.ScheduledJob{}, r
	}
	if jobs == nil {
		jobs = []domain.ScheduledJob{}
	}
	return jobs, Ok
}

func (f *File) SaveScheduledJobs(ctx context.Context, jobs []domain.ScheduledJob) Result {
	return f.write(ScheduledJobsFile, jobs)
}

func (f *File) ensureDir() error {
	return os.MkdirAll(f.dir, 0o755)
}

// read decodes name into v. A missing document is an empty collection, not a fault.
func (f *File) read(name string, v any) Result {
	if err := f.ensureDir(); err != nil {
		return logFault("file", Fault("mkdir", err))
	}
	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Ok
	}
	if err != nil {
		return logFault("file", Fault("read "+name, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return logFault("file", Fault("decode "+name, err))
	}
	return Ok
}

// write replaces name atomically via a temporary file and rename.
func (f *File) write(name string, v any) Result {
	if err := f.ensureDir(); err != nil {
		return logFault("file", Fault("mkdir", err))
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return logFault("file", Fault("encode "+name, err))
	}
	path := filepath.Join(f.dir, name)
	tmp, err := writeTemp(f.dir, name, data)
	if err != nil {
		return logFault("file", Fault("write "+name, err))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return logFault("file", Fault("rename "+name, err))
	}
	log.Debug().Str("store", "file").Str("file", path).Int("bytes", len(data)).Msg("document saved")
	return Ok
}

// writeTemp writes data to a fresh temporary file next to the target so
// concurrent writers never share a temporary path.
func writeTemp(dir, name string, data []byte) (string, error) {
	fh, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := fh.Name()
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("sync: %w", err)
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
