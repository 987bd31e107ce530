package domain

import "time"

type FeedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PubDate     time.Time `json:"pubDate"`
	GUID        string    `json:"guid"`
}

type ScheduledJob struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CronPattern string     `json:"cronPattern"`
	Enabled     bool       `json:"enabled"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
}

// JobUpdate is a partial update; nil fields are left untouched.
type JobUpdate struct {
	Name        *string `json:"name,omitempty"`
	CronPattern *string `json:"cronPattern,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

func (u JobUpdate) Apply(j ScheduledJob) ScheduledJob {
	if u.Name != nil {
		j.Name = *u.Name
	}
	if u.CronPattern != nil {
		j.CronPattern = *u.CronPattern
	}
	if u.Enabled != nil {
		j.Enabled = *u.Enabled
	}
	return j
}

type CreatedQuiz struct {
	ID            string  `json:"id"`
	UUID          string  `json:"uuid"`
	Title         string  `json:"title"`
	ViewURL       *string `json:"viewUrl"`
	Created       string  `json:"created"`
	Published     bool    `json:"published"`
	PublishedAt   *string `json:"publishedAt"`
	SourceRequest string  `json:"sourceRequest,omitempty"`
	Timestamp     string  `json:"timestamp"`
}
