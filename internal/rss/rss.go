package rss

import (
	"time"

	"github.com/gorilla/feeds"
	"rsstrigger/internal/domain"
)

const DefaultTitle = "RSS Trigger Feed"

// Generate renders items as an RSS 2.0 document in the order given.
func Generate(items []domain.FeedItem, title, baseURL string, now time.Time) (string, error) {
	if title == "" {
		title = DefaultTitle
	}
	f := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: baseURL},
		Description: "RSS feed for triggering workflows",
		Created:     now,
		Updated:     now,
	}
	for _, it := range items {
		f.Items = append(f.Items, &feeds.Item{
			Title:       it.Title,
			Description: it.Description,
			Link:        &feeds.Link{Href: it.Link},
			Id:          it.GUID,
			Created:     it.PubDate,
		})
	}

	rf := (&feeds.Rss{Feed: f}).RssFeed()
	rf.Language = "sv-SE"
	rf.Generator = "RSS Trigger Generator"
	for i, it := range items {
		rf.Items[i].Guid = &feeds.RssGuid{Id: it.GUID, IsPermaLink: "false"}
	}
	return feeds.ToXML(rf)
}
