package listing

import (
	"time"

	"github.com/eringen/spacetraveling/content"
)

// Summary is the view model of one listing entry.
type Summary struct {
	UID         string
	Link        string
	Title       string
	Subtitle    string
	Author      string
	PublishedAt time.Time // zero when unknown
}

// Summaries maps posts to listing entries, keeping their order.
func Summaries(posts []content.Post) []Summary {
	out := make([]Summary, 0, len(posts))
	for _, p := range posts {
		published, _ := p.FirstPublished()
		out = append(out, Summary{
			UID:         p.UID,
			Link:        p.Link(),
			Title:       p.Data.Title,
			Subtitle:    p.Data.Subtitle,
			Author:      p.Data.Author,
			PublishedAt: published,
		})
	}
	return out
}

// Page is the listing view model: entries plus the cursor for "load more".
type Page struct {
	Posts    []Summary
	NextPage string
	HasMore  bool
}

// PageOf builds the view model from a walker's current state.
func PageOf(w *Walker) Page {
	return Page{
		Posts:    Summaries(w.Posts()),
		NextPage: w.NextPage(),
		HasMore:  w.HasMore(),
	}
}
