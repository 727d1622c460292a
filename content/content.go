// Package content defines the post model served by the headless CMS and the
// repository contract every content backend implements.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DocumentType is the CMS custom type that holds blog posts.
const DocumentType = "posts"

// DateLayout is the timestamp format used by the CMS for publication dates.
const DateLayout = "2006-01-02T15:04:05-0700"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("content: document not found")

// Post is a single blog post as returned by the content repository.
// Publication dates keep the wire format; an empty string means absent.
type Post struct {
	ID                   string   `json:"id"`
	UID                  string   `json:"uid"`
	Type                 string   `json:"type"`
	FirstPublicationDate string   `json:"first_publication_date"`
	LastPublicationDate  string   `json:"last_publication_date"`
	Data                 PostData `json:"data"`
}

// PostData holds the editable fields of a post.
type PostData struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Author   string  `json:"author"`
	Banner   Banner  `json:"banner"`
	Content  []Group `json:"content"`
}

// Banner is the hero image shown above a post.
type Banner struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Group is one section of a post: a heading followed by rich-text blocks.
type Group struct {
	Heading string  `json:"heading"`
	Body    []Block `json:"body"`
}

// Block is a rich-text body segment.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
	URL   string `json:"url,omitempty"`
	Alt   string `json:"alt,omitempty"`
}

// Span marks a formatted range inside a Block's text.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink targets.
type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
}

// Edited reports whether the post was republished after its first publication.
func (p Post) Edited() bool {
	return p.LastPublicationDate != "" && p.LastPublicationDate != p.FirstPublicationDate
}

// FirstPublished parses FirstPublicationDate.
func (p Post) FirstPublished() (time.Time, bool) {
	return parseDate(p.FirstPublicationDate)
}

// LastPublished parses LastPublicationDate.
func (p Post) LastPublished() (time.Time, bool) {
	return parseDate(p.LastPublicationDate)
}

// Link returns the site path of the post.
func (p Post) Link() string {
	return "/post/" + p.UID
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

// Predicate is a single query filter in the CMS predicate syntax.
type Predicate string

// At builds an equality predicate, e.g. At("document.type", "posts").
func At(path, value string) Predicate {
	return Predicate(fmt.Sprintf(`[at(%s,"%s")]`, path, strings.ReplaceAll(value, `"`, `\"`)))
}

// Ordering sorts query results by a field.
type Ordering struct {
	Field string
	Desc  bool
}

// FirstPublication orders by document.first_publication_date.
func FirstPublication(desc bool) Ordering {
	return Ordering{Field: "document.first_publication_date", Desc: desc}
}

func (o Ordering) String() string {
	if o.Desc {
		return "[" + o.Field + " desc]"
	}
	return "[" + o.Field + "]"
}

// Query describes a filtered, paginated read against the repository.
type Query struct {
	Predicates []Predicate
	Fetch      []string
	PageSize   int
	Page       int
	After      string
	Orderings  []Ordering
	Ref        string
}

// PostsQuery returns a query restricted to blog posts.
func PostsQuery(fetch ...string) Query {
	return Query{
		Predicates: []Predicate{At("document.type", DocumentType)},
		Fetch:      fetch,
	}
}

// Response is one page of query results.
type Response struct {
	Page             int    `json:"page"`
	ResultsPerPage   int    `json:"results_per_page"`
	TotalResultsSize int    `json:"total_results_size"`
	TotalPages       int    `json:"total_pages"`
	NextPage         string `json:"next_page"`
	PrevPage         string `json:"prev_page"`
	Results          []Post `json:"results"`
}

// Pager follows continuation cursors returned in Response.NextPage.
type Pager interface {
	FetchPage(ctx context.Context, cursor string) (Response, error)
}

// Repository is the read side of a content backend.
type Repository interface {
	Pager
	Query(ctx context.Context, q Query) (Response, error)
	GetByUID(ctx context.Context, docType, uid, ref string) (Post, error)
}
