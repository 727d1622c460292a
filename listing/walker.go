// Package listing assembles the home page: the first page of posts and the
// cursor walk behind "load more".
package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/spacetraveling/content"
)

// DefaultPageSize is the number of posts on the first listing page.
const DefaultPageSize = 2

// ErrNoMorePages is returned by LoadNext once the last cursor was empty.
var ErrNoMorePages = errors.New("listing: no more pages")

// ListingFields are the fields fetched for listing entries.
var ListingFields = []string{"posts.title", "posts.subtitle", "posts.author"}

// Walker holds a growing, append-only sequence of posts and the cursor to the
// next page. It is owned by a single view and is not safe for concurrent use.
type Walker struct {
	pager   content.Pager
	posts   []content.Post
	next    string
	hasMore bool
}

// NewWalker seeds a walker with an already fetched first page.
func NewWalker(pager content.Pager, first content.Response) *Walker {
	return &Walker{
		pager:   pager,
		posts:   append([]content.Post(nil), first.Results...),
		next:    first.NextPage,
		hasMore: first.NextPage != "",
	}
}

// ResumeWalker starts from a cursor without any prior posts, as the load-more
// endpoint does.
func ResumeWalker(pager content.Pager, cursor string) *Walker {
	return &Walker{pager: pager, next: cursor, hasMore: cursor != ""}
}

// LoadNext fetches the page behind the current cursor and appends its results.
// On error the walker is left untouched.
func (w *Walker) LoadNext(ctx context.Context) error {
	if !w.hasMore {
		return ErrNoMorePages
	}
	resp, err := w.pager.FetchPage(ctx, w.next)
	if err != nil {
		return fmt.Errorf("load next page: %w", err)
	}
	w.posts = append(w.posts, resp.Results...)
	w.next = resp.NextPage
	w.hasMore = resp.NextPage != ""
	return nil
}

// Posts returns the posts loaded so far, in load order.
func (w *Walker) Posts() []content.Post { return w.posts }

// NextPage returns the cursor of the page LoadNext would fetch.
func (w *Walker) NextPage() string { return w.next }

// HasMore reports whether another page is available.
func (w *Walker) HasMore() bool { return w.hasMore }

// FirstPage queries the first page of the listing.
func FirstPage(ctx context.Context, repo content.Repository, pageSize int, ref string) (content.Response, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := content.PostsQuery(ListingFields...)
	q.PageSize = pageSize
	q.Ref = ref
	resp, err := repo.Query(ctx, q)
	if err != nil {
		return content.Response{}, fmt.Errorf("first listing page: %w", err)
	}
	return resp, nil
}

// Recent queries the n most recently published posts.
func Recent(ctx context.Context, repo content.Repository, n int) ([]content.Post, error) {
	q := content.PostsQuery(ListingFields...)
	q.PageSize = n
	q.Orderings = []content.Ordering{content.FirstPublication(true)}
	resp, err := repo.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	return resp.Results, nil
}

// AllUIDs walks every page of posts and returns their uids, for static
// generation and the sitemap.
func AllUIDs(ctx context.Context, repo content.Repository) ([]string, error) {
	q := content.PostsQuery("posts.title")
	q.PageSize = 100
	first, err := repo.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list uids: %w", err)
	}
	w := NewWalker(repo, first)
	for w.HasMore() {
		if err := w.LoadNext(ctx); err != nil {
			return nil, fmt.Errorf("list uids: %w", err)
		}
	}
	uids := make([]string, 0, len(w.Posts()))
	for _, p := range w.Posts() {
		uids = append(uids, p.UID)
	}
	return uids, nil
}
