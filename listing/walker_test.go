package listing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/localstore"
)

// pagedRepo serves pre-built pages keyed by cursor "page-N".
type pagedRepo struct {
	pages   []content.Response
	calls   int
	failOn  string
	queries []content.Query
}

func newPagedRepo(sizes ...int) *pagedRepo {
	r := &pagedRepo{}
	n := 0
	for i, size := range sizes {
		var resp content.Response
		for j := 0; j < size; j++ {
			n++
			resp.Results = append(resp.Results, content.Post{UID: fmt.Sprintf("post-%d", n)})
		}
		if i < len(sizes)-1 {
			resp.NextPage = fmt.Sprintf("page-%d", i+1)
		}
		r.pages = append(r.pages, resp)
	}
	return r
}

func (r *pagedRepo) Query(ctx context.Context, q content.Query) (content.Response, error) {
	r.queries = append(r.queries, q)
	return r.pages[0], nil
}

func (r *pagedRepo) FetchPage(ctx context.Context, cursor string) (content.Response, error) {
	r.calls++
	if cursor == r.failOn {
		return content.Response{}, errors.New("upstream unavailable")
	}
	var i int
	if _, err := fmt.Sscanf(cursor, "page-%d", &i); err != nil || i >= len(r.pages) {
		return content.Response{}, fmt.Errorf("unknown cursor %q", cursor)
	}
	return r.pages[i], nil
}

func (r *pagedRepo) GetByUID(ctx context.Context, docType, uid, ref string) (content.Post, error) {
	return content.Post{}, content.ErrNotFound
}

func TestWalkerAccumulatesPages(t *testing.T) {
	repo := newPagedRepo(2, 2, 1)
	w := NewWalker(repo, repo.pages[0])
	require.True(t, w.HasMore())
	assert.Len(t, w.Posts(), 2)

	require.NoError(t, w.LoadNext(context.Background()))
	assert.Len(t, w.Posts(), 4)
	assert.True(t, w.HasMore(), "more stays true until a page returns no cursor")

	require.NoError(t, w.LoadNext(context.Background()))
	assert.Len(t, w.Posts(), 5)
	assert.False(t, w.HasMore())
	assert.Empty(t, w.NextPage())

	for i, p := range w.Posts() {
		assert.Equal(t, fmt.Sprintf("post-%d", i+1), p.UID, "append order")
	}
}

func TestWalkerStopsRequestingAfterLastPage(t *testing.T) {
	repo := newPagedRepo(1)
	w := NewWalker(repo, repo.pages[0])
	assert.False(t, w.HasMore())
	assert.ErrorIs(t, w.LoadNext(context.Background()), ErrNoMorePages)
	assert.Zero(t, repo.calls)
}

func TestWalkerErrorLeavesStateUntouched(t *testing.T) {
	repo := newPagedRepo(2, 2)
	repo.failOn = "page-1"
	w := NewWalker(repo, repo.pages[0])

	err := w.LoadNext(context.Background())
	require.Error(t, err)
	assert.Len(t, w.Posts(), 2)
	assert.Equal(t, "page-1", w.NextPage())
	assert.True(t, w.HasMore())
	assert.Equal(t, 1, repo.calls, "no retry")
}

func TestWalkerDoesNotDeduplicate(t *testing.T) {
	repo := newPagedRepo(1, 1)
	repo.pages[1].Results = repo.pages[0].Results
	w := NewWalker(repo, repo.pages[0])
	require.NoError(t, w.LoadNext(context.Background()))
	assert.Len(t, w.Posts(), 2)
}

func TestResumeWalker(t *testing.T) {
	repo := newPagedRepo(2, 3)
	w := ResumeWalker(repo, "page-1")
	require.NoError(t, w.LoadNext(context.Background()))
	assert.Len(t, w.Posts(), 3)
	assert.False(t, w.HasMore())

	assert.False(t, ResumeWalker(repo, "").HasMore())
}

func TestFirstPageQuery(t *testing.T) {
	repo := newPagedRepo(2, 1)
	resp, err := FirstPage(context.Background(), repo, 0, "preview-ref")
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)

	require.Len(t, repo.queries, 1)
	q := repo.queries[0]
	assert.Equal(t, DefaultPageSize, q.PageSize)
	assert.Equal(t, ListingFields, q.Fetch)
	assert.Equal(t, "preview-ref", q.Ref)
	assert.Equal(t, []content.Predicate{content.At("document.type", "posts")}, q.Predicates)
}

func TestRecentOrdersByFirstPublication(t *testing.T) {
	repo := newPagedRepo(3)
	posts, err := Recent(context.Background(), repo, 20)
	require.NoError(t, err)
	assert.Len(t, posts, 3)

	require.Len(t, repo.queries, 1)
	q := repo.queries[0]
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, []content.Ordering{content.FirstPublication(true)}, q.Orderings)
	assert.Empty(t, q.Ref)
}

func TestSummariesAndPage(t *testing.T) {
	repo := newPagedRepo(1, 1)
	repo.pages[0].Results[0].FirstPublicationDate = "2021-03-25T19:25:28+0000"
	repo.pages[0].Results[0].Data = content.PostData{Title: "T", Subtitle: "S", Author: "A"}

	page := PageOf(NewWalker(repo, repo.pages[0]))
	require.Len(t, page.Posts, 1)
	s := page.Posts[0]
	assert.Equal(t, "/post/post-1", s.Link)
	assert.Equal(t, "T", s.Title)
	assert.Equal(t, "S", s.Subtitle)
	assert.Equal(t, "A", s.Author)
	assert.Equal(t, 2021, s.PublishedAt.Year())
	assert.True(t, page.HasMore)
	assert.Equal(t, "page-1", page.NextPage)
}

func TestAllUIDsAgainstLocalStore(t *testing.T) {
	store, err := localstore.NewStore(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for i := 1; i <= 150; i++ {
		require.NoError(t, store.SavePost(content.Post{
			UID:                  fmt.Sprintf("post-%03d", i),
			FirstPublicationDate: fmt.Sprintf("2021-01-01T00:%02d:%02d+0000", i/60, i%60),
		}))
	}

	got, err := AllUIDs(context.Background(), store)
	require.NoError(t, err)
	assert.Len(t, got, 150)
	assert.Equal(t, "post-150", got[0])
	assert.Equal(t, "post-001", got[149])
}
