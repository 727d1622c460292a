// Package detail assembles the post page: the post itself, its chronological
// neighbours, the reading-time estimate and the edit flag.
package detail

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/content"
)

// Detail is the view model of a post page.
type Detail struct {
	Post        content.Post
	ReadingTime int
	Edited      bool
	Prev        *content.Post
	Next        *content.Post
	Preview     bool
}

// Assembler loads post pages from a repository.
type Assembler struct {
	repo  content.Repository
	times *content.ReadingTimes
}

// NewAssembler creates an Assembler backed by repo.
func NewAssembler(repo content.Repository) *Assembler {
	return &Assembler{repo: repo, times: content.NewReadingTimes()}
}

// Load fetches the post with uid and its neighbours. A non-empty ref selects
// a preview release and marks the result as a preview. The error wraps
// content.ErrNotFound when uid is unknown.
func (a *Assembler) Load(ctx context.Context, uid, ref string) (Detail, error) {
	post, err := a.repo.GetByUID(ctx, content.DocumentType, uid, ref)
	if err != nil {
		return Detail{}, fmt.Errorf("load post %q: %w", uid, err)
	}
	prev, next, err := Neighbors(ctx, a.repo, post, ref)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Post:        post,
		ReadingTime: a.times.Of(post),
		Edited:      post.Edited(),
		Prev:        prev,
		Next:        next,
		Preview:     ref != "",
	}, nil
}

// Forget drops memoized data for uid after it was republished.
func (a *Assembler) Forget(uid string) {
	a.times.Forget(uid)
}

// Neighbors returns the posts published right before and right after target.
// Either may be nil at the ends of the corpus. Both queries run concurrently.
func Neighbors(ctx context.Context, repo content.Repository, target content.Post, ref string) (prev, next *content.Post, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := neighbor(gctx, repo, target, ref, true)
		prev = p
		return err
	})
	g.Go(func() error {
		p, err := neighbor(gctx, repo, target, ref, false)
		next = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("neighbors of %q: %w", target.UID, err)
	}
	return prev, next, nil
}

func neighbor(ctx context.Context, repo content.Repository, target content.Post, ref string, earlier bool) (*content.Post, error) {
	q := content.PostsQuery("posts.title")
	q.PageSize = 1
	q.After = target.ID
	q.Orderings = []content.Ordering{content.FirstPublication(earlier)}
	q.Ref = ref
	resp, err := repo.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	p := resp.Results[0]
	return &p, nil
}
