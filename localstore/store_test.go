package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eringen/spacetraveling/content"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "content.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePost(uid, first string) content.Post {
	return content.Post{
		ID:                   "id-" + uid,
		UID:                  uid,
		FirstPublicationDate: first,
		LastPublicationDate:  first,
		Data: content.PostData{
			Title:    "Title " + uid,
			Subtitle: "Subtitle " + uid,
			Author:   "Author",
			Banner:   content.Banner{URL: "https://images.example/" + uid + ".png"},
			Content: []content.Group{{
				Heading: "Intro",
				Body:    []content.Block{{Type: "paragraph", Text: "one two three"}},
			}},
		},
	}
}

// seed stores three posts published on consecutive days: a < b < c.
func seed(t *testing.T, s *Store) {
	t.Helper()
	for _, p := range []content.Post{
		samplePost("b", "2021-03-02T10:00:00+0000"),
		samplePost("a", "2021-03-01T10:00:00+0000"),
		samplePost("c", "2021-03-03T10:00:00+0000"),
	} {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost(%s) failed: %v", p.UID, err)
		}
	}
}

func uids(posts []content.Post) string {
	var out []string
	for _, p := range posts {
		out = append(out, p.UID)
	}
	return strings.Join(out, ",")
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	post := samplePost("test-post", "2024-01-15T12:00:00+0000")
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetByUID(context.Background(), content.DocumentType, "test-post", "")
	if err != nil {
		t.Fatalf("GetByUID failed: %v", err)
	}
	if got.ID != post.ID {
		t.Errorf("ID = %q, want %q", got.ID, post.ID)
	}
	if got.Type != content.DocumentType {
		t.Errorf("Type = %q, want %q", got.Type, content.DocumentType)
	}
	if got.Data.Title != post.Data.Title {
		t.Errorf("Title = %q, want %q", got.Data.Title, post.Data.Title)
	}
	if len(got.Data.Content) != 1 || got.Data.Content[0].Body[0].Text != "one two three" {
		t.Errorf("Content = %+v, want round-tripped body", got.Data.Content)
	}
}

func TestSavePostGeneratesID(t *testing.T) {
	s := setupTestStore(t)
	post := samplePost("no-id", "2024-01-15T12:00:00+0000")
	post.ID = ""
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	got, err := s.GetByUID(context.Background(), content.DocumentType, "no-id", "")
	if err != nil {
		t.Fatalf("GetByUID failed: %v", err)
	}
	if got.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestSavePostRequiresUID(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SavePost(content.Post{}); err == nil {
		t.Error("expected error for post without uid")
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetByUID(context.Background(), content.DocumentType, "nonexistent", "")
	if !errors.Is(err, content.ErrNotFound) {
		t.Errorf("expected content.ErrNotFound, got %v", err)
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)
	if err := s.DeletePost("b"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetByUID(context.Background(), content.DocumentType, "b", ""); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("expected deleted post to be gone, got %v", err)
	}
}

func TestQueryOrdersByFirstPublicationDesc(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	resp, err := s.Query(context.Background(), content.PostsQuery())
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got := uids(resp.Results); got != "c,b,a" {
		t.Errorf("order = %s, want c,b,a", got)
	}
	if resp.NextPage != "" {
		t.Errorf("NextPage = %q, want empty", resp.NextPage)
	}
}

func TestQueryPaginatesWithCursor(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	q := content.PostsQuery("posts.title", "posts.subtitle", "posts.author")
	q.PageSize = 2
	first, err := s.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got := uids(first.Results); got != "c,b" {
		t.Errorf("first page = %s, want c,b", got)
	}
	if first.TotalPages != 2 || first.TotalResultsSize != 3 {
		t.Errorf("totals = %d pages / %d results, want 2 / 3", first.TotalPages, first.TotalResultsSize)
	}
	if !strings.HasPrefix(first.NextPage, cursorScheme) {
		t.Fatalf("NextPage = %q, want local cursor", first.NextPage)
	}

	second, err := s.FetchPage(context.Background(), first.NextPage)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if got := uids(second.Results); got != "a" {
		t.Errorf("second page = %s, want a", got)
	}
	if second.NextPage != "" {
		t.Errorf("NextPage = %q, want empty on last page", second.NextPage)
	}
	if second.PrevPage == "" {
		t.Error("PrevPage should be set on page 2")
	}
}

func TestQueryProjectsFetchedFields(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	resp, err := s.Query(context.Background(), content.PostsQuery("posts.title"))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	p := resp.Results[0]
	if p.Data.Title == "" {
		t.Error("title should be fetched")
	}
	if p.Data.Subtitle != "" || p.Data.Content != nil {
		t.Errorf("unfetched fields leaked: %+v", p.Data)
	}
	if p.UID == "" || p.FirstPublicationDate == "" {
		t.Error("document metadata must always be present")
	}
}

func TestQueryAfterBoundary(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	tests := []struct {
		after string
		desc  bool
		want  string
	}{
		{"id-b", true, "a"},
		{"id-b", false, "c"},
		{"id-a", true, ""},
		{"id-c", false, ""},
	}
	for _, tt := range tests {
		q := content.PostsQuery("posts.title")
		q.PageSize = 1
		q.After = tt.after
		q.Orderings = []content.Ordering{content.FirstPublication(tt.desc)}
		resp, err := s.Query(context.Background(), q)
		if err != nil {
			t.Fatalf("Query(after=%s, desc=%v) failed: %v", tt.after, tt.desc, err)
		}
		if got := uids(resp.Results); got != tt.want {
			t.Errorf("Query(after=%s, desc=%v) = %q, want %q", tt.after, tt.desc, got, tt.want)
		}
	}
}

func TestQueryRejectsUnsupportedPredicate(t *testing.T) {
	s := setupTestStore(t)
	q := content.Query{Predicates: []content.Predicate{`[fulltext(document,"space")]`}}
	if _, err := s.Query(context.Background(), q); err == nil {
		t.Error("expected error for unsupported predicate")
	}
}

func TestFetchPageRejectsForeignCursor(t *testing.T) {
	s := setupTestStore(t)
	for _, cursor := range []string{
		"https://repo.cdn.prismic.io/api/v2/documents/search?page=2",
		"local:orderBy=uid;drop&page=2&pageSize=2",
		"local:orderBy=first_publication_date&page=0&pageSize=2",
		"local:orderBy=first_publication_date&page=2&pageSize=1000000",
		"local:orderBy=first_publication_date&page=9223372036854775807&pageSize=100",
	} {
		if _, err := s.FetchPage(context.Background(), cursor); !errors.Is(err, ErrBadCursor) {
			t.Errorf("FetchPage(%q) error = %v, want ErrBadCursor", cursor, err)
		}
		if err := s.CheckCursor(cursor); !errors.Is(err, ErrBadCursor) {
			t.Errorf("CheckCursor(%q) error = %v, want ErrBadCursor", cursor, err)
		}
	}
}

func TestImport(t *testing.T) {
	s := setupTestStore(t)
	fixtures := `[
		{"uid": "hello", "first_publication_date": "2021-03-01T10:00:00+0000", "data": {"title": "Hello"}},
		{"uid": "world", "first_publication_date": "2021-03-02T10:00:00+0000", "last_publication_date": null, "data": {"title": "World"}}
	]`
	n, err := s.Import(strings.NewReader(fixtures))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d posts, want 2", n)
	}
	got, err := s.GetByUID(context.Background(), content.DocumentType, "world", "")
	if err != nil {
		t.Fatalf("GetByUID failed: %v", err)
	}
	if got.LastPublicationDate != "" {
		t.Errorf("null last_publication_date should stay absent, got %q", got.LastPublicationDate)
	}
}
