package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/content"
)

type fakeAPI struct {
	srv      *httptest.Server
	rootHits atomic.Int32
}

func newFakeAPI(t *testing.T, search func(w http.ResponseWriter, r *http.Request)) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		f.rootHits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"refs": []map[string]any{
				{"id": "preview", "ref": "release-ref", "isMasterRef": false},
				{"id": "master", "ref": "master-ref", "isMasterRef": true},
			},
		})
	})
	mux.HandleFunc("/api/v2/documents/search", search)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) endpoint() string { return f.srv.URL + "/api/v2" }

func writePage(w http.ResponseWriter, next string, posts ...content.Post) {
	resp := content.Response{Page: 1, ResultsPerPage: len(posts), Results: posts, NextPage: next}
	json.NewEncoder(w).Encode(resp)
}

func TestNewRejectsRelativeEndpoint(t *testing.T) {
	_, err := New("/api/v2")
	assert.Error(t, err)
}

func TestQueryBuildsSearchParameters(t *testing.T) {
	var got map[string][]string
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writePage(w, "", content.Post{UID: "first"})
	})
	c, err := New(api.endpoint(), WithAccessToken("secret"))
	require.NoError(t, err)

	q := content.PostsQuery("posts.title", "posts.subtitle")
	q.PageSize = 2
	q.After = "doc-1"
	q.Orderings = []content.Ordering{content.FirstPublication(true)}

	resp, err := c.Query(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "first", resp.Results[0].UID)

	assert.Equal(t, "master-ref", got["ref"][0])
	assert.Equal(t, `[[at(document.type,"posts")]]`, got["q"][0])
	assert.Equal(t, "posts.title,posts.subtitle", got["fetch"][0])
	assert.Equal(t, "2", got["pageSize"][0])
	assert.Equal(t, "doc-1", got["after"][0])
	assert.Equal(t, "[document.first_publication_date desc]", got["orderings"][0])
	assert.Equal(t, "secret", got["access_token"][0])
}

func TestQueryUsesExplicitRef(t *testing.T) {
	var ref string
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		ref = r.URL.Query().Get("ref")
		writePage(w, "")
	})
	c, err := New(api.endpoint())
	require.NoError(t, err)

	q := content.PostsQuery()
	q.Ref = "preview-ref"
	_, err = c.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "preview-ref", ref)
	assert.Zero(t, api.rootHits.Load(), "explicit ref must not hit the api root")
}

func TestMasterRefIsReused(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) { writePage(w, "") })
	c, err := New(api.endpoint())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Query(context.Background(), content.PostsQuery())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.rootHits.Load())
}

func TestGetByUID(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == `[[at(my.posts.uid,"hello-world")]]` {
			writePage(w, "", content.Post{ID: "X1", UID: "hello-world"})
			return
		}
		writePage(w, "")
	})
	c, err := New(api.endpoint())
	require.NoError(t, err)

	post, err := c.GetByUID(context.Background(), "posts", "hello-world", "")
	require.NoError(t, err)
	assert.Equal(t, "X1", post.ID)

	_, err = c.GetByUID(context.Background(), "posts", "missing", "")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestFetchPageFollowsCursor(t *testing.T) {
	var api *fakeAPI
	api = newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writePage(w, "", content.Post{UID: "third"})
			return
		}
		writePage(w, api.srv.URL+"/api/v2/documents/search?ref=master-ref&page=2&pageSize=2",
			content.Post{UID: "first"}, content.Post{UID: "second"})
	})
	c, err := New(api.endpoint())
	require.NoError(t, err)

	first, err := c.Query(context.Background(), content.PostsQuery())
	require.NoError(t, err)
	require.NotEmpty(t, first.NextPage)

	second, err := c.FetchPage(context.Background(), first.NextPage)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, "third", second.Results[0].UID)
	assert.Empty(t, second.NextPage)
}

func TestFetchPageRejectsForeignCursor(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) { writePage(w, "") })
	c, err := New(api.endpoint())
	require.NoError(t, err)

	for _, cursor := range []string{
		"http://evil.example/api/v2/documents/search?page=2",
		"file:///etc/passwd",
		api.srv.URL + "/other/path",
	} {
		_, err := c.FetchPage(context.Background(), cursor)
		assert.ErrorIs(t, err, ErrForeignCursor, cursor)
	}
}

func TestStatusErrorRedactsToken(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	c, err := New(api.endpoint(), WithAccessToken("secret"))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), content.Query{Ref: "r"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.NotContains(t, se.Error(), "secret")
}

// echoNextPage answers with a next_page link that repeats the request
// parameters, the way the API builds it.
func echoNextPage(api **fakeAPI, tokens *[]string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		*tokens = append(*tokens, q.Get("access_token"))
		if q.Get("page") == "2" {
			resp := content.Response{Results: []content.Post{{UID: "third"}}}
			q.Set("page", "1")
			resp.PrevPage = (*api).srv.URL + "/api/v2/documents/search?" + q.Encode()
			json.NewEncoder(w).Encode(resp)
			return
		}
		q.Set("page", "2")
		writePage(w, (*api).srv.URL+"/api/v2/documents/search?"+q.Encode(), content.Post{UID: "first"})
	}
}

func TestCursorsNeverCarryAccessToken(t *testing.T) {
	var (
		api    *fakeAPI
		tokens []string
	)
	api = newFakeAPI(t, echoNextPage(&api, &tokens))
	c, err := New(api.endpoint(), WithAccessToken("TOPSECRET"))
	require.NoError(t, err)

	first, err := c.Query(context.Background(), content.PostsQuery())
	require.NoError(t, err)
	require.NotEmpty(t, first.NextPage)
	assert.NotContains(t, first.NextPage, "TOPSECRET")
	assert.NotContains(t, first.NextPage, "access_token")
	assert.NoError(t, c.CheckCursor(first.NextPage))

	second, err := c.FetchPage(context.Background(), first.NextPage)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.NotEmpty(t, second.PrevPage)
	assert.NotContains(t, second.PrevPage, "TOPSECRET")

	assert.Equal(t, []string{"TOPSECRET", "TOPSECRET"}, tokens)
}

func TestFetchPageReplacesClientSuppliedToken(t *testing.T) {
	var (
		api    *fakeAPI
		tokens []string
	)
	api = newFakeAPI(t, echoNextPage(&api, &tokens))
	c, err := New(api.endpoint(), WithAccessToken("TOPSECRET"))
	require.NoError(t, err)

	_, err = c.FetchPage(context.Background(), api.srv.URL+"/api/v2/documents/search?page=2&access_token=forged")
	require.NoError(t, err)
	assert.Equal(t, []string{"TOPSECRET"}, tokens)
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTransportErrorRedactsToken(t *testing.T) {
	c, err := New("https://spacetraveling.cdn.prismic.io/api/v2",
		WithAccessToken("secret"),
		WithHTTPClient(&http.Client{Transport: failingTransport{}}))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), content.Query{Ref: "r"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
	var uerr *url.Error
	require.True(t, errors.As(err, &uerr))
	assert.Contains(t, uerr.URL, "access_token=REDACTED")
}
